package http

import (
	"context"
	"net/http"
	"time"

	"github.com/atinyakov/nilavanti/internal/middleware"
	"github.com/atinyakov/nilavanti/internal/models"
	"github.com/atinyakov/nilavanti/internal/reveal"
	"go.uber.org/zap"
)

// UserLookup resolves the user behind a session.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// NilavantiHandler serves the protected area and the reveal media.
type NilavantiHandler struct {
	Media reveal.MediaSource
	Users UserLookup
	Log   *zap.Logger
}

// MainResponse is the protected payload.
type MainResponse struct {
	User    *models.User `json:"user"`
	Message string       `json:"message"`
	Since   time.Time    `json:"since"`
}

// Reveal returns the URL of the video to play before the protected area.
func (h *NilavantiHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	url, err := h.Media.URL(r.Context())
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	if h.Log != nil {
		h.Log.Debug("reveal media issued", zap.String("user_id", middleware.GetUserIDFromContext(r.Context())))
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Main returns the protected content for the session in the context.
func (h *NilavantiHandler) Main(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resp := MainResponse{Message: "Welcome to Nilavanti", Since: sess.CreatedAt}
	if sess.UserID != "" {
		user, err := h.Users.GetUserByID(r.Context(), sess.UserID)
		if err != nil {
			writeServiceError(w, h.Log, err)
			return
		}
		resp.User = user
		resp.Message = "Welcome to Nilavanti, " + user.Username
	}
	writeJSON(w, http.StatusOK, resp)
}
