// Package http provides the HTTP transport of the Nilavanti gate: handlers,
// error mapping and routing.
package http

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/atinyakov/nilavanti/internal/middleware"
	"github.com/atinyakov/nilavanti/internal/models"
	"github.com/atinyakov/nilavanti/internal/service"
	"go.uber.org/zap"
)

// AuthService defines the gate operations required by the HTTP handlers.
type AuthService interface {
	Mount(ctx context.Context, token string) (models.MountState, error)
	Login(ctx context.Context, req service.LoginRequest, client service.ClientInfo) (*service.LoginResult, error)
	Register(ctx context.Context, req service.RegisterRequest) (*models.User, error)
	Logout(ctx context.Context, token string) error
	ChangePassword(ctx context.Context, sess *models.Session, req service.ChangePasswordRequest) error
	ForgotPassword(ctx context.Context, username string) error
	ResetPassword(ctx context.Context, req service.ResetPasswordRequest) error
}

// AuthHandler handles registration, login, logout and the password flows.
type AuthHandler struct {
	AuthService AuthService
	// CookieSecure sets the Secure attribute on the session cookie.
	CookieSecure bool
	Log          *zap.Logger
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Authenticated bool         `json:"authenticated"`
	Redirect      string       `json:"redirect"`
	View          models.View  `json:"view"`
	User          *models.User `json:"user"`
	ExpiresAt     time.Time    `json:"expiresAt"`
}

// Register creates an account. The caller is not logged in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.AuthService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login checks the secret, sets the session cookie and tells the client to
// play the reveal before redirecting.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	res, err := h.AuthService.Login(r.Context(), req, service.ClientInfo{
		RemoteAddr: remoteHost(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}

	h.setSessionCookie(w, res.Token, res.ExpiresAt)
	writeJSON(w, http.StatusOK, LoginResponse{
		Authenticated: true,
		Redirect:      res.Redirect,
		View:          res.View,
		User:          res.User,
		ExpiresAt:     res.ExpiresAt,
	})
}

// Logout revokes the session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.AuthService.Logout(r.Context(), middleware.TokenFromRequest(r)); err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"redirect": models.GateRoute})
}

// Session reports what the gate should render for the caller.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	state, err := h.AuthService.Mount(r.Context(), middleware.TokenFromRequest(r))
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// ChangePassword requires a session placed in the context by SessionAuth.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req service.ChangePasswordRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := h.AuthService.ChangePassword(r.Context(), sess, req); err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type forgotRequest struct {
	Username string `json:"username"`
}

// ForgotPassword always answers 202 so it cannot reveal which usernames exist.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := h.AuthService.ForgotPassword(r.Context(), req.Username); err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// ResetPassword redeems a reset token.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req service.ResetPasswordRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := h.AuthService.ResetPassword(r.Context(), req); err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
