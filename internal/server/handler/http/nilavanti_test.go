package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/atinyakov/nilavanti/internal/middleware"
	"github.com/atinyakov/nilavanti/internal/models"
	"github.com/atinyakov/nilavanti/internal/reveal"
)

type fakeMedia struct {
	url string
	err error
}

func (f fakeMedia) URL(context.Context) (string, error) { return f.url, f.err }

type fakeUsers map[string]*models.User

func (f fakeUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, models.ErrUserNotFound
}

func TestNilavantiHandler_Reveal(t *testing.T) {
	tests := []struct {
		name     string
		media    reveal.MediaSource
		wantCode int
		wantBody string
	}{
		{"static", reveal.StaticMedia("/static/nilavanti.mp4"), http.StatusOK, `"url":"/static/nilavanti.mp4"`},
		{"presigned", fakeMedia{url: "https://s3.example/media/reveal.mp4?X-Amz-Signature=abc"}, http.StatusOK, "X-Amz-Signature"},
		{"media failure", fakeMedia{err: errors.New("presign failed")}, http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &NilavantiHandler{Media: tt.media}
			rec := httptest.NewRecorder()
			h.Reveal(rec, httptest.NewRequest("GET", "/api/nilavanti/reveal", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d; want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q; want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestNilavantiHandler_Main(t *testing.T) {
	users := fakeUsers{"u1": {ID: "u1", Username: "Nilauser"}}
	tests := []struct {
		name     string
		session  *models.Session
		wantCode int
		wantBody string
	}{
		{"anonymous", nil, http.StatusUnauthorized, "unauthorized"},
		{"master", &models.Session{ID: "s", Master: true}, http.StatusOK, `"user":null`},
		{"user", &models.Session{ID: "s", UserID: "u1"}, http.StatusOK, "Welcome to Nilavanti, Nilauser"},
		{"deleted user", &models.Session{ID: "s", UserID: "gone"}, http.StatusNotFound, "user not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &NilavantiHandler{Users: users}
			req := httptest.NewRequest("GET", "/api/nilavanti/main", nil)
			if tt.session != nil {
				req = req.WithContext(middleware.WithSession(req.Context(), tt.session))
			}
			rec := httptest.NewRecorder()
			h.Main(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d; want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q; want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	h := &HealthHandler{Checks: map[string]HealthCheck{"postgres": ok, "redis": ok}}
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthy status = %d", rec.Code)
	}

	h.Checks["redis"] = down
	rec = httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"failed":["redis"]`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}
