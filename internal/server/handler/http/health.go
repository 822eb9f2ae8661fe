package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"
)

// HealthCheck probes one backing service.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports whether every backing service answers.
type HealthHandler struct {
	Checks  map[string]HealthCheck
	Timeout time.Duration
	Log     *zap.Logger
}

// Health answers 200 when all checks pass and 503 listing the failed ones otherwise.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	var failed []string
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			if h.Log != nil {
				h.Log.Warn("health check failed", zap.String("check", name), zap.Error(err))
			}
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
