package middleware

import (
	"net"
	"net/http"

	"go.uber.org/zap"
)

// Limiter decides whether a key may make another request.
type Limiter interface {
	CheckLimit(key string) error
}

// RateLimit throttles requests per client IP and answers 429 when the
// client is over budget.
func RateLimit(l Limiter, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			if err := l.CheckLimit(key); err != nil {
				log.Warn("rate limited", zap.String("client", key), zap.String("path", r.URL.Path))
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
