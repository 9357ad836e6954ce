package middleware

import (
	"net/http"
	"time"

	"github.com/R3E-Network/raffle-engine/pkg/logger"
)

// LoggingMiddleware logs each request with method, path, status, and timing.
func LoggingMiddleware(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			log.WithField("method", r.Method).
				WithField("path", r.URL.Path).
				WithField("status", wrapped.status).
				WithField("duration_ms", time.Since(start).Milliseconds()).
				WithField("caller", CallerFromContext(r.Context())).
				Debug("http request")
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
