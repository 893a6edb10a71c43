package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"moneta/internal/shared/logger"
)

type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w}
}

func (rw *responseWriter) Status() int {
	return rw.status
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}

	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
	rw.wroteHeader = true
}

// Logging records one structured log line per request and attaches a
// request-scoped logger to the context.
func Logging(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLog := log.With().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Logger()

			wrapped := wrapResponseWriter(w)
			next.ServeHTTP(wrapped, r.WithContext(logger.WithContext(r.Context(), reqLog)))

			status := wrapped.status
			if status == 0 {
				status = http.StatusOK
			}

			reqLog.Info().
				Int("status", status).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
