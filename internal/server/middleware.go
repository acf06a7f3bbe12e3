package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/frotaops/nfe-import/internal/logger"
)

// RequestLogger tags every request with a generated id, carries a scoped
// logger in the context and logs the request once it is served.
func RequestLogger(log zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		start := time.Now()

		scoped := log.With().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), scoped)))

		scoped.Info().Dur("duration", time.Since(start)).Msg("request served")
	})
}
