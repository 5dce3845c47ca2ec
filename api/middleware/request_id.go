package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/librarium/librarium-backend/pkg/logger"
)

const (
	requestIDHeader = "X-Request-Id"
	// Client-supplied ids are echoed back and logged, so anything
	// oversized or non-printable is replaced rather than trusted.
	maxRequestIDLength = 64
)

// RequestID honors a well-formed incoming X-Request-Id or mints one,
// echoes it on the response, and binds it to the log context.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := sanitizeRequestID(r.Header.Get(requestIDHeader))
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sanitizeRequestID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxRequestIDLength {
		return ""
	}
	for _, r := range id {
		if r <= ' ' || r > '~' {
			return ""
		}
	}
	return id
}
