// Package request assigns each HTTP request a correlation ID.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"coffer/pkg/requestcontext"
)

// HeaderName carries the request ID to and from clients.
const HeaderName = "X-Request-ID"

// Middleware reuses an inbound X-Request-ID or assigns a fresh one, stores
// it in the context, and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderName)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(HeaderName, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
