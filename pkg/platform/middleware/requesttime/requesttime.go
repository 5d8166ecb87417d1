// Package requesttime pins one wall-clock reading per HTTP request. Every
// timestamp derived from the request — audit events, receipts, log fields —
// then agrees to the nanosecond, instead of drifting across repeated
// time.Now() calls while the request is in flight.
package requesttime

import (
	"net/http"
	"time"

	"coffer/pkg/requestcontext"
)

// Middleware stamps the arrival time into the request context. Readers use
// requestcontext.Now, which falls back to the real clock outside HTTP flows.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
