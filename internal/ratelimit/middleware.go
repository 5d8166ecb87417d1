package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	dErrors "coffer/pkg/domain-errors"
	"coffer/pkg/platform/httputil"
	"coffer/pkg/platform/middleware/metadata"
	"coffer/pkg/requestcontext"
)

// Limiter applies a per-client request budget to HTTP routes. Clients are
// keyed by IP: donations arrive from untrusted callers, so the key must not
// depend on anything the caller chooses.
type Limiter struct {
	store  Store
	logger *slog.Logger
	limit  int
	window time.Duration
}

// NewLimiter builds a limiter. A limit of zero or less disables throttling.
func NewLimiter(store Store, limit int, window time.Duration, logger *slog.Logger) *Limiter {
	if limit <= 0 {
		logger.Info("rate limiting disabled")
	}
	return &Limiter{store: store, logger: logger, limit: limit, window: window}
}

// Middleware rejects clients over their budget with 429. Store failures fail
// open: throttling protects capacity and must not become the outage itself.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		ip := requestcontext.ClientIP(ctx)
		if ip == "" {
			ip = metadata.ClientIPFromRequest(r)
		}

		result, err := l.store.Allow(ctx, "ip:"+ip, l.limit, l.window)
		if err != nil {
			l.logger.WarnContext(ctx, "rate limit check failed", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retryAfter := int(time.Until(result.ResetAt).Seconds()) + 1
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited,
				"too many requests from this address, try again later"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
