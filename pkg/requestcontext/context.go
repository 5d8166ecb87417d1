// Package requestcontext carries request-scoped values between the HTTP
// middleware chain and the treasury service without an http dependency:
// the caller's origin, correlation metadata for audit events, and the
// request's pinned timestamp. Middleware writes these once at the edge;
// services only read.
package requestcontext

import (
	"context"
	"time"

	"coffer/pkg/domain"
)

type (
	originKey      struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Origin returns the caller's capability. An unauthenticated context yields
// the zero Origin, which every capability check rejects, so forgetting the
// auth middleware fails closed rather than open.
func Origin(ctx context.Context) domain.Origin {
	o, _ := ctx.Value(originKey{}).(domain.Origin)
	return o
}

// WithOrigin records the caller's capability. Set by the auth middleware
// after token validation; tests use it to impersonate callers directly.
func WithOrigin(ctx context.Context, o domain.Origin) context.Context {
	return context.WithValue(ctx, originKey{}, o)
}

// ClientIP returns the client address captured at the edge, or "".
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// UserAgent returns the raw User-Agent captured at the edge, or "".
func UserAgent(ctx context.Context) string {
	ua, _ := ctx.Value(userAgentKey{}).(string)
	return ua
}

// WithClientMetadata records the transport facts audit events are stamped
// with. One call sets both so middleware cannot record half the pair.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

// RequestID returns the correlation ID assigned at the edge, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithRequestID records the correlation ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the request's pinned timestamp. Contexts without one — the
// sweeper, bootstrap, tests that don't care — read the real clock, so Now
// is always safe to call.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the timestamp. The requesttime middleware sets it per
// request; tests set it to freeze event times.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
