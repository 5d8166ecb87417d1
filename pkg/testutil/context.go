package testutil

import (
	"net/http"

	"coffer/pkg/domain"
	"coffer/pkg/requestcontext"
)

// WithOrigin stamps a caller origin onto the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithOrigin(req *http.Request, o domain.Origin) *http.Request {
	return req.WithContext(requestcontext.WithOrigin(req.Context(), o))
}

// WithSignedOrigin marks the request as signed by the given account.
// If the account is not a valid ID, it will not be added to the context.
func WithSignedOrigin(req *http.Request, account string) *http.Request {
	if parsed, err := domain.ParseAccountID(account); err == nil {
		return WithOrigin(req, domain.SignedOrigin(parsed))
	}
	return req
}

// WithPrivilegedOrigin marks the request as carrying the privileged capability.
func WithPrivilegedOrigin(req *http.Request) *http.Request {
	return WithOrigin(req, domain.PrivilegedOrigin())
}
