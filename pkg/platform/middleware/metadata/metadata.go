// Package metadata captures client transport details for audit trails.
package metadata

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"coffer/pkg/requestcontext"
)

// ClientMetadata records the caller's IP address and User-Agent on the
// request context so handlers and the audit trail can report who acted.
// Apply it early in the chain, before anything that emits events.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIPFromRequest(r)
		ua := r.Header.Get("User-Agent")

		ctx := requestcontext.WithClientMetadata(r.Context(), ip, ua)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DescribeClient renders a User-Agent header as a short label for audit
// metadata. Unrecognized agents (curl, SDKs, bots) fall back to the raw
// product token.
func DescribeClient(rawUA string) string {
	if rawUA == "" {
		return ""
	}

	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	if name == "" {
		return rawUA
	}
	if os := ua.OS(); os != "" {
		return fmt.Sprintf("%s %s (%s)", name, version, os)
	}
	return fmt.Sprintf("%s %s", name, version)
}

// ClientIPFromRequest returns the originating client address, preferring
// proxy-set headers over the socket peer. X-Forwarded-For may carry a
// whole hop chain; the first entry is the caller.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Direct connections carry "ip:port" ("[::1]:port" for IPv6).
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
