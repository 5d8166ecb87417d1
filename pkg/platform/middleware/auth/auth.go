package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"coffer/pkg/domain"
	request "coffer/pkg/platform/middleware/request"
	"coffer/pkg/requestcontext"
)

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	Account string
	Role    string
	JTI     string
}

// Role values accepted in access tokens.
const (
	RoleMember    = "member"
	RoleTreasurer = "treasurer"
)

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireOrigin authenticates the request and stores the caller's origin in
// the context. Members act under the signed origin of their account;
// treasurers carry the privileged origin.
func RequireOrigin(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			after, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(after)
			if err != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			origin, err := OriginFromClaims(claims)
			if err != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - unusable claims",
					"error", err,
					"role", claims.Role,
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid token claims")
				return
			}

			ctx := requestcontext.WithOrigin(r.Context(), origin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OriginFromClaims maps validated token claims to a caller origin. Keyless
// accounts hold no signing keys, so a token naming one is forged or minted
// by mistake and must be rejected.
func OriginFromClaims(claims *JWTClaims) (domain.Origin, error) {
	switch claims.Role {
	case RoleTreasurer:
		return domain.PrivilegedOrigin(), nil
	case RoleMember:
		account, err := domain.ParseAccountID(claims.Account)
		if err != nil {
			return domain.Origin{}, fmt.Errorf("parse account claim: %w", err)
		}
		if account.IsKeyless() {
			return domain.Origin{}, fmt.Errorf("keyless account %s cannot hold a signed token", account)
		}
		return domain.SignedOrigin(account), nil
	default:
		return domain.Origin{}, fmt.Errorf("unknown role %q", claims.Role)
	}
}
