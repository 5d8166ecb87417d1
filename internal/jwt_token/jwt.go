package jwttoken

import (
	"errors"
	"time"

	"coffer/pkg/domain"
	dErrors "coffer/pkg/domain-errors"
	authmw "coffer/pkg/platform/middleware/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the payload carried by access tokens: the acting account and
// the role it was granted at mint time.
type Claims struct {
	Account string `json:"account"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService mints and validates HS256 access tokens. Issuer and audience
// are fixed at construction and enforced on every validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateAccessToken mints a token for an account acting under the given
// role. Keyless accounts hold no signing keys and can never receive tokens.
func (s *JWTService) GenerateAccessToken(
	account domain.AccountID,
	role string,
	expiresIn time.Duration) (string, error) {
	if account.IsKeyless() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "keyless accounts cannot receive tokens")
	}
	if role != authmw.RoleMember && role != authmw.RoleTreasurer {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}

	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Account: account.String(),
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	return tok.SignedString(s.signingKey)
}

// ValidateToken checks the signature, expiry, issuer and audience of a
// token and returns its claims. Expired tokens get their own message so
// clients can distinguish a stale session from a forged one.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(*jwt.Token) (interface{}, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return claims, nil
}

// ExtractAccountFromToken validates the token and parses its account claim.
func (s *JWTService) ExtractAccountFromToken(tokenString string) (domain.AccountID, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	return domain.ParseAccountID(claims.Account)
}
