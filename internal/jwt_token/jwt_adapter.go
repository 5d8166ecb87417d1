package jwttoken

import (
	authmw "coffer/pkg/platform/middleware/auth"
)

// JWTServiceAdapter narrows JWTService to the validator interface the auth
// middleware consumes, translating this package's claims into the
// middleware's account/role view.
type JWTServiceAdapter struct {
	svc *JWTService
}

func NewJWTServiceAdapter(svc *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{svc: svc}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.svc.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{
		Account: claims.Account,
		Role:    claims.Role,
		JTI:     claims.ID,
	}, nil
}
