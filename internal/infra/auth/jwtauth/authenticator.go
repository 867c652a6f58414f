// Package jwtauth resolves caller principals from HS256 bearer tokens.
// The token's sub claim becomes the owner principal recorded on
// registration.
package jwtauth

import (
	"context"
	"errors"

	"cipherid/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &Authenticator{secret: []byte(secret)}, nil
}

func (a *Authenticator) Authenticate(_ context.Context, bearerToken string) (domain.Principal, error) {
	parsed, err := jwt.Parse(bearerToken, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	return domain.Principal{
		Subject:   subject,
		RawClaims: claims,
	}, nil
}

var _ domain.Authenticator = (*Authenticator)(nil)
