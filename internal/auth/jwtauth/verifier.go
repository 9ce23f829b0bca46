// Package jwtauth checks bearer tokens presented to the audit API.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"medaudit/internal/config"
	"medaudit/internal/domain"
	"medaudit/internal/port"
)

// Claims represents the JWT claims accepted by the audit API.
type Claims struct {
	jwt.RegisteredClaims
}

// Verifier implements port.Authorizer with HMAC-signed JWTs.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewVerifier creates a Verifier from auth config.
func NewVerifier(cfg *config.AuthConfig) (*Verifier, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwtauth: secret is required when auth is enabled")
	}
	return &Verifier{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}, nil
}

// IsAuthorized reports whether token is a valid, unexpired token for this
// issuer and audience.
func (v *Verifier) IsAuthorized(_ context.Context, token string) bool {
	if _, err := v.Validate(token); err != nil {
		log.Printf("jwtauth.Verifier.IsAuthorized: rejected token: %v", err)
		return false
	}
	return true
}

// Validate parses token and returns its claims.
func (v *Verifier) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	if v.audience != "" {
		aud, _ := claims.GetAudience()
		if !slices.Contains(aud, v.audience) {
			return nil, domain.ErrUnauthorized
		}
	}

	return claims, nil
}

// Issue signs a token for subject valid for ttl. cmd/token uses it to mint
// operator access tokens.
func (v *Verifier) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// AllowAll is the authorizer used when auth is disabled.
type AllowAll struct{}

func (AllowAll) IsAuthorized(context.Context, string) bool { return true }

// New returns the authorizer selected by cfg.
func New(cfg *config.AuthConfig) (port.Authorizer, error) {
	if !cfg.Enabled {
		return AllowAll{}, nil
	}
	return NewVerifier(cfg)
}

// Compile-time checks.
var (
	_ port.Authorizer = (*Verifier)(nil)
	_ port.Authorizer = AllowAll{}
)
