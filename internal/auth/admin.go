package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	adminIssuer   = "bitbeem"
	adminAudience = "bitbeem-admin"
	adminRole     = "admin"
)

// AdminClaims describes a validated admin bearer token.
type AdminClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// AdminTokens issues and validates HS256 admin tokens that gate bulk listing.
type AdminTokens struct {
	secret  []byte
	ttl     time.Duration
	nowFunc func() time.Time
	parser  *jwt.Parser
}

// NewAdminTokens builds an issuer/validator sharing one secret.
func NewAdminTokens(secret string, ttl time.Duration) *AdminTokens {
	return &AdminTokens{
		secret:  []byte(secret),
		ttl:     ttl,
		nowFunc: time.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
			jwt.WithIssuer(adminIssuer),
			jwt.WithAudience(adminAudience),
			jwt.WithExpirationRequired(),
		),
	}
}

// Issue signs a token for subject that expires after the configured TTL.
func (a *AdminTokens) Issue(subject string) (string, time.Time, error) {
	now := a.nowFunc()
	expiresAt := now.Add(a.ttl)
	claims := jwt.MapClaims{
		"sub":  subject,
		"iss":  adminIssuer,
		"aud":  adminAudience,
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
		"role": adminRole,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign admin token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate checks signature, issuer, audience, expiry and role.
func (a *AdminTokens) Validate(tokenString string) (AdminClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return AdminClaims{}, ErrUnauthorized
	}

	parsed, err := a.parser.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return AdminClaims{}, ErrUnauthorized
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return AdminClaims{}, ErrUnauthorized
	}
	if role, _ := claims["role"].(string); role != adminRole {
		return AdminClaims{}, ErrUnauthorized
	}

	sub, _ := claims.GetSubject()
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return AdminClaims{}, ErrUnauthorized
	}
	return AdminClaims{Subject: sub, ExpiresAt: exp.Time}, nil
}
