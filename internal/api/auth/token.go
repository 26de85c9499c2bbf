package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wandertours/wandertours/internal/api"
)

// SessionClaims is the payload of a session token: subject identity and
// issue time, with the expiry derived from the configured TTL at issue.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// SubjectID parses the token subject back into a user ID.
func (c *SessionClaims) SubjectID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed subject claim", api.ErrUnauthenticated)
	}
	return id, nil
}

// TokenCodec signs and verifies stateless bearer session tokens (HS256).
// The signing key is process-wide configuration loaded once at startup;
// rotating it invalidates every outstanding token.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewTokenCodec(secret string, ttl time.Duration, issuer string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), ttl: ttl, issuer: issuer}
}

// Issue produces a signed token for the subject with the given issue
// time and an absolute expiry of issuedAt + TTL.
func (c *TokenCodec) Issue(subject uuid.UUID, issuedAt time.Time) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(c.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

// Verify checks signature, structure and expiry. All failures wrap
// api.ErrUnauthenticated; the jwt sentinel (e.g. jwt.ErrTokenExpired)
// stays in the chain for callers that care which check failed.
func (c *TokenCodec) Verify(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrUnauthenticated, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: token invalid", api.ErrUnauthenticated)
	}
	if c.issuer != "" && claims.Issuer != c.issuer {
		return nil, fmt.Errorf("%w: token issuer mismatch", api.ErrUnauthenticated)
	}
	return claims, nil
}
