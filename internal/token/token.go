// Package token issues and verifies the signed session tokens handed out at
// signup and signin. Tokens are self-contained; there is no server-side session.
package token

import (
	"errors" // Error construction
	"fmt"    // Error wrapping
	"time"   // Time for token expiration

	"paywallet/internal/domain" // Error categories

	"github.com/golang-jwt/jwt/v5" // JWT library
)

// DefaultTTL is the token lifetime used when none is configured
const DefaultTTL = time.Hour

// Claims carried by a session token
type Claims struct {
	UserID               string `json:"user_id"` // Custom claim for user ID
	jwt.RegisteredClaims        // Standard JWT claims
}

// Service signs and verifies HS256 tokens with a process-wide secret
type Service struct {
	secret []byte           // Signing secret, read-only after construction
	ttl    time.Duration    // Token lifetime
	now    func() time.Time // Clock
}

// Option customizes a Service
type Option func(*Service)

// WithClock replaces the wall clock, used by tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a token Service
func New(secret []byte, ttl time.Duration, opts ...Option) (*Service, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: empty signing secret")
	}
	if ttl <= 0 {
		return nil, errors.New("token: ttl must be positive")
	}
	s := &Service{secret: append([]byte(nil), secret...), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue creates a token for the given user ID
func (s *Service) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("token: empty user id")
	}
	now := s.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	return token.SignedString(s.secret)                       // Sign the token with the secret
}

// Verify parses a token and returns the embedded user ID.
// Every failure is reported as domain.ErrInvalidToken.
func (s *Service) Verify(tokenStr string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return "", domain.ErrInvalidToken
	}
	return claims.UserID, nil
}
