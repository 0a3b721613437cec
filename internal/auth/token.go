// Package auth provides the end-user bearer-token plumbing for executed
// commands. Tokens are issued by an external identity provider; this package
// only carries them, optionally checks them, and decides when a command must
// fail with a sign-in error.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrSignInRequired means an action needs a signed-in user and none exists.
var ErrSignInRequired = errors.New("please sign in to perform this action")

// TokenSource supplies a bearer token for one execution call. Implementations
// must fetch fresh per call; tokens are never cached across executions.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type contextKey struct{}

// WithToken stores a request-scoped bearer token on the context.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, contextKey{}, token)
}

// TokenFromContext returns the bearer token stored by WithToken, if any.
func TokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(contextKey{}).(string)
	return tok
}

// StaticSource returns a fixed token; used by the one-shot CLI.
type StaticSource string

func (s StaticSource) Token(_ context.Context) (string, error) {
	if s == "" {
		return "", ErrSignInRequired
	}
	return string(s), nil
}

// ContextSource reads the per-request token from the context and fails fast
// when no user is signed in. When a Verifier is configured the token is also
// checked locally before it is forwarded.
type ContextSource struct {
	Verifier *Verifier
}

func (s *ContextSource) Token(ctx context.Context) (string, error) {
	tok := TokenFromContext(ctx)
	if tok == "" {
		return "", ErrSignInRequired
	}
	if s.Verifier != nil {
		if _, err := s.Verifier.Verify(tok); err != nil {
			return "", fmt.Errorf("%w: %v", ErrSignInRequired, err)
		}
	}
	return tok, nil
}

// Claims represents JWT claims with the subject user id.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Verifier validates HMAC-signed bearer tokens. Production deployments let
// the backend verify provider-issued tokens; the verifier covers dev and test
// setups that mint their own.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for the given shared secret.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify validates a token and returns its claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token string is empty")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("token expired: %w", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("malformed token: %w", err)
		default:
			return nil, fmt.Errorf("failed to parse token: %w", err)
		}
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	return claims, nil
}

// Mint generates a signed token for userID, valid for ttl. Dev/test only.
func (v *Verifier) Mint(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
