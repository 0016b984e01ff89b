// Package auth resolves the authenticated caller of a request. Tokens are
// issued by an external identity service; this package only verifies them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const actorKey contextKey = "actor"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Actor is the identity performing an operation.
type Actor struct {
	ID   string
	Role string
}

// CurrentActor is the capability the booking core consumes.
type CurrentActor interface {
	ID() string
	Role() string
}

type actorView struct{ a Actor }

func (v actorView) ID() string   { return v.a.ID }
func (v actorView) Role() string { return v.a.Role }

// AsCurrentActor adapts an Actor to the CurrentActor interface.
func AsCurrentActor(a Actor) CurrentActor {
	return actorView{a: a}
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func FromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok && actor.ID != ""
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 tokens signed with a shared secret.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

func (v *TokenVerifier) Verify(raw string) (Actor, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return Actor{}, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}

	return Actor{ID: claims.Subject, Role: claims.Role}, nil
}

// Sign issues a token for actor. Used by tooling and tests; production
// tokens come from the identity service.
func (v *TokenVerifier) Sign(actor Actor, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = actor.ID
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: actor.Role, RegisteredClaims: claims})
	return tok.SignedString(v.secret)
}

func BearerToken(header string) (string, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrMissingToken
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" {
		return "", ErrMissingToken
	}
	return raw, nil
}
