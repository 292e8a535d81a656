// Package auth issues and verifies session tokens and gates HTTP routes by role.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/okian/commitquest/internal/domain/model"
)

const (
	defaultTTL    = 7 * 24 * time.Hour
	defaultLeeway = 30 * time.Second
)

// Identity is the authenticated caller.
type Identity struct {
	UserID uuid.UUID
	Role   model.Role
}

// IsAdmin reports whether the caller holds the ADMIN role.
func (i Identity) IsAdmin() bool { return i.Role == model.RoleAdmin }

// Claims are the session token claims. The subject is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier turns a raw token into an Identity.
type Verifier interface {
	Verify(token string) (Identity, error)
}

// Tokens signs and verifies HS256 session tokens.
type Tokens struct {
	key    []byte
	issuer string
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
}

// TokenOption configures Tokens.
type TokenOption func(*Tokens)

// WithTTL sets the lifetime of issued tokens.
func WithTTL(ttl time.Duration) TokenOption {
	return func(t *Tokens) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// WithLeeway sets the allowed clock skew when validating time claims.
func WithLeeway(d time.Duration) TokenOption {
	return func(t *Tokens) {
		if d >= 0 {
			t.leeway = d
		}
	}
}

// WithClock overrides the time source used when issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(t *Tokens) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTokens returns a signer/verifier for secret and issuer.
func NewTokens(secret, issuer string, opts ...TokenOption) (*Tokens, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrEmptySecret
	}
	t := &Tokens{
		key:    []byte(secret),
		issuer: issuer,
		ttl:    defaultTTL,
		leeway: defaultLeeway,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Issue mints a token for userID with role.
func (t *Tokens) Issue(userID uuid.UUID, role model.Role) (string, error) {
	now := t.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.NewString(),
		},
	})
	return tok.SignedString(t.key)
}

// Verify validates signature, issuer and expiry and returns the identity.
func (t *Tokens) Verify(raw string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(t.leeway),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.key, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredToken
		}
		return Identity{}, ErrInvalidToken
	}
	if !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	role := model.Role(strings.ToUpper(claims.Role))
	if !role.Valid() {
		role = model.RoleUser
	}
	return Identity{UserID: id, Role: role}, nil
}
