package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenExpired   = errors.New("token expired")
)

// Claims is the payload carried by an access token.
type Claims struct {
	SubjectID string        `json:"user_id"`
	Kind      PrincipalKind `json:"user_type"`
	Email     string        `json:"email"`
	TenantID  *uuid.UUID    `json:"tenant_id,omitempty"`
	Role      string        `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Subject is the input to Issue.
type Subject struct {
	ID       string
	Kind     PrincipalKind
	Email    string
	TenantID *uuid.UUID
	Role     string
}

// Codec issues and verifies HMAC-signed access tokens with one secret and algorithm.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec builds a codec for the given HMAC algorithm name (HS256, HS384, HS512).
func NewCodec(secret []byte, algorithm string, ttl time.Duration) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	return &Codec{secret: secret, method: method, ttl: ttl, now: time.Now}, nil
}

// WithClock returns a copy of the codec that reads the current time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

// TTL is the lifetime of issued tokens.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a new access token for s.
func (c *Codec) Issue(s Subject) (string, error) {
	if !s.Kind.Valid() {
		return "", fmt.Errorf("issue token: unknown principal kind %q", s.Kind)
	}
	now := c.now()
	claims := Claims{
		SubjectID: s.ID,
		Kind:      s.Kind,
		Email:     s.Email,
		TenantID:  s.TenantID,
		Role:      s.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, structure and expiry. The returned error is
// ErrTokenExpired or ErrTokenMalformed, wrapping the parser's reason.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}
	if claims.SubjectID == "" || !claims.Kind.Valid() {
		return nil, fmt.Errorf("%w: missing subject or principal kind", ErrTokenMalformed)
	}
	return claims, nil
}
