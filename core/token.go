package core

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the lifetime of every minted token.
const TokenTTL = 60 * 24 * time.Hour

var (
	// ErrMissingSecret is returned when no signing secret is configured.
	ErrMissingSecret = errors.New("token signing secret is not set")
	// ErrInvalidToken is the single verification failure. Malformed input,
	// bad signatures and expired tokens are deliberately indistinguishable.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the signed token payload.
type Claims struct {
	Subject   int64            `json:"sub"`
	Name      string           `json:"name"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
}

var _ jwt.Claims = (*Claims)(nil)

func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error)       { return nil, nil }
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c *Claims) GetIssuer() (string, error)                   { return "", nil }
func (c *Claims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }
func (c *Claims) GetSubject() (string, error) {
	return strconv.FormatInt(c.Subject, 10), nil
}

// TokenCodec mints and verifies HS256 identity tokens. The key is fixed at
// construction and only read afterwards, so one codec is shared by all requests.
type TokenCodec struct {
	key []byte
	now func() time.Time
}

// TokenOption customizes a TokenCodec.
type TokenOption func(*TokenCodec)

// WithClock replaces the time source used for expiry computation and checks.
func WithClock(now func() time.Time) TokenOption {
	return func(tc *TokenCodec) {
		if now != nil {
			tc.now = now
		}
	}
}

// NewTokenCodec builds a codec around secret.
func NewTokenCodec(secret []byte, opts ...TokenOption) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	key := make([]byte, len(secret))
	copy(key, secret)

	tc := &TokenCodec{key: key, now: time.Now}
	for _, opt := range opts {
		opt(tc)
	}
	return tc, nil
}

// Mint signs a token for subject that expires TokenTTL from now.
func (tc *TokenCodec) Mint(subject int64, displayName string) (string, error) {
	claims := &Claims{
		Subject:   subject,
		Name:      displayName,
		ExpiresAt: jwt.NewNumericDate(tc.now().Add(TokenTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tc.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded claims.
func (tc *TokenCodec) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return tc.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tc.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
