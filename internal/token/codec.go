// Package token issues and verifies the signed bearer tokens that gate
// every API request.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distinguishes access tokens from refresh tokens. Verification rejects
// a token whose kind does not match the expected one, so a refresh token can
// never be replayed where an access token is required.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// MinSecretLen is the minimum signing secret length in bytes. A shorter
// secret makes HS256 brute-forceable, so the constructor refuses it outright.
const MinSecretLen = 32

// ErrInvalidToken covers every verification failure: bad signature, malformed
// payload, expiry, wrong kind. Callers must not be able to tell these apart.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the decoded token payload.
type Claims struct {
	Role string `json:"role"`
	Kind Kind   `json:"type"`
	jwt.RegisteredClaims
}

// Pair bundles an access and refresh token issued for the same subject.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Codec signs and verifies tokens with a process-wide symmetric secret.
// The secret is immutable after construction; a single Codec is shared by
// all concurrent requests.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCodec validates the secret and builds a Codec.
func NewCodec(secret string, accessTTL, refreshTTL time.Duration) (*Codec, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("token: signing secret must be at least %d bytes", MinSecretLen)
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token: ttl must be greater than zero")
	}
	return &Codec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// AccessTTL exposes the configured access token lifetime.
func (c *Codec) AccessTTL() time.Duration {
	return c.accessTTL
}

// Issue signs a token of the given kind for the subject. The jti is optional;
// when empty a random one is generated.
func (c *Codec) Issue(subject, role string, kind Kind, ttl time.Duration, jti string) (string, error) {
	if subject == "" {
		return "", errors.New("token: subject is required")
	}
	if ttl <= 0 {
		return "", errors.New("token: ttl must be greater than zero")
	}
	if jti == "" {
		jti = uuid.NewString()
	}

	now := time.Now().UTC()
	claims := Claims{
		Role: role,
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// IssuePair creates an access and refresh token for the same subject and role
// in one call, along with the access token lifetime in seconds so clients can
// schedule their refresh.
func (c *Codec) IssuePair(subject, role string) (Pair, error) {
	access, err := c.Issue(subject, role, KindAccess, c.accessTTL, "")
	if err != nil {
		return Pair{}, err
	}
	refresh, err := c.Issue(subject, role, KindRefresh, c.refreshTTL, "")
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(c.accessTTL.Seconds()),
	}, nil
}

// Verify checks the signature, expiry and kind of a token. Timestamps are
// compared without leeway; clock skew is deliberately not compensated.
// Every failure collapses to ErrInvalidToken.
func (c *Codec) Verify(raw string, expected Kind) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != expected {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	if !claims.ExpiresAt.Time.After(claims.IssuedAt.Time) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
