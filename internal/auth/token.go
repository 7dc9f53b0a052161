package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/josh-kwaku/money-tracker/internal/domain"
)

// MinSecretLength is the shortest HMAC secret NewCodec accepts.
const MinSecretLength = 32

var (
	ErrWeakSecret        = errors.New("token secret must be at least 32 bytes")
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenBadSignature = errors.New("token signature invalid")
	ErrTokenExpired      = errors.New("token expired")
	ErrInvalidTTL        = errors.New("token ttl must be a positive whole number of seconds")
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

type Claims struct {
	ID        string
	Subject   int64
	Role      domain.Role
	Kind      Kind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Kind Kind   `json:"typ"`
	Role string `json:"role"`
}

// Codec issues and verifies HS256 tokens bound to a person id.
type Codec struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

type CodecOption func(*Codec)

func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

func NewCodec(secret string, opts ...CodecOption) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("NewCodec: %w", ErrWeakSecret)
	}

	c := &Codec{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	return c, nil
}

// Issue signs a token valid for ttl. Token timestamps carry whole seconds, so
// ttl must too and the issue time is truncated to the second.
func (c *Codec) Issue(subject int64, role domain.Role, kind Kind, ttl time.Duration) (string, error) {
	if ttl <= 0 || ttl%time.Second != 0 {
		return "", fmt.Errorf("Issue: %s: %w", ttl, ErrInvalidTTL)
	}
	now := c.now().Truncate(time.Second)
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(subject, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: kind,
		Role: string(role),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("Issue: %w", err)
	}
	return signed, nil
}

// Verify returns the token's claims, or one of ErrTokenMalformed,
// ErrTokenBadSignature or ErrTokenExpired.
func (c *Codec) Verify(token string) (*Claims, error) {
	parsed, err := c.parser.ParseWithClaims(token, &tokenClaims{}, c.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("Verify: %w", classify(err))
	}

	tc, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid || tc.IssuedAt == nil {
		return nil, fmt.Errorf("Verify: %w", ErrTokenMalformed)
	}

	subject, err := strconv.ParseInt(tc.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("Verify: subject: %w", ErrTokenMalformed)
	}
	if tc.Kind != KindAccess && tc.Kind != KindRefresh {
		return nil, fmt.Errorf("Verify: kind %q: %w", tc.Kind, ErrTokenMalformed)
	}
	role, err := domain.ParseRole(tc.Role)
	if err != nil {
		return nil, fmt.Errorf("Verify: %w", ErrTokenMalformed)
	}

	return &Claims{
		ID:        tc.ID,
		Subject:   subject,
		Role:      role,
		Kind:      tc.Kind,
		IssuedAt:  tc.IssuedAt.Time,
		ExpiresAt: tc.ExpiresAt.Time,
	}, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return c.secret, nil
}

// Signature checks run before claim validation, so an expired token with a
// forged signature reports ErrTokenBadSignature.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenMalformed
	}
}
