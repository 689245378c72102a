package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Algorithm is the only signing method accepted by Parse.
const Algorithm = "HS256"

var (
	ErrMalformed = errors.New("token: malformed")
	ErrSignature = errors.New("token: signature verification failed")
	ErrExpired   = errors.New("token: expired")
	ErrClaims    = errors.New("token: invalid claims")
	ErrNoSecret  = errors.New("token: signing secret is empty")
)

// Claims carries the subject under "id" alongside the registered claims.
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// Issuer signs credentials for a subject.
type Issuer struct {
	secret func() []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer builds an issuer. secret is consulted on every Issue call so
// that issuance and verification always agree on the current secret.
func NewIssuer(secret func() []byte, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: secret, ttl: ttl, now: time.Now}
}

// Issue returns a signed credential for subject.
func (i *Issuer) Issue(subject string) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrClaims)
	}
	key := i.secret()
	if len(key) == 0 {
		return "", ErrNoSecret
	}

	now := i.now()
	claims := Claims{
		UserID: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("token: failed to sign: %w", err)
	}
	return signed, nil
}

// Parse verifies raw against secret and returns its claims. Errors wrap
// exactly one of ErrMalformed, ErrSignature, ErrExpired or ErrClaims.
func Parse(raw string, secret []byte) (*Claims, error) {
	if len(secret) == 0 {
		return nil, ErrNoSecret
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(
		raw,
		&claims,
		func(t *jwt.Token) (any, error) {
			return secret, nil
		},
		jwt.WithValidMethods([]string{Algorithm}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, classify(err)
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrClaims)
	}
	return &claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrClaims, err)
	}
}
