package credentials

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	HashVersionBcrypt = "bcrypt"

	MinPasswordLength = 8
)

var ErrPasswordTooShort = errors.New("password too short")

// Hasher hashes and checks passwords. Cost is the bcrypt work factor;
// tests lower it to bcrypt.MinCost.
type Hasher struct {
	Cost int
}

func DefaultHasher() Hasher {
	return Hasher{Cost: bcrypt.DefaultCost}
}

// Hash returns the bcrypt hash of password and the scheme version tag.
func (h Hasher) Hash(password string) (hash string, version string, err error) {
	if len(password) < MinPasswordLength {
		return "", "", ErrPasswordTooShort
	}

	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", "", err
	}

	return string(bytes), HashVersionBcrypt, nil
}

// Verify reports whether password matches hash.
func (h Hasher) Verify(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
