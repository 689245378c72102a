package resolver

import (
	"context"
	"errors"

	"prescripto-auth/internal/auth"
)

// ErrNotFound is returned when a verified subject has no user record,
// e.g. the account was deleted after the token was issued.
var ErrNotFound = errors.New("user not found")

// Resolver maps a verified subject to its profile. It is the only place
// where subject-to-profile lookup lives; callers never re-parse tokens.
type Resolver interface {
	Resolve(ctx context.Context, userID string) (*auth.Identity, error)
}
