package credentials

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"strings"

	"prescripto-auth/internal/db"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyRegistered  = errors.New("credentials already exist")
	ErrInvalidInput       = errors.New("missing or invalid details")
)

// a valid bcrypt hash of a random string, compared against when the
// email is unknown so lookups of missing users cost the same
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3YzYy3rQ5ZfTxNpHh1xk7e."

type Service struct {
	db     *db.DB
	hasher Hasher
}

func NewService(db *db.DB, hasher Hasher) *Service {
	return &Service{db: db, hasher: hasher}
}

// Register creates a user with a password credential and returns the
// new user id.
func (s *Service) Register(ctx context.Context, reg Registration) (string, error) {
	name := strings.TrimSpace(reg.Name)
	email := strings.TrimSpace(reg.Email)
	if name == "" || email == "" {
		return "", ErrInvalidInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidInput
	}

	// 1. Hash first; a weak password never touches the database
	hash, version, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	// 2. Email must be unused
	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users WHERE LOWER(email) = LOWER($1)
		)
	`, email).Scan(&exists)
	if err != nil {
		return "", err
	}
	if exists {
		return "", ErrAlreadyRegistered
	}

	// 3. Create user
	var userID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (name, email)
		VALUES ($1, $2)
		RETURNING id
	`, name, email).Scan(&userID)
	if err != nil {
		return "", err
	}

	// 4. Insert credentials
	_, err = tx.ExecContext(ctx, `
		INSERT INTO credentials (user_id, password_hash, hash_version)
		VALUES ($1, $2, $3)
	`, userID, hash, version)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	return userID.String(), nil
}

// Authenticate returns the user id for a matching email and password.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Authenticate(
	ctx context.Context,
	email string,
	password string,
) (string, error) {

	var (
		userID       uuid.UUID
		passwordHash string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, c.password_hash
		FROM users u
		JOIN credentials c ON c.user_id = u.id
		WHERE LOWER(u.email) = LOWER($1)
	`, strings.TrimSpace(email)).Scan(&userID, &passwordHash)

	if errors.Is(err, sql.ErrNoRows) {
		// hide whether user exists or not
		s.hasher.Verify(dummyHash, password)
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if !s.hasher.Verify(passwordHash, password) {
		return "", ErrInvalidCredentials
	}

	return userID.String(), nil
}
