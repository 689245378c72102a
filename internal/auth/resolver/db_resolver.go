package resolver

import (
	"context"
	"database/sql"
	"errors"

	"prescripto-auth/internal/auth"
	"prescripto-auth/internal/db"

	"github.com/google/uuid"
)

// DBResolver resolves subjects using the users table.
type DBResolver struct {
	db *db.DB
}

func NewDBResolver(db *db.DB) *DBResolver {
	return &DBResolver{db: db}
}

func (r *DBResolver) Resolve(
	ctx context.Context,
	userID string,
) (*auth.Identity, error) {

	// subjects that are not uuids cannot name a row
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrNotFound
	}

	var ident auth.Identity
	err = r.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, address, gender, dob, image
		FROM users
		WHERE id = $1
	`, id).Scan(
		&ident.ID,
		&ident.Name,
		&ident.Email,
		&ident.Phone,
		&ident.Address,
		&ident.Gender,
		&ident.DOB,
		&ident.Image,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &ident, nil
}
