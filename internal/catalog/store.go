package catalog

import (
	"context"

	"prescripto-auth/internal/db"
)

// Store lists catalog entries.
type Store interface {
	List(ctx context.Context) ([]Doctor, error)
}

// DBStore reads the doctors table.
type DBStore struct {
	db *db.DB
}

func NewDBStore(db *db.DB) *DBStore {
	return &DBStore{db: db}
}

func (s *DBStore) List(ctx context.Context) ([]Doctor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, speciality, degree, experience, about, fees, image, available
		FROM doctors
		ORDER BY created_at, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	doctors := make([]Doctor, 0)
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(
			&d.ID,
			&d.Name,
			&d.Speciality,
			&d.Degree,
			&d.Experience,
			&d.About,
			&d.Fees,
			&d.Image,
			&d.Available,
		); err != nil {
			return nil, err
		}
		doctors = append(doctors, d)
	}

	return doctors, rows.Err()
}
