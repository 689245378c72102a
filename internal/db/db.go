package db

import "database/sql"

// DB is the shared postgres handle used by the stores.
type DB struct {
	*sql.DB
}
