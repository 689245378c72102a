package credentials

import "time"

// Credential is the stored password record of a user.
type Credential struct {
	ID           string
	UserID       string
	PasswordHash string
	HashVersion  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Registration is the input to Service.Register.
type Registration struct {
	Name     string
	Email    string
	Password string
}
