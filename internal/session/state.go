package session

import "prescripto-auth/internal/auth"

// Status is the client's authentication state.
type Status int

const (
	// LoggedOut: no credential.
	LoggedOut Status = iota
	// Authenticating: credential present, resolution in flight.
	Authenticating
	// Authenticated: credential present, identity resolved.
	Authenticated
	// Degraded: credential retained, identity unresolved because the
	// last attempt could not reach the server or was refused for a
	// reason other than an invalid credential.
	Degraded
)

func (s Status) String() string {
	switch s {
	case LoggedOut:
		return "logged_out"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Degraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Classification records why the most recent attempt failed.
type Classification int

const (
	ClassNone Classification = iota
	ClassInvalid
	ClassUnreachable
	ClassRejected
)

func (c Classification) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassInvalid:
		return "invalid"
	case ClassUnreachable:
		return "unreachable"
	case ClassRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable copy of the session state. Identity is nil
// unless Status is Authenticated.
type Snapshot struct {
	Status         Status
	Token          string
	Identity       *auth.Identity
	Classification Classification
}

// HasCredential reports whether a credential is held.
func (s Snapshot) HasCredential() bool {
	return s.Token != ""
}
