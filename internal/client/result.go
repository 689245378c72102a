package client

import (
	"errors"
	"fmt"

	"prescripto-auth/internal/auth"
)

const (
	CodeTransportUnavailable = "TRANSPORT_UNAVAILABLE"
	CodeUpstreamRejected     = "UPSTREAM_REJECTED"
)

// Result is the outcome of an authenticated read. The set is closed:
// Resolved, Invalid, Unavailable and Rejected. The three failure
// variants also implement error so that plain calls can return them.
type Result interface {
	result()
}

// Resolved carries the identity returned by a successful profile read.
type Resolved struct {
	Identity *auth.Identity
}

// Invalid means the server explicitly rejected the credential with
// auth.CodeInvalidToken. Only this variant justifies clearing it.
type Invalid struct {
	Message string
}

// Unavailable means the server could not be reached or did not answer
// in time. The credential may still be good.
type Unavailable struct {
	Err error
}

// Rejected is any other negative answer. Message is the server's text.
type Rejected struct {
	Status  int
	Message string
}

func (Resolved) result()    {}
func (Invalid) result()     {}
func (Unavailable) result() {}
func (Rejected) result()    {}

func (e Invalid) Error() string { return "credential rejected: " + e.Message }

func (e Unavailable) Error() string {
	if e.Err == nil {
		return "server unavailable"
	}
	return "server unavailable: " + e.Err.Error()
}

func (e Unavailable) Unwrap() error { return e.Err }

func (e Rejected) Error() string {
	return fmt.Sprintf("request rejected (%d): %s", e.Status, e.Message)
}

// Classify maps an error returned by a Client call to its Result. Errors
// the client did not produce are treated as Unavailable, never Invalid.
func Classify(err error) Result {
	if err == nil {
		return nil
	}

	var invalid Invalid
	if errors.As(err, &invalid) {
		return invalid
	}
	var rejected Rejected
	if errors.As(err, &rejected) {
		return rejected
	}
	var unavailable Unavailable
	if errors.As(err, &unavailable) {
		return unavailable
	}
	return Unavailable{Err: err}
}
