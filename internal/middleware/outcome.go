package middleware

// Outcome is the result of verifying one request. The set of
// implementations is closed: Accepted, RejectedMissing, RejectedInvalid
// and RejectedConfig.
type Outcome interface {
	outcome()
	// Label is a stable, low-cardinality name used for logs and metrics.
	Label() string
}

// Accepted carries the subject embedded in a valid credential.
type Accepted struct {
	Subject string
}

// RejectedMissing means the request carried no credential.
type RejectedMissing struct{}

// RejectedInvalid covers malformed, wrongly signed and expired
// credentials. Reason is for server-side diagnostics only.
type RejectedInvalid struct {
	Reason Reason
	Err    error
}

// RejectedConfig means the signing secret is not provisioned.
type RejectedConfig struct{}

func (Accepted) outcome()        {}
func (RejectedMissing) outcome() {}
func (RejectedInvalid) outcome() {}
func (RejectedConfig) outcome()  {}

func (Accepted) Label() string        { return "accepted" }
func (RejectedMissing) Label() string { return "missing" }
func (RejectedInvalid) Label() string { return "invalid" }
func (RejectedConfig) Label() string  { return "config" }

type Reason string

const (
	ReasonMalformed Reason = "malformed"
	ReasonSignature Reason = "signature"
	ReasonExpired   Reason = "expired"
	ReasonClaims    Reason = "claims"
)
