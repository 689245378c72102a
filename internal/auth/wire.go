package auth

// TokenHeader is the request header carrying the credential.
const TokenHeader = "token"

// CodeInvalidToken tags a rejection whose credential must be discarded.
// It is the only machine-readable signal a client may clear a stored
// credential on.
const CodeInvalidToken = "INVALID_TOKEN"

// Response is the JSON envelope shared by every API endpoint.
type Response struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message,omitempty"`
	Code     string    `json:"code,omitempty"`
	Token    string    `json:"token,omitempty"`
	UserData *Identity `json:"userData,omitempty"`
}
