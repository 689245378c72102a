package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"prescripto-auth/internal/auth"
	"prescripto-auth/internal/logger"
	"prescripto-auth/internal/token"
)

const (
	msgMissing = "Not Authorized Login Again"
	msgInvalid = "Invalid or expired token. Please login again."
	msgConfig  = "Server configuration error"
)

// unexported, collision-proof context key
type userIDContextKeyType struct{}

var userIDKey = userIDContextKeyType{}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// WithUserID binds a verified subject into ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// AuthMiddleware verifies the credential on each request. It holds no
// per-request state and is safe for concurrent use.
type AuthMiddleware struct {
	secret  func() []byte
	metrics *Metrics
}

// NewAuthMiddleware builds a verifier. secret is read per request so a
// missing secret is reported as a configuration fault, not a bad token.
func NewAuthMiddleware(secret func() []byte, metrics *Metrics) *AuthMiddleware {
	return &AuthMiddleware{secret: secret, metrics: metrics}
}

// Verify classifies the request's credential without side effects
// beyond logging and metrics.
func (a *AuthMiddleware) Verify(r *http.Request) Outcome {
	out := a.verify(r)
	a.metrics.observe(out)
	return out
}

func (a *AuthMiddleware) verify(r *http.Request) Outcome {
	// 1. Read credential
	raw := r.Header.Get(auth.TokenHeader)
	if raw == "" {
		return RejectedMissing{}
	}

	// 2. Secret must be provisioned
	secret := a.secret()
	if len(secret) == 0 {
		return RejectedConfig{}
	}

	// 3. Signature, structure and expiry
	claims, err := token.Parse(raw, secret)
	if err != nil {
		return RejectedInvalid{Reason: reasonFor(err), Err: err}
	}

	return Accepted{Subject: claims.UserID}
}

func reasonFor(err error) Reason {
	switch {
	case errors.Is(err, token.ErrMalformed):
		return ReasonMalformed
	case errors.Is(err, token.ErrExpired):
		return ReasonExpired
	case errors.Is(err, token.ErrSignature):
		return ReasonSignature
	default:
		return ReasonClaims
	}
}

func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch out := a.Verify(r).(type) {
		case Accepted:
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), out.Subject)))

		case RejectedMissing:
			logger.Warn("auth rejected", map[string]any{
				"outcome": out.Label(),
				"path":    r.URL.Path,
			})
			writeJSON(w, http.StatusUnauthorized, auth.Response{Message: msgMissing})

		case RejectedInvalid:
			logger.Warn("auth rejected", map[string]any{
				"outcome": out.Label(),
				"reason":  string(out.Reason),
				"error":   out.Err.Error(),
				"path":    r.URL.Path,
			})
			writeJSON(w, http.StatusUnauthorized, auth.Response{
				Message: msgInvalid,
				Code:    auth.CodeInvalidToken,
			})

		case RejectedConfig:
			logger.Error("JWT_SECRET is not defined; set it in the server environment", map[string]any{
				"outcome": out.Label(),
				"path":    r.URL.Path,
			})
			writeJSON(w, http.StatusInternalServerError, auth.Response{Message: msgConfig})
		}
	})
}

func writeJSON(w http.ResponseWriter, status int, body auth.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
