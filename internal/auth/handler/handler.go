package handler

import (
	"context"
	"net/http"

	"prescripto-auth/internal/auth"
	"prescripto-auth/internal/auth/credentials"
	"prescripto-auth/internal/auth/resolver"
	"prescripto-auth/internal/logger"

	"github.com/gin-gonic/gin"
)

// CredentialService checks and records passwords.
type CredentialService interface {
	Register(ctx context.Context, reg credentials.Registration) (string, error)
	Authenticate(ctx context.Context, email string, password string) (string, error)
}

// TokenIssuer signs a credential for a verified subject.
type TokenIssuer interface {
	Issue(subject string) (string, error)
}

type Handler struct {
	credentials CredentialService
	issuer      TokenIssuer
	resolver    resolver.Resolver
}

func NewHandler(
	credentialService CredentialService,
	issuer TokenIssuer,
	resolver resolver.Resolver,
) *Handler {
	return &Handler{
		credentials: credentialService,
		issuer:      issuer,
		resolver:    resolver,
	}
}

// RegisterRoutes mounts the public user routes on r and the profile
// route on protected, which must already carry the verifier.
func (h *Handler) RegisterRoutes(r gin.IRouter, protected gin.IRouter) {
	r.POST("/api/user/register", h.Register)
	r.POST("/api/user/login", h.Login)
	protected.GET("/api/user/get-profile", h.Profile)
}

// issueToken writes the login/register success body. A signing failure
// is a deployment fault and is reported without credential language.
func (h *Handler) issueToken(c *gin.Context, status int, userID string) {
	signed, err := h.issuer.Issue(userID)
	if err != nil {
		logger.Error("token issuance failed", map[string]any{
			"error":   err.Error(),
			"user_id": userID,
		})
		c.JSON(http.StatusInternalServerError, auth.Response{Message: "Server configuration error"})
		return
	}

	c.JSON(status, auth.Response{Success: true, Token: signed})
}
