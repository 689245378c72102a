package handler

import (
	"errors"
	"net/http"

	"prescripto-auth/internal/auth"
	"prescripto-auth/internal/auth/resolver"
	"prescripto-auth/internal/logger"
	"prescripto-auth/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Profile returns the identity of the verified subject. It relies on
// the verifier having bound the subject; it never reads the token.
func (h *Handler) Profile(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		// route mounted without the verifier
		logger.Error("profile route reached without verified subject", nil)
		c.JSON(http.StatusInternalServerError, auth.Response{Message: "Server configuration error"})
		return
	}

	ident, err := h.resolver.Resolve(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, resolver.ErrNotFound) {
			c.JSON(http.StatusNotFound, auth.Response{Message: "User not found"})
			return
		}
		logger.Error("profile lookup failed", map[string]any{
			"error":   err.Error(),
			"user_id": userID,
		})
		c.JSON(http.StatusInternalServerError, auth.Response{Message: "Failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, auth.Response{Success: true, UserData: ident})
}
