package handler

import (
	"errors"
	"net/http"

	"prescripto-auth/internal/auth"
	"prescripto-auth/internal/auth/credentials"
	"prescripto-auth/internal/logger"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, auth.Response{Message: "invalid request"})
		return
	}

	userID, err := h.credentials.Authenticate(
		c.Request.Context(),
		req.Email,
		req.Password,
	)

	if err != nil {
		if errors.Is(err, credentials.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, auth.Response{Message: "Invalid credentials"})
			return
		}
		logger.Error("login failed", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, auth.Response{Message: "Login failed"})
		return
	}

	logger.Info("login success", map[string]any{
		"user_id": userID,
		"ip":      c.ClientIP(),
	})

	h.issueToken(c, http.StatusOK, userID)
}
