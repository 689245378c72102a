package handler

import (
	"errors"
	"net/http"

	"prescripto-auth/internal/auth"
	"prescripto-auth/internal/auth/credentials"
	"prescripto-auth/internal/logger"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, auth.Response{Message: "invalid request"})
		return
	}

	userID, err := h.credentials.Register(
		c.Request.Context(),
		credentials.Registration{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
		},
	)

	if err != nil {
		switch {
		case errors.Is(err, credentials.ErrAlreadyRegistered):
			c.JSON(http.StatusConflict, auth.Response{Message: "User already exists"})
		case errors.Is(err, credentials.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, auth.Response{Message: "Missing or invalid details"})
		case errors.Is(err, credentials.ErrPasswordTooShort):
			c.JSON(http.StatusBadRequest, auth.Response{Message: "Please enter a strong password"})
		default:
			logger.Error("registration failed", map[string]any{
				"error": err.Error(),
			})
			c.JSON(http.StatusInternalServerError, auth.Response{Message: "Registration failed"})
		}
		return
	}

	h.issueToken(c, http.StatusCreated, userID)
}
