package catalog

import (
	"net/http"

	"prescripto-auth/internal/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/api/doctor/list", h.List)
}

func (h *Handler) List(c *gin.Context) {
	doctors, err := h.store.List(c.Request.Context())
	if err != nil {
		logger.Error("doctor list failed", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, ListResponse{
			Message: "Failed to load doctors",
			Doctors: []Doctor{},
		})
		return
	}

	c.JSON(http.StatusOK, ListResponse{Success: true, Doctors: doctors})
}
