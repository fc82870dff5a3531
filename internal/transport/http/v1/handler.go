// Package v1 provides the JSON API of the widget server.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/chatwidget/internal/service"
)

// Handler handles HTTP requests for one session.
type Handler struct {
	service   *service.Service
	sessionID string
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, sessionID string) *Handler {
	return &Handler{
		service:   svc,
		sessionID: sessionID,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/v1/messages", h.ListMessages)
	e.POST("/v1/messages", h.SendMessage)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"session_id": h.sessionID,
		"busy":       h.service.Busy(),
		"messages":   h.service.Store().Len(),
	})
}
