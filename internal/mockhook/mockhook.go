// Package mockhook imitates a chat-trigger webhook for local development.
// Every reply shape the widget understands can be produced on demand.
package mockhook

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

// Mode selects the shape of the reply.
type Mode string

const (
	ModeText     Mode = "text"
	ModeOutput   Mode = "output"
	ModeMessage  Mode = "message"
	ModeResponse Mode = "response"
	ModeString   Mode = "string"
	ModeRaw      Mode = "raw"
	ModeEmpty    Mode = "empty"
	ModeUnknown  Mode = "unknown"
	ModeError    Mode = "error"
)

// Modes lists every supported mode.
var Modes = []Mode{
	ModeText, ModeOutput, ModeMessage, ModeResponse,
	ModeString, ModeRaw, ModeEmpty, ModeUnknown, ModeError,
}

// ParseMode validates s.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == strings.ToLower(strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// ChatRequest is the body the widget posts.
type ChatRequest struct {
	Text      string `json:"text"`
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

// Handler answers webhook calls.
type Handler struct {
	mode  Mode
	delay time.Duration
}

// NewHandler creates a handler replying in mode after delay.
func NewHandler(mode Mode, delay time.Duration) *Handler {
	return &Handler{mode: mode, delay: delay}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhook/chat", h.Chat)
	e.GET("/health", h.Health)
}

// NewServer creates the mock webhook server.
func NewServer(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	h.RegisterRoutes(e)
	return e
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
		"mode":   string(h.mode),
	})
}

// Chat echoes the user's text in the configured shape. A "mode" query
// parameter overrides the configured mode for one call.
// POST /webhook/chat
func (h *Handler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	mode := h.mode
	if q := c.QueryParam("mode"); q != "" {
		m, err := ParseMode(q)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		mode = m
	}

	log.Info().
		Str("session_id", req.SessionID).
		Str("user_id", req.UserID).
		Str("mode", string(mode)).
		Msg("webhook called")

	if h.delay > 0 {
		select {
		case <-time.After(h.delay):
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		}
	}

	reply := "You said: " + req.Text
	switch mode {
	case ModeText, ModeOutput, ModeMessage, ModeResponse:
		return c.JSON(http.StatusOK, map[string]string{string(mode): reply})
	case ModeString:
		return c.JSON(http.StatusOK, reply)
	case ModeRaw:
		return c.String(http.StatusOK, reply)
	case ModeEmpty:
		return c.NoContent(http.StatusOK)
	case ModeUnknown:
		return c.JSON(http.StatusOK, map[string]string{"foo": "bar"})
	case ModeError:
		return c.String(http.StatusInternalServerError, "workflow failed")
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "unhandled mode"})
}
