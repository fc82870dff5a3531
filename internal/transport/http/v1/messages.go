package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/gogo/chatwidget/internal/domain"
	"github.com/xiaot623/gogo/chatwidget/internal/render"
	"github.com/xiaot623/gogo/chatwidget/internal/service"
)

// MessageView is a conversation entry as served to the browser. Inbound
// non-error entries carry their markdown rendered as HTML.
type MessageView struct {
	domain.Message
	HTML string `json:"html,omitempty"`
}

func newMessageView(msg domain.Message) MessageView {
	v := MessageView{Message: msg}
	if !msg.Outbound() && !msg.IsError() {
		v.HTML = render.HTML(msg.Text)
	}
	return v
}

// SendMessageRequest is the request body for POST /v1/messages.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// ListMessages returns the conversation and the busy flag.
// GET /v1/messages
func (h *Handler) ListMessages(c echo.Context) error {
	snapshot := h.service.Store().Snapshot()
	views := make([]MessageView, len(snapshot))
	for i, msg := range snapshot {
		views[i] = newMessageView(msg)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"session_id": h.sessionID,
		"messages":   views,
		"busy":       h.service.Busy(),
	})
}

// SendMessage dispatches one user message and returns the resulting entry.
// Transport failures are entries too, so they are answered with 200.
// POST /v1/messages
func (h *Handler) SendMessage(c echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	// The webhook call is never cancelled once started, even if the
	// browser goes away.
	ctx := context.WithoutCancel(c.Request().Context())

	msg, err := h.service.Dispatch(ctx, h.sessionID, req.Text)
	switch {
	case errors.Is(err, service.ErrEmptyInput):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "text is required"})
	case errors.Is(err, service.ErrBusy):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case err != nil:
		log.Error().Err(err).Msg("dispatch failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":      true,
		"message": newMessageView(msg),
	})
}
