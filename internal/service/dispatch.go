package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/xiaot623/gogo/chatwidget/internal/adapter/webhook"
	"github.com/xiaot623/gogo/chatwidget/internal/domain"
	"github.com/xiaot623/gogo/chatwidget/internal/metrics"
	"github.com/xiaot623/gogo/chatwidget/internal/reply"
)

var (
	// ErrEmptyInput is returned for blank input. Nothing is appended and no
	// call is made.
	ErrEmptyInput = errors.New("input is empty")

	// ErrBusy is returned while another call of the session is outstanding.
	ErrBusy = errors.New("a message is already being sent")
)

// ErrorPrefix starts the text of every error entry.
const ErrorPrefix = "Error: Could not connect to the AI. "

// maxLoggedBody caps how much of an unrecognized body is logged.
const maxLoggedBody = 2048

// Turn is a dispatch that has been accepted: the user's message is already in
// the conversation and the gate is held until Resolve returns.
type Turn struct {
	svc       *Service
	sessionID string
	Outbound  domain.Message

	once sync.Once
}

// Dispatch sends input for sessionID and returns the resulting inbound
// message. Only ErrEmptyInput and ErrBusy are returned as errors; transport
// and parse failures become conversation entries.
func (s *Service) Dispatch(ctx context.Context, sessionID, input string) (domain.Message, error) {
	turn, err := s.Begin(sessionID, input)
	if err != nil {
		return domain.Message{}, err
	}
	return turn.Resolve(ctx), nil
}

// Begin validates input, takes the gate and appends the outbound message. It
// does not touch the network, so views can clear their input and show the
// busy state before calling Resolve.
func (s *Service) Begin(sessionID, input string) (*Turn, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		s.metrics.DispatchTotal.WithLabelValues(metrics.OutcomeRejectedEmpty).Inc()
		return nil, ErrEmptyInput
	}
	if !s.gate.TryAcquire() {
		s.metrics.DispatchTotal.WithLabelValues(metrics.OutcomeRejectedBusy).Inc()
		return nil, ErrBusy
	}

	out := domain.NewMessage(text, domain.DirectionOutbound, domain.StatusNormal, s.now())
	s.store.Append(out)

	return &Turn{svc: s, sessionID: sessionID, Outbound: out}, nil
}

// Resolve performs the webhook call, appends exactly one inbound message and
// releases the gate. It recovers from panics so the gate can never stay held.
// Calling Resolve more than once returns a zero Message.
func (t *Turn) Resolve(ctx context.Context) (msg domain.Message) {
	first := false
	t.once.Do(func() { first = true })
	if !first {
		return domain.Message{}
	}

	s := t.svc
	defer s.gate.Release()

	appended := false
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Interface("panic", r).
				Str("session_id", t.sessionID).
				Msg("dispatch panicked")
			if appended {
				return
			}
			msg = s.errorMessage(fmt.Errorf("%v", r))
			s.store.Append(msg)
		}
	}()

	start := time.Now()
	body, err := s.sender.Send(ctx, &webhook.SendRequest{
		Text:      t.Outbound.Text,
		UserID:    s.userID,
		SessionID: t.sessionID,
	})
	s.metrics.DispatchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		s.logger.Error().
			Err(err).
			Str("session_id", t.sessionID).
			Msg("error sending message to webhook")
		s.metrics.DispatchTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		msg = s.errorMessage(err)
		s.store.Append(msg)
		appended = true
		return msg
	}

	s.logger.Debug().
		Str("session_id", t.sessionID).
		Str("body", truncate(body, maxLoggedBody)).
		Msg("raw response from webhook")

	result := reply.NormalizeWith(s.rules, body)
	if !result.Recognized() {
		s.logger.Warn().
			Str("session_id", t.sessionID).
			Str("body", truncate(body, maxLoggedBody)).
			Msg("unknown response format")
	}
	s.metrics.ReplyShapeTotal.WithLabelValues(string(result.Shape)).Inc()
	s.metrics.DispatchTotal.WithLabelValues(metrics.OutcomeReplied).Inc()

	msg = domain.NewMessage(result.Text, domain.DirectionInbound, domain.StatusNormal, s.now())
	s.store.Append(msg)
	appended = true
	return msg
}

func (s *Service) errorMessage(err error) domain.Message {
	return domain.NewMessage(ErrorPrefix+err.Error(), domain.DirectionInbound, domain.StatusError, s.now())
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
