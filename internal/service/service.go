// Package service implements the dispatch routine: one user utterance in, one
// webhook round trip, one resulting conversation entry out.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/gogo/chatwidget/internal/adapter/webhook"
	"github.com/xiaot623/gogo/chatwidget/internal/conversation"
	"github.com/xiaot623/gogo/chatwidget/internal/metrics"
	"github.com/xiaot623/gogo/chatwidget/internal/reply"
)

// Sender delivers one user turn to the remote service and returns the raw
// response body.
type Sender interface {
	Send(ctx context.Context, req *webhook.SendRequest) (string, error)
}

type Service struct {
	store   *conversation.Store
	sender  Sender
	userID  string
	gate    *Gate
	rules   []reply.Rule
	metrics *metrics.Metrics
	now     func() time.Time
	logger  zerolog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger overrides the diagnostic logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithRules replaces the reply extraction rules.
func WithRules(rules []reply.Rule) Option {
	return func(s *Service) { s.rules = rules }
}

func New(store *conversation.Store, sender Sender, userID string, opts ...Option) *Service {
	s := &Service{
		store:   store,
		sender:  sender,
		userID:  userID,
		gate:    NewGate(),
		rules:   reply.DefaultRules,
		metrics: metrics.New(nil),
		now:     time.Now,
		logger:  log.With().Str("component", "dispatch").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.gate.OnChange(func(busy bool) {
		if busy {
			s.metrics.Busy.Set(1)
		} else {
			s.metrics.Busy.Set(0)
		}
	})
	return s
}

// Store returns the conversation the service appends to.
func (s *Service) Store() *conversation.Store {
	return s.store
}

// Busy reports whether a webhook call is outstanding.
func (s *Service) Busy() bool {
	return s.gate.Busy()
}

// OnBusyChange registers fn to run after every busy transition.
func (s *Service) OnBusyChange(fn func(busy bool)) {
	s.gate.OnChange(fn)
}
