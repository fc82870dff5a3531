package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/chatwidget/internal/adapter/webhook"
	"github.com/xiaot623/gogo/chatwidget/internal/conversation"
	"github.com/xiaot623/gogo/chatwidget/internal/domain"
	"github.com/xiaot623/gogo/chatwidget/internal/metrics"
	"github.com/xiaot623/gogo/chatwidget/internal/reply"
)

type senderFunc func(ctx context.Context, req *webhook.SendRequest) (string, error)

func (f senderFunc) Send(ctx context.Context, req *webhook.SendRequest) (string, error) {
	return f(ctx, req)
}

func fixedClock() time.Time {
	return time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
}

func newTestService(t *testing.T, sender Sender) *Service {
	t.Helper()
	return New(conversation.NewStore(), sender, "user-123", WithClock(fixedClock))
}

func TestDispatchReply(t *testing.T) {
	svc := newTestService(t, senderFunc(func(ctx context.Context, req *webhook.SendRequest) (string, error) {
		return `{"text":"A","output":"B"}`, nil
	}))

	msg, err := svc.Dispatch(context.Background(), "session-1", "  hello  ")
	require.NoError(t, err)

	assert.Equal(t, "A", msg.Text)
	assert.Equal(t, domain.DirectionInbound, msg.Direction)
	assert.Equal(t, domain.StatusNormal, msg.Status)
	assert.Equal(t, "15:04", msg.TimestampDisplay)

	snap := svc.Store().Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "hello", snap[0].Text)
	assert.Equal(t, domain.DirectionOutbound, snap[0].Direction)
	assert.Equal(t, msg, snap[1])
	assert.False(t, svc.Busy())
}

func TestDispatchAppendsOutboundBeforeCallResolves(t *testing.T) {
	var svc *Service
	var seenDuringCall []domain.Message
	svc = newTestService(t, senderFunc(func(ctx context.Context, req *webhook.SendRequest) (string, error) {
		seenDuringCall = svc.Store().Snapshot()
		assert.True(t, svc.Busy())
		return `"ok"`, nil
	}))

	_, err := svc.Dispatch(context.Background(), "session-1", "hi")
	require.NoError(t, err)

	require.Len(t, seenDuringCall, 1)
	assert.Equal(t, "hi", seenDuringCall[0].Text)
	assert.True(t, seenDuringCall[0].Outbound())
}

func TestDispatchEmptyInputIsNoop(t *testing.T) {
	called := false
	svc := newTestService(t, senderFunc(func(ctx context.Context, req *webhook.SendRequest) (string, error) {
		called = true
		return "", nil
	}))

	for _, input := range []string{"", "   ", "\n\t"} {
		_, err := svc.Dispatch(context.Background(), "session-1", input)
		assert.ErrorIs(t, err, ErrEmptyInput)
	}

	assert.False(t, called)
	assert.Equal(t, 0, svc.Store().Len())
	assert.False(t, svc.Busy())
}

func TestDispatchRejectsWhileBusy(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	svc := newTestService(t, senderFunc(func(ctx context.Context, req *webhook.SendRequest) (string, error) {
		if req.Text == "first" {
			close(entered)
			<-release
		}
		return `"done"`, nil
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.Dispatch(context.Background(), "session-1", "first")
		assert.NoError(t, err)
	}()

	<-entered
	assert.True(t, svc.Busy())

	_, err := svc.Dispatch(context.Background(), "session-1", "second")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 1, svc.Store().Len())

	close(release)
	wg.Wait()
	assert.False(t, svc.Busy())
	assert.Equal(t, 2, svc.Store().Len())

	msg, err := svc.Dispatch(context.Background(), "session-1", "third")
	require.NoError(t, err)
	assert.Equal(t, "done", msg.Text)
	assert.Equal(t, 4, svc.Store().Len())
}

func TestDispatchTransportFailure(t *testing.T) {
	svc := newTestService(t, senderFunc(func(ctx context.Context, req *webhook.SendRequest) (string, error) {
		return "", errors.New("connection refused")
	}))

	msg, err := svc.Dispatch(context.Background(), "session-1", "hello")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusError, msg.Status)
	assert.Equal(t, domain.DirectionInbound, msg.Direction)
	assert.Equal(t, ErrorPrefix+"connection refused", msg.Text)
	assert.False(t, svc.Busy())

	snap := svc.Store().Snapshot()
	require.Len(t, snap, 2)
	errorCount := 0
	for _, m := range snap {
		if m.IsError() {
			errorCount++
		}
	}
	assert.Equal(t, 1, errorCount)
}

func TestDispatchStatusFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := newTestService(t, webhook.NewClient(server.URL, time.Second))
	msg, err := svc.Dispatch(context.Background(), "session-1", "hello")
	require.NoError(t, err)

	assert.True(t, msg.IsError())
	assert.Contains(t, msg.Text, "500 Internal Server Error")
	assert.False(t, svc.Busy())
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	svc := newTestService(t, senderFunc(func(ctx context.Context, req *webhook.SendRequest) (string, error) {
		panic("boom")
	}))

	msg, err := svc.Dispatch(context.Background(), "session-1", "hello")
	require.NoError(t, err)

	assert.True(t, msg.IsError())
	assert.Contains(t, msg.Text, "boom")
	assert.False(t, svc.Busy())
	assert.Equal(t, 2, svc.Store().Len())
}

func TestDispatchSessionIDStable(t *testing.T) {
	var mu sync.Mutex
	var sessions []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req webhook.SendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		mu.Lock()
		sessions = append(sessions, req.SessionID)
		mu.Unlock()
		fmt.Fprintf(w, `{"output":"echo: %s"}`, req.Text)
	}))
	defer server.Close()

	svc := newTestService(t, webhook.NewClient(server.URL, time.Second))
	sessionID := domain.NewSessionID()

	_, err := svc.Dispatch(context.Background(), sessionID, "one")
	require.NoError(t, err)
	_, err = svc.Dispatch(context.Background(), sessionID, "two")
	require.NoError(t, err)

	require.Len(t, sessions, 2)
	assert.Equal(t, sessions[0], sessions[1])
	assert.Equal(t, sessionID, sessions[0])
}

func TestDispatchSendsUserID(t *testing.T) {
	var got *webhook.SendRequest
	svc := newTestService(t, senderFunc(func(ctx context.Context, req *webhook.SendRequest) (string, error) {
		got = req
		return "plain reply", nil
	}))

	msg, err := svc.Dispatch(context.Background(), "session-1", "hello")
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "user-123", got.UserID)
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, "plain reply", msg.Text)
}

func TestDispatchPlaceholderForEmptyBody(t *testing.T) {
	svc := newTestService(t, senderFunc(func(ctx context.Context, req *webhook.SendRequest) (string, error) {
		return "", nil
	}))

	msg, err := svc.Dispatch(context.Background(), "session-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, reply.Placeholder, msg.Text)
	assert.Equal(t, domain.StatusNormal, msg.Status)
}

func TestBeginResolve(t *testing.T) {
	svc := newTestService(t, senderFunc(func(ctx context.Context, req *webhook.SendRequest) (string, error) {
		return `{"message":"later"}`, nil
	}))

	turn, err := svc.Begin("session-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", turn.Outbound.Text)
	assert.True(t, svc.Busy())
	assert.Equal(t, 1, svc.Store().Len())

	msg := turn.Resolve(context.Background())
	assert.Equal(t, "later", msg.Text)
	assert.False(t, svc.Busy())

	// A second Resolve is a no-op and does not release the gate twice.
	assert.Equal(t, domain.Message{}, turn.Resolve(context.Background()))
	assert.Equal(t, 2, svc.Store().Len())
}

func TestDispatchMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := New(conversation.NewStore(), senderFunc(func(ctx context.Context, req *webhook.SendRequest) (string, error) {
		if req.Text == "fail" {
			return "", errors.New("down")
		}
		return `{"foo":"bar"}`, nil
	}), "user-123", WithMetrics(m))

	_, _ = svc.Dispatch(context.Background(), "s", "hi")
	_, _ = svc.Dispatch(context.Background(), "s", "fail")
	_, _ = svc.Dispatch(context.Background(), "s", " ")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchTotal.WithLabelValues(metrics.OutcomeReplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchTotal.WithLabelValues(metrics.OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchTotal.WithLabelValues(metrics.OutcomeRejectedEmpty)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReplyShapeTotal.WithLabelValues(string(reply.ShapeUnrecognized))))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Busy))
}

// warnLines returns the decoded warn-level entries written to buf.
func warnLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry))
		if entry["level"] == "warn" {
			out = append(out, entry)
		}
	}
	return out
}

func TestDispatchLogsUnknownResponseFormat(t *testing.T) {
	var buf bytes.Buffer
	svc := New(conversation.NewStore(), senderFunc(func(ctx context.Context, req *webhook.SendRequest) (string, error) {
		return `{"foo":"bar"}`, nil
	}), "user-123", WithClock(fixedClock), WithLogger(zerolog.New(&buf)))

	msg, err := svc.Dispatch(context.Background(), "session-1", "hi")
	require.NoError(t, err)
	assert.Equal(t, reply.Placeholder, msg.Text)
	assert.Equal(t, domain.StatusNormal, msg.Status)

	warns := warnLines(t, &buf)
	require.Len(t, warns, 1)
	assert.Equal(t, "unknown response format", warns[0]["message"])
	assert.Equal(t, `{"foo":"bar"}`, warns[0]["body"])
	assert.Equal(t, "session-1", warns[0]["session_id"])
}

func TestDispatchRecognizedShapeDoesNotWarn(t *testing.T) {
	var buf bytes.Buffer
	svc := New(conversation.NewStore(), senderFunc(func(ctx context.Context, req *webhook.SendRequest) (string, error) {
		return `{"output":"fine"}`, nil
	}), "user-123", WithClock(fixedClock), WithLogger(zerolog.New(&buf)))

	msg, err := svc.Dispatch(context.Background(), "session-1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "fine", msg.Text)
	assert.Empty(t, warnLines(t, &buf))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))

	// "é" is two bytes; cutting at 2 would split it.
	got := truncate("aéb", 2)
	assert.Equal(t, "a...", got)
	assert.True(t, utf8.ValidString(got))

	long := strings.Repeat("日本", 1000)
	assert.True(t, utf8.ValidString(truncate(long, maxLoggedBody)))
}
