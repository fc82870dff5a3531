package cmds

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/chatwidget/internal/mockhook"
	"github.com/xiaot623/gogo/chatwidget/internal/service"
)

func runRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.Execute()
	return out.String(), err
}

func startMock(t *testing.T, mode mockhook.Mode) string {
	t.Helper()
	ts := httptest.NewServer(mockhook.NewServer(mockhook.NewHandler(mode, 0)))
	t.Cleanup(ts.Close)
	return ts.URL + "/webhook/chat"
}

func TestSendPrintsReply(t *testing.T) {
	url := startMock(t, mockhook.ModeOutput)

	out, err := runRoot(t, "", "send", "--webhook-url", url, "--log-level", "error", "hello", "there")
	require.NoError(t, err)
	assert.Equal(t, "You said: hello there\n", out)
}

func TestSendFailsOnErrorReply(t *testing.T) {
	url := startMock(t, mockhook.ModeError)

	out, err := runRoot(t, "", "send", "--webhook-url", url, "--log-level", "error", "hello")
	require.ErrorIs(t, err, ErrReplyFailed)
	assert.True(t, strings.HasPrefix(out, service.ErrorPrefix))
}

func TestSendRejectsEmptyText(t *testing.T) {
	url := startMock(t, mockhook.ModeText)

	_, err := runRoot(t, "", "send", "--webhook-url", url, "--log-level", "error", "   ")
	require.ErrorIs(t, err, service.ErrEmptyInput)
}

func TestInvalidWebhookURL(t *testing.T) {
	_, err := runRoot(t, "", "send", "--webhook-url", "not a url", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestChatPlainMode(t *testing.T) {
	t.Setenv("CHATWIDGET_MARKDOWN", "false")
	url := startMock(t, mockhook.ModeMessage)

	out, err := runRoot(t, "first\n/quit\n", "chat", "--plain", "--webhook-url", url, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "AI: You said: first")
	assert.Contains(t, out, "Bye!")
}
