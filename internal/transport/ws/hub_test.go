package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendJSONAfterStop(t *testing.T) {
	h := NewHub()
	go h.Run()

	conn := h.NewConnection(nil)
	require.True(t, h.Register(conn))
	require.NoError(t, h.SendJSON(conn, newEvent(TypeSnapshot, "s")))

	h.Stop()
	require.Eventually(t, func() bool { return h.ConnectionCount() == 0 }, 5*time.Second, 10*time.Millisecond)

	assert.NotPanics(t, func() {
		assert.ErrorIs(t, h.SendJSON(conn, newEvent(TypeBusy, "s")), ErrNotRegistered)
	})
	assert.False(t, h.Register(h.NewConnection(nil)))
}

func TestSendJSONUnregistered(t *testing.T) {
	h := NewHub()
	go h.Run()
	t.Cleanup(h.Stop)

	conn := h.NewConnection(nil)
	assert.ErrorIs(t, h.SendJSON(conn, newEvent(TypeBusy, "s")), ErrNotRegistered)
}
