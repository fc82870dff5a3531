package conversation

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/chatwidget/internal/domain"
)

func TestStoreAppendPreservesOrder(t *testing.T) {
	store := NewStore()
	now := time.Now()

	store.Append(domain.NewMessage("one", domain.DirectionOutbound, domain.StatusNormal, now))
	store.Append(domain.NewMessage("two", domain.DirectionInbound, domain.StatusNormal, now))
	store.Append(domain.NewMessage("two", domain.DirectionInbound, domain.StatusNormal, now))

	got := store.Snapshot()
	require.Len(t, got, 3)
	assert.Equal(t, "one", got[0].Text)
	assert.Equal(t, "two", got[1].Text)
	assert.Equal(t, "two", got[2].Text)
	assert.Equal(t, 3, store.Len())
}

func TestStoreSnapshotIsDetached(t *testing.T) {
	store := NewStore()
	store.Append(domain.NewMessage("one", domain.DirectionOutbound, domain.StatusNormal, time.Now()))

	snap := store.Snapshot()
	store.Append(domain.NewMessage("two", domain.DirectionInbound, domain.StatusNormal, time.Now()))

	assert.Len(t, snap, 1)
	assert.Len(t, store.Snapshot(), 2)
}

func TestStoreOnAppend(t *testing.T) {
	store := NewStore()

	var mu sync.Mutex
	var seen []string
	store.OnAppend(func(msg domain.Message) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, msg.Text)
		// Listeners run outside the lock and may read the store.
		_ = store.Len()
	})

	store.Append(domain.NewMessage("hi", domain.DirectionOutbound, domain.StatusNormal, time.Now()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"hi"}, seen)
}

func TestStoreConcurrentAppend(t *testing.T) {
	store := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Append(domain.NewMessage("x", domain.DirectionInbound, domain.StatusNormal, time.Now()))
			_ = store.Snapshot()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, store.Len())
}
