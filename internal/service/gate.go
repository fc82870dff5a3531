package service

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate is a single-slot gate guarding the outstanding webhook call of a
// session. Acquire before the call, release on every exit path.
type Gate struct {
	sem  *semaphore.Weighted
	busy atomic.Bool

	// transition orders each state change with its notification.
	transition sync.Mutex

	mu        sync.Mutex
	listeners []func(bool)
}

// NewGate creates an open gate.
func NewGate() *Gate {
	return &Gate{sem: semaphore.NewWeighted(1)}
}

// TryAcquire takes the slot without blocking. It returns false when a call is
// already outstanding.
func (g *Gate) TryAcquire() bool {
	if !g.sem.TryAcquire(1) {
		return false
	}
	g.transition.Lock()
	defer g.transition.Unlock()
	g.busy.Store(true)
	g.notify(true)
	return true
}

// Release frees the slot. It must be called exactly once per successful
// TryAcquire.
func (g *Gate) Release() {
	g.transition.Lock()
	defer g.transition.Unlock()
	g.busy.Store(false)
	g.sem.Release(1)
	g.notify(false)
}

// Busy reports whether a call is outstanding.
func (g *Gate) Busy() bool {
	return g.busy.Load()
}

// OnChange registers fn to be called with the new busy state after every
// transition. Notifications are delivered in transition order; fn must not
// call back into the gate.
func (g *Gate) OnChange(fn func(busy bool)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

func (g *Gate) notify(busy bool) {
	g.mu.Lock()
	listeners := g.listeners
	g.mu.Unlock()
	for _, fn := range listeners {
		fn(busy)
	}
}
