// Package conversation holds the in-memory, append-only record of one chat session.
package conversation

import (
	"sync"

	"github.com/xiaot623/gogo/chatwidget/internal/domain"
)

// AppendFunc is called after a message has been appended.
type AppendFunc func(domain.Message)

// Store is an ordered sequence of messages. Insertion order is display order;
// entries are never reordered, deduplicated or removed.
type Store struct {
	mu        sync.RWMutex
	messages  []domain.Message
	listeners []AppendFunc
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Append adds a message at the end of the conversation.
func (s *Store) Append(msg domain.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	listeners := s.listeners
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(msg)
	}
}

// Snapshot returns the current messages in display order.
func (s *Store) Snapshot() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// OnAppend registers fn to run after every append, outside the store lock.
func (s *Store) OnAppend(fn AppendFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
