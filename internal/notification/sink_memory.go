package notification

import (
	"context"
	"sync"

	id "sged/pkg/domain"
)

// MemorySink collects notifications per recipient. Tests and single-process
// wiring use it.
type MemorySink struct {
	mu     sync.RWMutex
	byUser map[id.UserID][]Notification
}

func NewMemorySink() *MemorySink {
	return &MemorySink{byUser: make(map[id.UserID][]Notification)}
}

func (s *MemorySink) Deliver(ctx context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[n.Recipient] = append(s.byUser[n.Recipient], n)
	return nil
}

// For returns the notifications delivered to a recipient, oldest first.
func (s *MemorySink) For(userID id.UserID) []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notification, len(s.byUser[userID]))
	copy(out, s.byUser[userID])
	return out
}
