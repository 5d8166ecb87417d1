package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	audit "coffer/pkg/platform/audit"
)

// InMemoryStore keeps audit events in insertion order. It implements
// audit.Outbox so tests and the memory backend can run the full pipeline.
type InMemoryStore struct {
	mu      sync.RWMutex
	events  []audit.Event
	seen    map[uuid.UUID]bool
	relayed map[uuid.UUID]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		seen:    make(map[uuid.UUID]bool),
		relayed: make(map[uuid.UUID]bool),
	}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.seen = make(map[uuid.UUID]bool)
	s.relayed = make(map[uuid.UUID]bool)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[event.ID] {
		return nil
	}
	s.seen[event.ID] = true
	s.events = append(s.events, event)
	return nil
}

// List returns matching events newest first.
func (s *InMemoryStore) List(_ context.Context, query audit.Query) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := query.Limit
	if limit <= 0 {
		limit = audit.DefaultQueryLimit
	}

	var matched []audit.Event
	for i := len(s.events) - 1; i >= 0 && len(matched) < limit; i-- {
		event := s.events[i]
		if !query.Actor.IsZero() && event.Actor != query.Actor {
			continue
		}
		if query.Action != "" && event.Action != query.Action {
			continue
		}
		matched = append(matched, event)
	}
	return matched, nil
}

// ListUnrelayed returns events not yet delivered to the broker, oldest first.
func (s *InMemoryStore) ListUnrelayed(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []audit.Event
	for _, event := range s.events {
		if s.relayed[event.ID] {
			continue
		}
		pending = append(pending, event)
		if limit > 0 && len(pending) >= limit {
			break
		}
	}
	return pending, nil
}

func (s *InMemoryStore) MarkRelayed(_ context.Context, ids ...uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.relayed[id] = true
	}
	return nil
}
