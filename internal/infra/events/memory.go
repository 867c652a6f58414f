// Package events holds the registry event log backends: an in-memory log
// for no-db mode and tests, and a redis stream publisher for external
// observers.
package events

import (
	"context"
	"strconv"
	"sync"

	"cipherid/internal/domain"
	"cipherid/internal/usecase"
)

// MemoryLog is an append-only, commit-ordered event log held in memory.
type MemoryLog struct {
	mu     sync.Mutex
	seq    int64
	events []domain.Event
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (l *MemoryLog) Append(_ context.Context, event domain.Event) (domain.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	event.Seq = l.seq
	if event.ID == "" {
		event.ID = strconv.FormatInt(l.seq, 10)
	}
	l.events = append(l.events, event)
	return event, nil
}

func (l *MemoryLog) ListByDevice(_ context.Context, hash domain.IdentifierHash) ([]domain.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.Event
	for _, event := range l.events {
		if event.IdentifierHash == hash {
			out = append(out, event)
		}
	}
	return out, nil
}

// All returns every committed event in commit order.
func (l *MemoryLog) All() []domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Event, len(l.events))
	copy(out, l.events)
	return out
}

var _ usecase.EventRepository = (*MemoryLog)(nil)
