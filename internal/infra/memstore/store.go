// Package memstore is the in-memory identity store used when no database
// is configured. A single mutex makes every operation atomic: check-and-
// insert commits the record, its owner-index entry, and the registration
// event in one step, and readers never observe a partially written record.
package memstore

import (
	"context"
	"sync"

	"cipherid/internal/domain"
	"cipherid/internal/usecase"
)

type Store struct {
	mu         sync.RWMutex
	devices    map[domain.IdentifierHash]domain.DeviceRecord
	ownerIndex map[string][]domain.IdentifierHash
	events     usecase.EventRepository
}

// New builds a store that appends mutation events to events while holding
// its own write lock, so the state change and its event commit together.
func New(events usecase.EventRepository) *Store {
	return &Store{
		devices:    make(map[domain.IdentifierHash]domain.DeviceRecord),
		ownerIndex: make(map[string][]domain.IdentifierHash),
		events:     events,
	}
}

func (s *Store) Insert(ctx context.Context, record domain.DeviceRecord, event domain.Event) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[record.IdentifierHash]; ok {
		return domain.Event{}, domain.ErrDuplicateRegistration
	}
	committed, err := s.events.Append(ctx, event)
	if err != nil {
		return domain.Event{}, err
	}
	s.devices[record.IdentifierHash] = record
	s.ownerIndex[record.Owner] = append(s.ownerIndex[record.Owner], record.IdentifierHash)
	return committed, nil
}

func (s *Store) Get(_ context.Context, hash domain.IdentifierHash) (*domain.DeviceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.devices[hash]
	if !ok {
		return nil, domain.ErrDeviceNotFound
	}
	return &record, nil
}

func (s *Store) UpdateAuthTime(ctx context.Context, hash domain.IdentifierHash, authTime int64, event domain.Event) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.devices[hash]
	if !ok {
		return domain.Event{}, domain.ErrDeviceNotFound
	}
	if !record.IsActive {
		// The record may have been deactivated after the caller's read.
		return domain.Event{}, domain.ErrDeviceInactive
	}
	committed, err := s.events.Append(ctx, event)
	if err != nil {
		return domain.Event{}, err
	}
	record.LastAuthTime = authTime
	s.devices[hash] = record
	return committed, nil
}

func (s *Store) Deactivate(_ context.Context, hash domain.IdentifierHash, caller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.devices[hash]
	if !ok {
		return domain.ErrDeviceNotFound
	}
	if record.Owner != caller {
		return domain.ErrNotOwner
	}
	if !record.IsActive {
		// Deactivation is terminal and idempotent.
		return nil
	}
	record.IsActive = false
	s.devices[hash] = record
	return nil
}

func (s *Store) OwnerHashes(_ context.Context, owner string) ([]domain.IdentifierHash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hashes := s.ownerIndex[owner]
	out := make([]domain.IdentifierHash, len(hashes))
	copy(out, hashes)
	return out, nil
}

var _ usecase.DeviceRepository = (*Store)(nil)
