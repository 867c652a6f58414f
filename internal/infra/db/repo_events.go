package db

import (
	"context"
	"errors"
	"time"

	"cipherid/internal/domain"

	"gorm.io/gorm"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Append assigns the next per-device sequence number under a row lock and
// writes the event in the same transaction, so sequence numbers follow
// commit order with no gaps or duplicates.
func (r *EventRepository) Append(ctx context.Context, event domain.Event) (domain.Event, error) {
	if r.db == nil {
		return domain.Event{}, errDBUnavailable
	}
	var out domain.Event
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		committed, err := appendEventTx(ctx, tx, event)
		if err != nil {
			return err
		}
		out = committed
		return nil
	})
	if err != nil {
		return domain.Event{}, err
	}
	return out, nil
}

// appendEventTx writes one event inside the caller's transaction. The device
// repository runs it alongside its own mutation so the state change and the
// event either both commit or neither does.
func appendEventTx(ctx context.Context, tx *gorm.DB, event domain.Event) (domain.Event, error) {
	if event.Type == "" {
		return domain.Event{}, errors.New("event type is required")
	}
	if event.IdentifierHash == "" {
		return domain.Event{}, errors.New("identifier hash is required")
	}
	if event.ID == "" {
		id, err := newUUID()
		if err != nil {
			return domain.Event{}, err
		}
		event.ID = id
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	} else {
		event.CreatedAt = event.CreatedAt.UTC()
	}

	seq, err := nextEventSeq(ctx, tx, event.IdentifierHash.String())
	if err != nil {
		return domain.Event{}, err
	}
	event.Seq = seq
	model := EventModel{
		ID:             event.ID,
		IdentifierHash: event.IdentifierHash.String(),
		Seq:            event.Seq,
		EventType:      string(event.Type),
		Owner:          stringPtrIfNotEmpty(event.Owner),
		AuthTime:       int64PtrIfNonZero(event.AuthTime),
		CreatedAt:      event.CreatedAt,
	}
	if err := tx.Create(&model).Error; err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

func (r *EventRepository) ListByDevice(ctx context.Context, hash domain.IdentifierHash) ([]domain.Event, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []EventModel
	err := r.db.WithContext(ctx).
		Where("identifier_hash = ?", hash.String()).
		Order("seq ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Event, 0, len(models))
	for _, model := range models {
		out = append(out, domain.Event{
			ID:             model.ID,
			Seq:            model.Seq,
			Type:           domain.EventType(model.EventType),
			IdentifierHash: domain.IdentifierHash(model.IdentifierHash),
			Owner:          stringValue(model.Owner),
			AuthTime:       int64Value(model.AuthTime),
			CreatedAt:      model.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func nextEventSeq(ctx context.Context, tx *gorm.DB, identifierHash string) (int64, error) {
	if err := tx.WithContext(ctx).Exec(
		"INSERT INTO device_event_seq (identifier_hash, seq) VALUES (?, 0) ON CONFLICT (identifier_hash) DO NOTHING",
		identifierHash,
	).Error; err != nil {
		return 0, err
	}

	var currentSeq int64
	if err := tx.WithContext(ctx).Raw(
		"SELECT seq FROM device_event_seq WHERE identifier_hash = ? FOR UPDATE",
		identifierHash,
	).Scan(&currentSeq).Error; err != nil {
		return 0, err
	}
	nextSeq := currentSeq + 1
	if err := tx.WithContext(ctx).Exec(
		"UPDATE device_event_seq SET seq = ? WHERE identifier_hash = ?",
		nextSeq,
		identifierHash,
	).Error; err != nil {
		return 0, err
	}
	return nextSeq, nil
}
