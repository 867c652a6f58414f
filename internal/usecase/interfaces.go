package usecase

import (
	"context"
	"time"

	"cipherid/internal/domain"
)

// DeviceRepository is the identity store. Mutations commit their event in
// the same atomic step as the state change: Insert writes the record, its
// owner-index entry, and the registration event with no observable
// intermediate state, and a concurrent insert of the same hash fails with
// ErrDuplicateRegistration. UpdateAuthTime writes the auth time and the
// authentication event only while the record is still active; a record
// deactivated since the caller last read it fails with ErrDeviceInactive.
// Both return the committed event with its assigned sequence number.
type DeviceRepository interface {
	Insert(ctx context.Context, record domain.DeviceRecord, event domain.Event) (domain.Event, error)
	Get(ctx context.Context, hash domain.IdentifierHash) (*domain.DeviceRecord, error)
	UpdateAuthTime(ctx context.Context, hash domain.IdentifierHash, authTime int64, event domain.Event) (domain.Event, error)
	Deactivate(ctx context.Context, hash domain.IdentifierHash, caller string) error
	OwnerHashes(ctx context.Context, owner string) ([]domain.IdentifierHash, error)
}

type EventRepository interface {
	Append(ctx context.Context, event domain.Event) (domain.Event, error)
	ListByDevice(ctx context.Context, hash domain.IdentifierHash) ([]domain.Event, error)
}

// EventPublisher fans committed events out to external observers. Publish
// failures do not undo the operation; the event log written by the store
// is authoritative.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// ProofVerifier is the external verification capability. It is a pure
// oracle: same inputs yield the same answer, and a false result is a
// terminal rejection, never retried.
type ProofVerifier interface {
	Verify(ctx context.Context, handles []domain.Ciphertext, message []byte, proof []byte) (bool, error)
}

type PolicyEngine interface {
	Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyEvaluation, error)
}

type Clock func() time.Time
