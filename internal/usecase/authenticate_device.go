package usecase

import (
	"context"
	"time"

	"cipherid/internal/domain"
)

type AuthenticateDeviceRequest struct {
	IdentifierHash domain.IdentifierHash
	Proof          []byte
	AuthTimestamp  int64
}

// AuthenticateDevice checks an externally generated proof binding the
// device's committed ciphertext handle to the caller-supplied timestamp.
// No store mutation happens before the verifier accepts, so an abandoned
// call leaves the record untouched. The active check here is advisory: the
// store re-checks it under its own lock when writing the auth time, so a
// device deactivated while the verifier runs still fails with
// ErrDeviceInactive and nothing is written. The timestamp itself is not
// checked for monotonicity or freshness.
type AuthenticateDevice struct {
	Devices   DeviceRepository
	Verifier  ProofVerifier
	Publisher EventPublisher
	Clock     Clock
}

func (uc *AuthenticateDevice) Execute(ctx context.Context, req AuthenticateDeviceRequest) error {
	record, err := uc.Devices.Get(ctx, req.IdentifierHash)
	if err != nil {
		return err
	}
	if !record.IsActive {
		return domain.ErrDeviceInactive
	}
	if err := requireProof(req.Proof); err != nil {
		return err
	}

	ok, err := uc.Verifier.Verify(
		ctx,
		[]domain.Ciphertext{record.EncryptedIdentifier},
		domain.AuthBindingMessage(req.AuthTimestamp),
		req.Proof,
	)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidProof
	}

	committed, err := uc.Devices.UpdateAuthTime(ctx, req.IdentifierHash, req.AuthTimestamp, domain.Event{
		Type:           domain.EventDeviceAuthenticated,
		IdentifierHash: req.IdentifierHash,
		AuthTime:       req.AuthTimestamp,
		CreatedAt:      uc.now().UTC(),
	})
	if err != nil {
		return err
	}
	announce(ctx, uc.Publisher, committed)
	return nil
}

func (uc *AuthenticateDevice) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock()
	}
	return time.Now().UTC()
}
