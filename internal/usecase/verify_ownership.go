package usecase

import (
	"context"

	"cipherid/internal/domain"
)

type VerifyOwnershipRequest struct {
	IdentifierHash domain.IdentifierHash
	Proof          []byte
}

// VerifyOwnership is read-only: it reports whether the proof binds the
// device's ciphertext handle to its recorded owner, and mutates nothing
// regardless of the outcome. Deactivated devices remain verifiable.
type VerifyOwnership struct {
	Devices  DeviceRepository
	Verifier ProofVerifier
}

func (uc *VerifyOwnership) Execute(ctx context.Context, req VerifyOwnershipRequest) (bool, error) {
	record, err := uc.Devices.Get(ctx, req.IdentifierHash)
	if err != nil {
		return false, err
	}
	if err := requireProof(req.Proof); err != nil {
		return false, err
	}
	return uc.Verifier.Verify(
		ctx,
		[]domain.Ciphertext{record.EncryptedIdentifier},
		domain.OwnershipBindingMessage(record.Owner),
		req.Proof,
	)
}
