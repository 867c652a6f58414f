package usecase

import (
	"context"
	"time"

	"cipherid/internal/domain"
)

type RegisterDeviceRequest struct {
	EncryptedIdentifier []byte
	Proof               []byte
	PublicKey           uint64
	Caller              domain.Principal
}

type RegisterDeviceResponse struct {
	IdentifierHash domain.IdentifierHash
}

// RegisterDevice is the sole creation path for device records. The proof is
// required non-empty but not verified here: the ciphertext import check is
// the registration-time validity gate, and proof verification happens on
// authenticate. The record, its owner-index entry, and the registration
// event commit for exactly one caller when registrations race on a hash.
type RegisterDevice struct {
	Devices   DeviceRepository
	Policy    PolicyEngine
	Publisher EventPublisher
	Clock     Clock
}

func (uc *RegisterDevice) Execute(ctx context.Context, req RegisterDeviceRequest) (*RegisterDeviceResponse, error) {
	if err := requireProof(req.Proof); err != nil {
		return nil, err
	}
	if req.Caller.Subject == "" {
		return nil, domain.ErrUnauthorized
	}

	ct, err := domain.ImportCiphertext(req.EncryptedIdentifier)
	if err != nil {
		return nil, err
	}
	hash := domain.DeriveIdentifierHash(ct)

	if uc.Policy != nil {
		eval, err := uc.Policy.Evaluate(ctx, domain.PolicyInput{
			Operation:      "register",
			Owner:          req.Caller.Subject,
			PublicKey:      req.PublicKey,
			IdentifierHash: hash,
		})
		if err != nil {
			return nil, err
		}
		if !eval.Result.Allow {
			return nil, domain.ErrPolicyDenied
		}
	}

	record := domain.DeviceRecord{
		IdentifierHash:      hash,
		EncryptedIdentifier: ct,
		PublicKey:           req.PublicKey,
		Owner:               req.Caller.Subject,
		IsActive:            true,
		LastAuthTime:        0,
		CreatedAt:           uc.now().UTC(),
	}
	committed, err := uc.Devices.Insert(ctx, record, domain.Event{
		Type:           domain.EventDeviceRegistered,
		IdentifierHash: hash,
		Owner:          record.Owner,
		CreatedAt:      record.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	announce(ctx, uc.Publisher, committed)

	return &RegisterDeviceResponse{IdentifierHash: hash}, nil
}

func (uc *RegisterDevice) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock()
	}
	return time.Now().UTC()
}

// requireProof is the guard every proof-carrying operation runs first:
// an empty proof blob is rejected before any verifier call.
func requireProof(proof []byte) error {
	if len(proof) == 0 {
		return domain.ErrInvalidProof
	}
	return nil
}
