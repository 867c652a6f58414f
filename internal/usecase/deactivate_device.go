package usecase

import (
	"context"

	"cipherid/internal/domain"
)

type DeactivateDeviceRequest struct {
	IdentifierHash domain.IdentifierHash
	Caller         domain.Principal
}

// DeactivateDevice flips a device to inactive. Only the registering owner
// may deactivate; the transition is terminal and idempotent, and the record
// stays queryable afterwards.
type DeactivateDevice struct {
	Devices DeviceRepository
}

func (uc *DeactivateDevice) Execute(ctx context.Context, req DeactivateDeviceRequest) error {
	if req.Caller.Subject == "" {
		return domain.ErrUnauthorized
	}
	return uc.Devices.Deactivate(ctx, req.IdentifierHash, req.Caller.Subject)
}
