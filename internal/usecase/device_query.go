package usecase

import (
	"context"

	"cipherid/internal/domain"
)

// DeviceQuery serves the pure read operations.
type DeviceQuery struct {
	Devices DeviceRepository
}

func (uc *DeviceQuery) GetDevice(ctx context.Context, hash domain.IdentifierHash) (domain.DeviceView, error) {
	record, err := uc.Devices.Get(ctx, hash)
	if err != nil {
		return domain.DeviceView{}, err
	}
	return record.View(), nil
}

func (uc *DeviceQuery) OwnerDevices(ctx context.Context, caller domain.Principal) ([]domain.IdentifierHash, error) {
	if caller.Subject == "" {
		return nil, domain.ErrUnauthorized
	}
	return uc.Devices.OwnerHashes(ctx, caller.Subject)
}
