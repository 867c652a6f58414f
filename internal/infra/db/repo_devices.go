package db

import (
	"context"
	"errors"

	"cipherid/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Insert commits the record, its owner-index entry, and the registration
// event in one transaction. The primary-key constraint on identifier_hash
// makes the check-and-insert atomic: the loser of a racing pair sees
// ErrDuplicateRegistration and no event is written for it.
func (r *DeviceRepository) Insert(ctx context.Context, record domain.DeviceRecord, event domain.Event) (domain.Event, error) {
	if r.db == nil {
		return domain.Event{}, errDBUnavailable
	}
	deviceModel := DeviceModel{
		IdentifierHash:      record.IdentifierHash.String(),
		EncryptedIdentifier: record.EncryptedIdentifier.Bytes(),
		PublicKey:           record.PublicKey,
		Owner:               record.Owner,
		IsActive:            record.IsActive,
		LastAuthTime:        record.LastAuthTime,
		CreatedAt:           record.CreatedAt,
	}
	indexModel := OwnerIndexModel{
		Owner:          record.Owner,
		IdentifierHash: record.IdentifierHash.String(),
		CreatedAt:      record.CreatedAt,
	}
	var committed domain.Event
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&deviceModel).Error; err != nil {
			return err
		}
		if err := tx.Create(&indexModel).Error; err != nil {
			return err
		}
		out, err := appendEventTx(ctx, tx, event)
		if err != nil {
			return err
		}
		committed = out
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.Event{}, domain.ErrDuplicateRegistration
		}
		return domain.Event{}, err
	}
	return committed, nil
}

func (r *DeviceRepository) Get(ctx context.Context, hash domain.IdentifierHash) (*domain.DeviceRecord, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model DeviceModel
	err := r.db.WithContext(ctx).
		First(&model, "identifier_hash = ?", hash.String()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrDeviceNotFound
		}
		return nil, err
	}
	return deviceFromModel(model)
}

// UpdateAuthTime writes the auth time and the authentication event in one
// transaction, guarded on is_active so a device deactivated after the
// caller's read fails with ErrDeviceInactive instead of resurfacing.
func (r *DeviceRepository) UpdateAuthTime(ctx context.Context, hash domain.IdentifierHash, authTime int64, event domain.Event) (domain.Event, error) {
	if r.db == nil {
		return domain.Event{}, errDBUnavailable
	}
	var committed domain.Event
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&DeviceModel{}).
			Where("identifier_hash = ? AND is_active = ?", hash.String(), true).
			Update("last_auth_time", authTime)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&DeviceModel{}).
				Where("identifier_hash = ?", hash.String()).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return domain.ErrDeviceNotFound
			}
			return domain.ErrDeviceInactive
		}
		out, err := appendEventTx(ctx, tx, event)
		if err != nil {
			return err
		}
		committed = out
		return nil
	})
	if err != nil {
		return domain.Event{}, err
	}
	return committed, nil
}

func (r *DeviceRepository) Deactivate(ctx context.Context, hash domain.IdentifierHash, caller string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model DeviceModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "identifier_hash = ?", hash.String()).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrDeviceNotFound
			}
			return err
		}
		if model.Owner != caller {
			return domain.ErrNotOwner
		}
		if !model.IsActive {
			return nil
		}
		return tx.Model(&DeviceModel{}).
			Where("identifier_hash = ?", hash.String()).
			Update("is_active", false).Error
	})
}

func (r *DeviceRepository) OwnerHashes(ctx context.Context, owner string) ([]domain.IdentifierHash, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []OwnerIndexModel
	err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.IdentifierHash, 0, len(models))
	for _, model := range models {
		out = append(out, domain.IdentifierHash(model.IdentifierHash))
	}
	return out, nil
}

func deviceFromModel(model DeviceModel) (*domain.DeviceRecord, error) {
	ct, err := domain.ImportCiphertext(model.EncryptedIdentifier)
	if err != nil {
		return nil, err
	}
	return &domain.DeviceRecord{
		IdentifierHash:      domain.IdentifierHash(model.IdentifierHash),
		EncryptedIdentifier: ct,
		PublicKey:           model.PublicKey,
		Owner:               model.Owner,
		IsActive:            model.IsActive,
		LastAuthTime:        model.LastAuthTime,
		CreatedAt:           model.CreatedAt,
	}, nil
}
