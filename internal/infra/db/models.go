package db

import "time"

type DeviceModel struct {
	IdentifierHash      string    `gorm:"primaryKey"`
	EncryptedIdentifier []byte    `gorm:"type:bytea;not null"`
	PublicKey           uint64    `gorm:"not null"`
	Owner               string    `gorm:"index;not null"`
	IsActive            bool      `gorm:"not null"`
	LastAuthTime        int64     `gorm:"not null"`
	CreatedAt           time.Time `gorm:"not null"`
}

func (DeviceModel) TableName() string {
	return "devices"
}

type OwnerIndexModel struct {
	ID             int64     `gorm:"primaryKey"`
	Owner          string    `gorm:"index;not null"`
	IdentifierHash string    `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (OwnerIndexModel) TableName() string {
	return "owner_index"
}

type EventModel struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	IdentifierHash string `gorm:"index;not null"`
	Seq            int64  `gorm:"not null"`
	EventType      string `gorm:"column:event_type;not null"`
	Owner          *string
	AuthTime       *int64
	CreatedAt      time.Time `gorm:"column:created_at;not null"`
}

func (EventModel) TableName() string {
	return "registry_events"
}
