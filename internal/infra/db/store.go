package db

import (
	"fmt"
	"log"

	"cipherid/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB
}

func NewStore(cfg config.Config) (*Store, error) {
	if cfg.PostgresDSN == "" {
		log.Printf("POSTGRES_DSN not set; starting with the in-memory identity store.")
		return &Store{DB: nil}, nil
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &Store{DB: gdb}, nil
}

func (s *Store) Migrate() error {
	if s.DB == nil {
		return nil
	}
	if err := s.DB.AutoMigrate(&DeviceModel{}, &OwnerIndexModel{}, &EventModel{}); err != nil {
		return err
	}
	return s.DB.Exec(
		"CREATE TABLE IF NOT EXISTS device_event_seq (identifier_hash TEXT PRIMARY KEY, seq BIGINT NOT NULL)",
	).Error
}
