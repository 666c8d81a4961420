// Package models holds the GORM records the journal writes for every
// accepted vault operation.
package models

import (
	"time"

	"gorm.io/gorm"

	"vaultcore/internal/uuid"
)

// Base contains common columns for append-only tables keyed by UUIDv7.
type Base struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}

// All lists every model, for AutoMigrate in tests and the sqlite sandbox.
func All() []interface{} {
	return []interface{}{
		&Vault{},
		&VaultAsset{},
		&Holding{},
		&Member{},
		&Event{},
		&PriceObservation{},
	}
}
