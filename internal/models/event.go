package models

import "time"

// Event is the audit record of one vault state change. Data is a JSON
// object of decimal strings.
type Event struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	VaultAddress string    `gorm:"size:42;not null;index:idx_events_vault_at,priority:1" json:"vault_address"`
	Kind         string    `gorm:"not null;index" json:"kind"`
	Actor        string    `gorm:"size:42;not null" json:"actor"`
	Data         string    `gorm:"type:text;not null" json:"data"`
	At           time.Time `gorm:"not null;index:idx_events_vault_at,priority:2" json:"at"`
}

// PriceObservation is one price reported by a provider.
// This is immutable time-series data.
type PriceObservation struct {
	Base
	Asset      string    `gorm:"size:42;not null;index:idx_price_asset_observed,priority:1" json:"asset"`
	Source     string    `gorm:"not null" json:"source"`
	Value      Amount    `gorm:"not null" json:"value"`
	Decimals   uint8     `gorm:"not null" json:"decimals"`
	ObservedAt time.Time `gorm:"not null;index:idx_price_asset_observed,priority:2" json:"observed_at"`
}
