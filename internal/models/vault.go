package models

import "time"

// Vault is the persisted state of one vault. Addresses are 0x-prefixed
// checksummed hex.
type Vault struct {
	Address       string    `gorm:"size:42;primaryKey" json:"address"`
	Settings      string    `gorm:"size:42;not null" json:"settings"`
	Name          string    `gorm:"not null" json:"name"`
	Manager       string    `gorm:"size:42;not null;index" json:"manager"`
	Trader        string    `gorm:"size:42" json:"trader"`
	Private       bool      `gorm:"not null;default:false" json:"private"`
	TotalSupply   Amount    `gorm:"not null" json:"total_supply"`
	HighWaterMark Amount    `gorm:"not null" json:"high_water_mark"`
	LastFeeMint   time.Time `gorm:"not null" json:"last_fee_mint"`

	StreamingFee   uint32 `gorm:"not null" json:"streaming_fee"`
	PerformanceFee uint32 `gorm:"not null" json:"performance_fee"`
	EntryFee       uint32 `gorm:"not null" json:"entry_fee"`
	ExitFee        uint32 `gorm:"not null" json:"exit_fee"`

	// Pending fee increase; PendingAnnouncedAt is nil when none is announced.
	PendingStreamingFee   uint32     `json:"pending_streaming_fee"`
	PendingPerformanceFee uint32     `json:"pending_performance_fee"`
	PendingEntryFee       uint32     `json:"pending_entry_fee"`
	PendingExitFee        uint32     `json:"pending_exit_fee"`
	PendingAnnouncedAt    *time.Time `json:"pending_announced_at,omitempty"`

	Paused        bool      `gorm:"not null;default:false" json:"paused"`
	TradingPaused bool      `gorm:"not null;default:false" json:"trading_paused"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// VaultAsset is a supported asset of a vault with its custody balance as of
// the last accepted operation.
type VaultAsset struct {
	VaultAddress string `gorm:"size:42;primaryKey" json:"vault_address"`
	Asset        string `gorm:"size:42;primaryKey" json:"asset"`
	IsDeposit    bool   `gorm:"not null" json:"is_deposit"`
	Balance      Amount `gorm:"not null" json:"balance"`
}

// Holding is a holder's share balance and withdrawal cooldown.
type Holding struct {
	VaultAddress    string    `gorm:"size:42;primaryKey" json:"vault_address"`
	Holder          string    `gorm:"size:42;primaryKey" json:"holder"`
	Shares          Amount    `gorm:"not null" json:"shares"`
	CooldownSeconds int64     `gorm:"not null" json:"cooldown_seconds"`
	LastDeposit     time.Time `json:"last_deposit"`
}

// Member is an address allowed to hold shares of a private vault.
type Member struct {
	VaultAddress string `gorm:"size:42;primaryKey" json:"vault_address"`
	Member       string `gorm:"size:42;primaryKey" json:"member"`
}
