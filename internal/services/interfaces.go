package services

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"vaultcore/internal/ledger"
	"vaultcore/internal/models"
	"vaultcore/internal/oracle"
	"vaultcore/internal/registry"
	"vaultcore/internal/store"
	"vaultcore/internal/vault"
)

// Position is a holder's stake in a vault.
type Position struct {
	Vault             common.Address `json:"vault"`
	Holder            common.Address `json:"holder"`
	Shares            sdkmath.Int    `json:"shares"`
	CooldownRemaining time.Duration  `json:"cooldown_remaining"`
}

// VaultServicer defines the contract for vault operations. Every mutating
// call names the caller it is performed for.
type VaultServicer interface {
	CreateVault(ctx context.Context, req vault.CreateRequest) (*vault.Vault, error)
	GetVault(ctx context.Context, addr common.Address) (*vault.Vault, error)
	ListVaults(ctx context.Context) ([]*vault.Vault, error)
	GetSummary(ctx context.Context, addr common.Address) (vault.Summary, error)
	GetPosition(ctx context.Context, addr, holder common.Address) (*Position, error)

	Deposit(ctx context.Context, addr, caller, asset common.Address, amt sdkmath.Int) (vault.DepositResult, error)
	Withdraw(ctx context.Context, addr, caller common.Address, shares sdkmath.Int) (vault.WithdrawResult, error)
	TransferShares(ctx context.Context, addr, caller, to common.Address, shares sdkmath.Int) error
	Execute(ctx context.Context, addr, caller common.Address, calls []vault.Call) error
	MintManagerFee(ctx context.Context, addr common.Address) error

	AnnounceFeeIncrease(ctx context.Context, addr, caller common.Address, fees vault.Fees) error
	CommitFeeIncrease(ctx context.Context, addr, caller common.Address) error
	RenounceFeeIncrease(ctx context.Context, addr, caller common.Address) error
	DecreaseFees(ctx context.Context, addr, caller common.Address, fees vault.Fees) error

	ChangeAssets(ctx context.Context, addr, caller common.Address, add []vault.AssetConfig, remove []common.Address) error
	SetTrader(ctx context.Context, addr, caller, trader common.Address) error
	AddMembers(ctx context.Context, addr, caller common.Address, members []common.Address) error
	RemoveMembers(ctx context.Context, addr, caller common.Address, members []common.Address) error
	SetPaused(ctx context.Context, addr, caller common.Address, paused bool) error
	SetTradingPaused(ctx context.Context, addr, caller common.Address, paused bool) error

	ListEvents(ctx context.Context, addr common.Address, kind string, page store.Page) (*store.Paged[models.Event], error)
}

// ContractGuardSpec names a contract guard implementation and its
// parameters. Kind "none" removes the binding.
type ContractGuardSpec struct {
	Kind        string
	StakeToken  common.Address
	RewardToken common.Address
}

// RegistryView is a snapshot of the platform configuration.
type RegistryView struct {
	Owner            common.Address            `json:"owner"`
	Paused           bool                      `json:"paused"`
	FeeCeilings      registry.FeeCeilings      `json:"fee_ceilings"`
	Treasury         common.Address            `json:"treasury"`
	TreasuryShareBps uint32                    `json:"treasury_share_bps"`
	Addresses        map[string]common.Address `json:"addresses"`
	Assets           []registry.Entry          `json:"assets"`
	Targets          []common.Address          `json:"targets"`
	Tokens           []ledger.TokenInfo        `json:"tokens"`
}

// RegistryServicer defines the contract for platform administration. All
// mutations are restricted to the registry owner.
type RegistryServicer interface {
	GetRegistry(ctx context.Context) (*RegistryView, error)
	SetPaused(ctx context.Context, caller common.Address, paused bool) error
	SetFeeCeilings(ctx context.Context, caller common.Address, c registry.FeeCeilings) error
	SetTreasury(ctx context.Context, caller, treasury common.Address, shareBps uint32) error
	SetAddress(ctx context.Context, caller common.Address, name string, addr common.Address) error
	SetCooldownWhitelist(ctx context.Context, caller, addr common.Address, exempt bool) error
	SetAssetType(ctx context.Context, caller, asset common.Address, family string) error
	SetContractGuard(ctx context.Context, caller, target common.Address, spec ContractGuardSpec) error
	TransferOwnership(ctx context.Context, caller, next common.Address) error
}

// PriceInput is one price reported by the feed runner.
type PriceInput struct {
	Asset      common.Address
	Source     string
	Value      sdkmath.Int
	Decimals   uint8
	RecordedAt time.Time
}

// PriceServicer defines the contract for price ingestion and lookup.
type PriceServicer interface {
	RecordPrices(ctx context.Context, prices []PriceInput) (int, error)
	GetPrice(ctx context.Context, asset common.Address) (oracle.Price, error)
}

// AuthServicer issues sign-in challenges and verifies signed responses.
type AuthServicer interface {
	Challenge(ctx context.Context, addr common.Address) (string, error)
	Verify(ctx context.Context, addr common.Address, signature []byte) error
}
