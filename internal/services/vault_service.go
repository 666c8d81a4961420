package services

import (
	"context"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"

	apperrors "vaultcore/internal/errors"
	"vaultcore/internal/models"
	"vaultcore/internal/store"
	"vaultcore/internal/vault"
)

// vaultService exposes the engine to the HTTP layer.
type vaultService struct {
	engine *vault.Engine
	store  *store.Store
}

// NewVaultService creates a new VaultServicer.
func NewVaultService(engine *vault.Engine, st *store.Store) VaultServicer {
	return &vaultService{engine: engine, store: st}
}

func vaultAttr(addr common.Address) attribute.KeyValue {
	return attribute.String("vault", addr.Hex())
}

// CreateVault deploys a new vault.
func (s *vaultService) CreateVault(ctx context.Context, req vault.CreateRequest) (_ *vault.Vault, err error) {
	ctx, span := startSpan(ctx, "vault.create", attribute.String("manager", req.Manager.Hex()))
	defer func() { endSpan(span, err) }()

	return s.engine.CreateVault(ctx, req)
}

// GetVault returns the vault at addr.
func (s *vaultService) GetVault(_ context.Context, addr common.Address) (*vault.Vault, error) {
	return s.engine.Vault(addr)
}

// ListVaults returns every vault, oldest first.
func (s *vaultService) ListVaults(_ context.Context) ([]*vault.Vault, error) {
	return s.engine.Vaults(), nil
}

// GetSummary values the vault at current prices.
func (s *vaultService) GetSummary(ctx context.Context, addr common.Address) (_ vault.Summary, err error) {
	ctx, span := startSpan(ctx, "vault.summary", vaultAttr(addr))
	defer func() { endSpan(span, err) }()

	return s.engine.FundSummary(ctx, addr)
}

// GetPosition returns holder's shares and remaining cooldown.
func (s *vaultService) GetPosition(_ context.Context, addr, holder common.Address) (*Position, error) {
	shares, err := s.engine.ShareBalance(addr, holder)
	if err != nil {
		return nil, err
	}
	left, err := s.engine.CooldownRemaining(addr, holder)
	if err != nil {
		return nil, err
	}
	return &Position{Vault: addr, Holder: holder, Shares: shares, CooldownRemaining: left}, nil
}

// Deposit deposits amt of asset for caller.
func (s *vaultService) Deposit(ctx context.Context, addr, caller, asset common.Address, amt sdkmath.Int) (_ vault.DepositResult, err error) {
	ctx, span := startSpan(ctx, "vault.deposit", vaultAttr(addr), attribute.String("asset", asset.Hex()))
	defer func() { endSpan(span, err) }()

	return s.engine.Deposit(ctx, addr, caller, asset, amt)
}

// Withdraw burns shares of caller and pays out the proportional assets.
func (s *vaultService) Withdraw(ctx context.Context, addr, caller common.Address, shares sdkmath.Int) (_ vault.WithdrawResult, err error) {
	ctx, span := startSpan(ctx, "vault.withdraw", vaultAttr(addr))
	defer func() { endSpan(span, err) }()

	return s.engine.Withdraw(ctx, addr, caller, shares)
}

// TransferShares moves shares from caller to another member.
func (s *vaultService) TransferShares(ctx context.Context, addr, caller, to common.Address, shares sdkmath.Int) (err error) {
	ctx, span := startSpan(ctx, "vault.transfer", vaultAttr(addr))
	defer func() { endSpan(span, err) }()

	return s.engine.TransferShares(ctx, addr, caller, to, shares)
}

// Execute runs a batch of calls on behalf of the vault.
func (s *vaultService) Execute(ctx context.Context, addr, caller common.Address, calls []vault.Call) (err error) {
	ctx, span := startSpan(ctx, "vault.execute", vaultAttr(addr), attribute.Int("calls", len(calls)))
	defer func() { endSpan(span, err) }()

	return s.engine.ExecuteBatch(ctx, addr, caller, calls)
}

// MintManagerFee mints pending fees.
func (s *vaultService) MintManagerFee(ctx context.Context, addr common.Address) (err error) {
	ctx, span := startSpan(ctx, "vault.mint_fee", vaultAttr(addr))
	defer func() { endSpan(span, err) }()

	return s.engine.MintManagerFee(ctx, addr)
}

// AnnounceFeeIncrease starts the fee increase delay.
func (s *vaultService) AnnounceFeeIncrease(ctx context.Context, addr, caller common.Address, fees vault.Fees) (err error) {
	ctx, span := startSpan(ctx, "vault.fees.announce", vaultAttr(addr))
	defer func() { endSpan(span, err) }()

	return s.engine.AnnounceFeeIncrease(ctx, addr, caller, fees)
}

// CommitFeeIncrease applies an announced increase once the delay elapsed.
func (s *vaultService) CommitFeeIncrease(ctx context.Context, addr, caller common.Address) (err error) {
	ctx, span := startSpan(ctx, "vault.fees.commit", vaultAttr(addr))
	defer func() { endSpan(span, err) }()

	return s.engine.CommitFeeIncrease(ctx, addr, caller)
}

// RenounceFeeIncrease cancels an announced increase.
func (s *vaultService) RenounceFeeIncrease(ctx context.Context, addr, caller common.Address) (err error) {
	ctx, span := startSpan(ctx, "vault.fees.renounce", vaultAttr(addr))
	defer func() { endSpan(span, err) }()

	return s.engine.RenounceFeeIncrease(ctx, addr, caller)
}

// DecreaseFees applies a fee decrease immediately.
func (s *vaultService) DecreaseFees(ctx context.Context, addr, caller common.Address, fees vault.Fees) (err error) {
	ctx, span := startSpan(ctx, "vault.fees.decrease", vaultAttr(addr))
	defer func() { endSpan(span, err) }()

	return s.engine.DecreaseFees(ctx, addr, caller, fees)
}

// ChangeAssets adds and removes supported assets.
func (s *vaultService) ChangeAssets(ctx context.Context, addr, caller common.Address, add []vault.AssetConfig, remove []common.Address) (err error) {
	ctx, span := startSpan(ctx, "vault.assets", vaultAttr(addr))
	defer func() { endSpan(span, err) }()

	return s.engine.ChangeAssets(ctx, addr, caller, add, remove)
}

// SetTrader appoints a trader.
func (s *vaultService) SetTrader(ctx context.Context, addr, caller, trader common.Address) (err error) {
	ctx, span := startSpan(ctx, "vault.trader", vaultAttr(addr))
	defer func() { endSpan(span, err) }()

	return s.engine.SetTrader(ctx, addr, caller, trader)
}

// AddMembers adds addresses to the member list.
func (s *vaultService) AddMembers(ctx context.Context, addr, caller common.Address, members []common.Address) (err error) {
	ctx, span := startSpan(ctx, "vault.members.add", vaultAttr(addr))
	defer func() { endSpan(span, err) }()

	return s.engine.AddMembers(ctx, addr, caller, members)
}

// RemoveMembers removes addresses from the member list.
func (s *vaultService) RemoveMembers(ctx context.Context, addr, caller common.Address, members []common.Address) (err error) {
	ctx, span := startSpan(ctx, "vault.members.remove", vaultAttr(addr))
	defer func() { endSpan(span, err) }()

	return s.engine.RemoveMembers(ctx, addr, caller, members)
}

// SetPaused pauses or resumes the vault.
func (s *vaultService) SetPaused(ctx context.Context, addr, caller common.Address, paused bool) (err error) {
	ctx, span := startSpan(ctx, "vault.pause", vaultAttr(addr))
	defer func() { endSpan(span, err) }()

	return s.engine.SetPaused(ctx, addr, caller, paused)
}

// SetTradingPaused pauses or resumes manager calls.
func (s *vaultService) SetTradingPaused(ctx context.Context, addr, caller common.Address, paused bool) (err error) {
	ctx, span := startSpan(ctx, "vault.trading_pause", vaultAttr(addr))
	defer func() { endSpan(span, err) }()

	return s.engine.SetTradingPaused(ctx, addr, caller, paused)
}

// ListEvents returns a page of the vault's persisted events.
func (s *vaultService) ListEvents(ctx context.Context, addr common.Address, kind string, page store.Page) (*store.Paged[models.Event], error) {
	if _, err := s.engine.Vault(addr); err != nil {
		return nil, err
	}
	events, total, err := s.store.ListEvents(ctx, store.EventFilter{Vault: addr, Kind: kind}, page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	paged := store.NewPaged(events, page, total)
	return &paged, nil
}
