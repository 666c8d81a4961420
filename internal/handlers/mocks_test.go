package handlers

import (
	"context"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"vaultcore/internal/models"
	"vaultcore/internal/oracle"
	"vaultcore/internal/registry"
	"vaultcore/internal/services"
	"vaultcore/internal/store"
	"vaultcore/internal/vault"
)

// --- mock vault service ---

type mockVaultService struct {
	createVaultFn    func(req vault.CreateRequest) (*vault.Vault, error)
	getVaultFn       func(addr common.Address) (*vault.Vault, error)
	getSummaryFn     func(addr common.Address) (vault.Summary, error)
	getPositionFn    func(addr, holder common.Address) (*services.Position, error)
	depositFn        func(addr, caller, asset common.Address, amt sdkmath.Int) (vault.DepositResult, error)
	withdrawFn       func(addr, caller common.Address, shares sdkmath.Int) (vault.WithdrawResult, error)
	executeFn        func(addr, caller common.Address, calls []vault.Call) error
	announceFn       func(addr, caller common.Address, fees vault.Fees) error
	addMembersFn     func(addr, caller common.Address, members []common.Address) error
	setPausedFn      func(addr, caller common.Address, paused bool) error
	listEventsFn     func(addr common.Address, kind string, page store.Page) (*store.Paged[models.Event], error)
	changeAssetsFn   func(addr, caller common.Address, add []vault.AssetConfig, remove []common.Address) error
	mintManagerFeeFn func(addr common.Address) error
}

func (m *mockVaultService) CreateVault(_ context.Context, req vault.CreateRequest) (*vault.Vault, error) {
	if m.createVaultFn != nil {
		return m.createVaultFn(req)
	}
	return testVault(), nil
}

func (m *mockVaultService) GetVault(_ context.Context, addr common.Address) (*vault.Vault, error) {
	if m.getVaultFn != nil {
		return m.getVaultFn(addr)
	}
	return testVault(), nil
}

func (m *mockVaultService) ListVaults(context.Context) ([]*vault.Vault, error) {
	return []*vault.Vault{testVault()}, nil
}

func (m *mockVaultService) GetSummary(_ context.Context, addr common.Address) (vault.Summary, error) {
	if m.getSummaryFn != nil {
		return m.getSummaryFn(addr)
	}
	return vault.Summary{Vault: testVault()}, nil
}

func (m *mockVaultService) GetPosition(_ context.Context, addr, holder common.Address) (*services.Position, error) {
	if m.getPositionFn != nil {
		return m.getPositionFn(addr, holder)
	}
	return &services.Position{Vault: addr, Holder: holder, Shares: sdkmath.ZeroInt()}, nil
}

func (m *mockVaultService) Deposit(_ context.Context, addr, caller, asset common.Address, amt sdkmath.Int) (vault.DepositResult, error) {
	if m.depositFn != nil {
		return m.depositFn(addr, caller, asset, amt)
	}
	return vault.DepositResult{}, nil
}

func (m *mockVaultService) Withdraw(_ context.Context, addr, caller common.Address, shares sdkmath.Int) (vault.WithdrawResult, error) {
	if m.withdrawFn != nil {
		return m.withdrawFn(addr, caller, shares)
	}
	return vault.WithdrawResult{}, nil
}

func (m *mockVaultService) TransferShares(context.Context, common.Address, common.Address, common.Address, sdkmath.Int) error {
	return nil
}

func (m *mockVaultService) Execute(_ context.Context, addr, caller common.Address, calls []vault.Call) error {
	if m.executeFn != nil {
		return m.executeFn(addr, caller, calls)
	}
	return nil
}

func (m *mockVaultService) MintManagerFee(_ context.Context, addr common.Address) error {
	if m.mintManagerFeeFn != nil {
		return m.mintManagerFeeFn(addr)
	}
	return nil
}

func (m *mockVaultService) AnnounceFeeIncrease(_ context.Context, addr, caller common.Address, fees vault.Fees) error {
	if m.announceFn != nil {
		return m.announceFn(addr, caller, fees)
	}
	return nil
}

func (m *mockVaultService) CommitFeeIncrease(context.Context, common.Address, common.Address) error {
	return nil
}

func (m *mockVaultService) RenounceFeeIncrease(context.Context, common.Address, common.Address) error {
	return nil
}

func (m *mockVaultService) DecreaseFees(context.Context, common.Address, common.Address, vault.Fees) error {
	return nil
}

func (m *mockVaultService) ChangeAssets(_ context.Context, addr, caller common.Address, add []vault.AssetConfig, remove []common.Address) error {
	if m.changeAssetsFn != nil {
		return m.changeAssetsFn(addr, caller, add, remove)
	}
	return nil
}

func (m *mockVaultService) SetTrader(context.Context, common.Address, common.Address, common.Address) error {
	return nil
}

func (m *mockVaultService) AddMembers(_ context.Context, addr, caller common.Address, members []common.Address) error {
	if m.addMembersFn != nil {
		return m.addMembersFn(addr, caller, members)
	}
	return nil
}

func (m *mockVaultService) RemoveMembers(context.Context, common.Address, common.Address, []common.Address) error {
	return nil
}

func (m *mockVaultService) SetPaused(_ context.Context, addr, caller common.Address, paused bool) error {
	if m.setPausedFn != nil {
		return m.setPausedFn(addr, caller, paused)
	}
	return nil
}

func (m *mockVaultService) SetTradingPaused(context.Context, common.Address, common.Address, bool) error {
	return nil
}

func (m *mockVaultService) ListEvents(_ context.Context, addr common.Address, kind string, page store.Page) (*store.Paged[models.Event], error) {
	if m.listEventsFn != nil {
		return m.listEventsFn(addr, kind, page)
	}
	resp := store.NewPaged([]models.Event{}, page, 0)
	return &resp, nil
}

// --- mock registry service ---

type mockRegistryService struct {
	setFeeCeilingsFn   func(caller common.Address, c registry.FeeCeilings) error
	setContractGuardFn func(caller, target common.Address, spec services.ContractGuardSpec) error
	setAssetTypeFn     func(caller, asset common.Address, family string) error
}

func (m *mockRegistryService) GetRegistry(context.Context) (*services.RegistryView, error) {
	return &services.RegistryView{Owner: owner, FeeCeilings: registry.DefaultFeeCeilings}, nil
}

func (m *mockRegistryService) SetPaused(context.Context, common.Address, bool) error { return nil }

func (m *mockRegistryService) SetFeeCeilings(_ context.Context, caller common.Address, c registry.FeeCeilings) error {
	if m.setFeeCeilingsFn != nil {
		return m.setFeeCeilingsFn(caller, c)
	}
	return nil
}

func (m *mockRegistryService) SetTreasury(context.Context, common.Address, common.Address, uint32) error {
	return nil
}

func (m *mockRegistryService) SetAddress(context.Context, common.Address, string, common.Address) error {
	return nil
}

func (m *mockRegistryService) SetCooldownWhitelist(context.Context, common.Address, common.Address, bool) error {
	return nil
}

func (m *mockRegistryService) SetAssetType(_ context.Context, caller, asset common.Address, family string) error {
	if m.setAssetTypeFn != nil {
		return m.setAssetTypeFn(caller, asset, family)
	}
	return nil
}

func (m *mockRegistryService) SetContractGuard(_ context.Context, caller, target common.Address, spec services.ContractGuardSpec) error {
	if m.setContractGuardFn != nil {
		return m.setContractGuardFn(caller, target, spec)
	}
	return nil
}

func (m *mockRegistryService) TransferOwnership(context.Context, common.Address, common.Address) error {
	return nil
}

// --- mock price service ---

type mockPriceService struct {
	recordPricesFn func(prices []services.PriceInput) (int, error)
	getPriceFn     func(asset common.Address) (oracle.Price, error)
}

func (m *mockPriceService) RecordPrices(_ context.Context, prices []services.PriceInput) (int, error) {
	if m.recordPricesFn != nil {
		return m.recordPricesFn(prices)
	}
	return len(prices), nil
}

func (m *mockPriceService) GetPrice(_ context.Context, asset common.Address) (oracle.Price, error) {
	if m.getPriceFn != nil {
		return m.getPriceFn(asset)
	}
	return oracle.Price{Value: sdkmath.NewInt(100_000_000), Decimals: 8}, nil
}

// --- mock auth service ---

type mockAuthService struct {
	verifyFn func(addr common.Address, signature []byte) error
}

func (m *mockAuthService) Challenge(_ context.Context, addr common.Address) (string, error) {
	return services.ChallengeMessage(addr, "nonce"), nil
}

func (m *mockAuthService) Verify(_ context.Context, addr common.Address, signature []byte) error {
	if m.verifyFn != nil {
		return m.verifyFn(addr, signature)
	}
	return nil
}

// verify interface compliance
var (
	_ services.VaultServicer    = (*mockVaultService)(nil)
	_ services.RegistryServicer = (*mockRegistryService)(nil)
	_ services.PriceServicer    = (*mockPriceService)(nil)
	_ services.AuthServicer     = (*mockAuthService)(nil)
)
