package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"vaultcore/internal/deploy"
	"vaultcore/internal/ledger"
	"vaultcore/internal/logger"
	"vaultcore/internal/vault"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Well-known sandbox accounts.
var (
	Owner    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	Manager  = common.HexToAddress("0x0000000000000000000000000000000000000002")
	Trader   = common.HexToAddress("0x0000000000000000000000000000000000000003")
	Alice    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	Bob      = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	Treasury = common.HexToAddress("0x00000000000000000000000000000000000000fe")

	USDC   = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	WETH   = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	DAI    = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	Router = common.HexToAddress("0x00000000000000000000000000000000000000f1")
)

// SandboxManifest deploys USDC, WETH and DAI with a fee-free router and
// funds Alice and Bob.
const SandboxManifest = `
owner: "0x0000000000000000000000000000000000000001"
treasury: "0x00000000000000000000000000000000000000fe"
treasury_share_bps: 1000
tokens:
  - {symbol: USDC, address: "0x00000000000000000000000000000000000000c1", decimals: 6, price: "1"}
  - {symbol: WETH, address: "0x00000000000000000000000000000000000000e1", decimals: 18, price: "2000"}
  - {symbol: DAI, address: "0x00000000000000000000000000000000000000d1", decimals: 18, price: "1"}
routers:
  - name: router
    address: "0x00000000000000000000000000000000000000f1"
    reserves: {USDC: "1000000", WETH: "500", DAI: "1000000"}
balances:
  - {holder: "0x00000000000000000000000000000000000000a1", token: USDC, amount: "100000"}
  - {holder: "0x00000000000000000000000000000000000000a1", token: WETH, amount: "10"}
  - {holder: "0x00000000000000000000000000000000000000b0", token: USDC, amount: "50000"}
`

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at 2026-01-01 UTC.
func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the current time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// NewSandbox deploys SandboxManifest on clock with a silent engine logger.
func NewSandbox(t *testing.T, clock *Clock, opts ...deploy.Option) *deploy.Platform {
	t.Helper()

	m, err := deploy.Parse([]byte(SandboxManifest))
	if err != nil {
		t.Fatalf("failed to parse sandbox manifest: %v", err)
	}
	opts = append([]deploy.Option{
		deploy.WithClock(clock.Now),
		deploy.WithEngineOptions(vault.WithLogger(logger.Nop())),
	}, opts...)
	p, err := deploy.Apply(m, opts...)
	if err != nil {
		t.Fatalf("failed to deploy sandbox: %v", err)
	}
	return p
}

// CreateTestVault creates a fee-free vault managed by Manager that accepts
// USDC deposits and holds WETH.
func CreateTestVault(t *testing.T, p *deploy.Platform) *vault.Vault {
	t.Helper()
	return CreateTestVaultWithFees(t, p, vault.Fees{})
}

// CreateTestVaultWithFees is CreateTestVault with the given fees.
func CreateTestVaultWithFees(t *testing.T, p *deploy.Platform, fees vault.Fees) *vault.Vault {
	t.Helper()

	v, err := p.Engine.CreateVault(context.Background(), vault.CreateRequest{
		Manager: Manager,
		Name:    "Test Vault",
		Assets: []vault.AssetConfig{
			{Asset: USDC, IsDeposit: true},
			{Asset: WETH},
		},
		Fees: fees,
	})
	if err != nil {
		t.Fatalf("failed to create test vault: %v", err)
	}
	return v
}

// Fund mints amt of asset to holder through the engine.
func Fund(t *testing.T, p *deploy.Platform, asset, holder common.Address, amt sdkmath.Int) {
	t.Helper()

	err := p.Engine.UpdateLedger(context.Background(), func(l *ledger.Ledger) error {
		return l.Mint(asset, holder, amt)
	})
	if err != nil {
		t.Fatalf("failed to fund %s: %v", holder.Hex(), err)
	}
}
