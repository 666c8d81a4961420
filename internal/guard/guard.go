// Package guard defines the strategy contracts the vault engine dispatches to.
//
// A ContractGuard decides whether a manager-initiated call against one
// external target is allowed. An AssetGuard values one asset type and unwinds
// it on withdrawal. Both are resolved through the capability registry; an
// absent guard always means "not authorized" or "not priced".
package guard

import (
	"context"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"vaultcore/internal/amount"
	"vaultcore/internal/ledger"
)

// TxType categorizes an authorized external call.
type TxType uint8

const (
	TxApprove TxType = iota + 1
	TxExchange
	TxStake
	TxUnstake
	TxClaim
	TxExit
)

var txTypeNames = map[TxType]string{
	TxApprove:  "approve",
	TxExchange: "exchange",
	TxStake:    "stake",
	TxUnstake:  "unstake",
	TxClaim:    "claim",
	TxExit:     "exit",
}

func (t TxType) String() string {
	if name, ok := txTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Verdict is a contract guard's decision for an allowed call.
type Verdict struct {
	Type TxType
	// Public calls may be triggered by anyone; all others require the
	// manager or the trader.
	Public bool
	// Touched lists the pool assets the call is allowed to affect.
	Touched []common.Address
}

// PoolView is the read-only vault state a guard may inspect.
type PoolView interface {
	Address() common.Address
	Manager() common.Address
	IsSupportedAsset(asset common.Address) bool
	SupportedAssets() []common.Address
}

// Host is the ledger surface guards run against.
type Host interface {
	Token(asset common.Address) (ledger.TokenInfo, bool)
	BalanceOf(asset, holder common.Address) sdkmath.Int
	Call(ctx context.Context, from, to common.Address, data []byte) ([]byte, error)
	View(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// ContractGuard inspects a proposed call. It never moves funds. A rejected
// call is reported as an error carrying the rejection reason.
type ContractGuard interface {
	Evaluate(ctx context.Context, pool PoolView, target common.Address, data []byte) (Verdict, error)
}

// Lookup resolves contract guards by target, as the registry does.
type Lookup interface {
	ContractGuard(target common.Address) ContractGuard
}

// Kind orders asset processing during withdrawals: positions are unwound
// before fungible balances so that anything an unwind releases is
// distributed in the same withdrawal.
type Kind uint8

const (
	KindPosition Kind = iota
	KindFungible
)

// Transfer is an amount the engine sends from the pool to the withdrawer.
type Transfer struct {
	Asset  common.Address
	Amount sdkmath.Int
}

// WithdrawResult is the outcome of an asset guard's withdrawal processing.
type WithdrawResult struct {
	Transfers []Transfer
	// Unwound reports that positions were partially exited to free the
	// withdrawn portion.
	Unwound bool
}

// AssetGuard values and unwinds one asset type.
type AssetGuard interface {
	Kind() Kind
	// Balance is the pool's full balance in asset, including any position
	// the guard tracks outside the pool's wallet.
	Balance(ctx context.Context, pool, asset common.Address) (sdkmath.Int, error)
	// USDValue returns the 18-decimal USD value of balance units of asset.
	USDValue(ctx context.Context, asset common.Address, balance sdkmath.Int) (sdkmath.Int, error)
	// WithdrawProcessing unwinds as needed and returns exactly portion of the
	// pre-unwind balance, leaving the rest in the same position.
	WithdrawProcessing(ctx context.Context, pool PoolView, asset common.Address, portion amount.Fraction) (WithdrawResult, error)
}
