package contractguard

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"vaultcore/internal/calldata"
	apperrors "vaultcore/internal/errors"
	"vaultcore/internal/guard"
)

// SwapRouterGuard allows exact-input swaps between supported assets that
// pay the output back to the pool.
type SwapRouterGuard struct{}

// NewSwapRouterGuard returns a swap router guard.
func NewSwapRouterGuard() *SwapRouterGuard { return &SwapRouterGuard{} }

// Evaluate implements guard.ContractGuard.
func (g *SwapRouterGuard) Evaluate(_ context.Context, pool guard.PoolView, _ common.Address, data []byte) (guard.Verdict, error) {
	call, err := calldata.Decode(calldata.Router, data)
	if err != nil {
		return guard.Verdict{}, apperrors.Wrap(apperrors.ErrInvalidTransaction, err)
	}
	if call.Name() != "swapExactTokensForTokens" {
		return guard.Verdict{}, apperrors.ErrInvalidTransaction
	}

	path, err := call.Path(2)
	if err != nil || len(path) < 2 {
		return guard.Verdict{}, apperrors.WithMessage(apperrors.ErrInvalidTransaction, "invalid swap path")
	}
	to, err := call.Address(3)
	if err != nil {
		return guard.Verdict{}, apperrors.Wrap(apperrors.ErrInvalidTransaction, err)
	}

	src, dst := path[0], path[len(path)-1]
	if !pool.IsSupportedAsset(src) {
		return guard.Verdict{}, apperrors.ErrUnsupportedSource
	}
	if !pool.IsSupportedAsset(dst) {
		return guard.Verdict{}, apperrors.ErrUnsupportedDest
	}
	if to != pool.Address() {
		return guard.Verdict{}, apperrors.ErrRecipientNotPool
	}
	return guard.Verdict{Type: guard.TxExchange, Touched: []common.Address{src, dst}}, nil
}
