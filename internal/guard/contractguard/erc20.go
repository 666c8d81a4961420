// Package contractguard implements the reference contract guards. A guard
// only decodes and judges a proposed call; the engine performs it.
package contractguard

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"vaultcore/internal/calldata"
	apperrors "vaultcore/internal/errors"
	"vaultcore/internal/guard"
)

// ERC20Guard allows approvals of supported tokens to spenders that are
// themselves guarded targets. Direct transfers would move custody out of
// the pool and are always rejected.
type ERC20Guard struct {
	lookup guard.Lookup
}

// NewERC20Guard returns a guard resolving spenders through lookup.
func NewERC20Guard(lookup guard.Lookup) *ERC20Guard {
	return &ERC20Guard{lookup: lookup}
}

// Evaluate implements guard.ContractGuard.
func (g *ERC20Guard) Evaluate(_ context.Context, pool guard.PoolView, target common.Address, data []byte) (guard.Verdict, error) {
	call, err := calldata.Decode(calldata.ERC20, data)
	if err != nil {
		return guard.Verdict{}, apperrors.Wrap(apperrors.ErrInvalidTransaction, err)
	}
	if call.Name() != "approve" {
		return guard.Verdict{}, apperrors.ErrInvalidTransaction
	}

	spender, err := call.Address(0)
	if err != nil {
		return guard.Verdict{}, apperrors.Wrap(apperrors.ErrInvalidTransaction, err)
	}
	if !pool.IsSupportedAsset(target) {
		return guard.Verdict{}, apperrors.ErrUnsupportedAsset
	}
	if g.lookup.ContractGuard(spender) == nil {
		return guard.Verdict{}, apperrors.ErrUnapprovedSpender
	}
	return guard.Verdict{Type: guard.TxApprove, Touched: []common.Address{target}}, nil
}
