package vault

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"vaultcore/internal/amount"
	apperrors "vaultcore/internal/errors"
	"vaultcore/internal/guard"
)

// Call is one external call proposed by a manager or trader.
type Call struct {
	Target common.Address
	Data   []byte
}

// Execute authorizes and performs a single external call from the vault.
func (e *Engine) Execute(ctx context.Context, addr, caller, target common.Address, data []byte) error {
	return e.ExecuteBatch(ctx, addr, caller, []Call{{Target: target, Data: data}})
}

// ExecuteBatch authorizes and performs calls in order. Either every call
// succeeds and passes revalidation or none takes effect.
func (e *Engine) ExecuteBatch(ctx context.Context, addr, caller common.Address, calls []Call) error {
	return e.apply(ctx, addr, "execute", func(tx *txn) error {
		if len(calls) == 0 {
			return apperrors.WithMessage(apperrors.ErrInvalidTransaction, "empty batch")
		}
		if err := tx.notPaused(); err != nil {
			return err
		}
		if tx.v.TradingPaused {
			return apperrors.ErrTradingPaused
		}

		checkNAV := tx.e.params.NAVLossToleranceBps < amount.BpsDenominator
		var navBefore sdkmath.Int
		if checkNAV {
			var err error
			if navBefore, err = tx.fundValue(); err != nil {
				return err
			}
		}

		for i, c := range calls {
			if err := tx.execute(i, caller, c); err != nil {
				return err
			}
		}

		if checkNAV {
			navAfter, err := tx.fundValue()
			if err != nil {
				return err
			}
			floor := navBefore.Sub(amount.Bps(navBefore, tx.e.params.NAVLossToleranceBps))
			if navAfter.LT(floor) {
				return apperrors.WithMessage(apperrors.ErrNAVLossExceeded,
					fmt.Sprintf("fund value fell from %s to %s", navBefore, navAfter))
			}
		}
		return nil
	})
}

func (tx *txn) execute(index int, caller common.Address, c Call) error {
	if c.Target == tx.v.Address || c.Target == tx.v.Settings {
		return apperrors.ErrSelfModification
	}
	g := tx.e.registry.ContractGuard(c.Target)
	if g == nil {
		return apperrors.ErrInvalidDestination
	}

	verdict, err := g.Evaluate(tx.ctx, tx.v.view(), c.Target, c.Data)
	if err != nil {
		return err
	}
	if !verdict.Public && caller != tx.v.Manager && caller != tx.v.Trader {
		return apperrors.ErrOnlyManagerOrTrader
	}

	before := tx.holdings()
	if _, err := tx.e.ledger.Call(tx.ctx, tx.v.Address, c.Target, c.Data); err != nil {
		return apperrors.Wrap(apperrors.ErrCallFailed, err)
	}
	if err := tx.revalidate(before, verdict); err != nil {
		return err
	}

	selector := ""
	if len(c.Data) >= 4 {
		selector = "0x" + hex.EncodeToString(c.Data[:4])
	}
	tx.emit(EventExecute, caller, map[string]string{
		"index":    strconv.Itoa(index),
		"target":   c.Target.Hex(),
		"selector": selector,
		"tx_type":  verdict.Type.String(),
		"public":   strconv.FormatBool(verdict.Public),
	})
	return nil
}

// holdings snapshots the vault's balance of every supported asset and every
// other token it holds.
func (tx *txn) holdings() map[common.Address]sdkmath.Int {
	out := make(map[common.Address]sdkmath.Int)
	for _, a := range tx.v.Assets {
		out[a.Asset] = tx.e.ledger.BalanceOf(a.Asset, tx.v.Address)
	}
	for _, asset := range tx.e.ledger.Holdings(tx.v.Address) {
		out[asset] = tx.e.ledger.BalanceOf(asset, tx.v.Address)
	}
	return out
}

// revalidate checks that a call only moved balances of supported assets the
// guard declared as touched.
func (tx *txn) revalidate(before map[common.Address]sdkmath.Int, verdict guard.Verdict) error {
	touched := make(map[common.Address]bool, len(verdict.Touched))
	for _, a := range verdict.Touched {
		touched[a] = true
	}

	after := tx.holdings()
	check := func(asset common.Address) error {
		prev, ok := before[asset]
		if !ok {
			prev = sdkmath.ZeroInt()
		}
		next, ok := after[asset]
		if !ok {
			next = sdkmath.ZeroInt()
		}
		if prev.Equal(next) {
			return nil
		}
		if _, supported := tx.v.Asset(asset); !supported || !touched[asset] {
			return apperrors.WithMessage(apperrors.ErrUnexpectedAssetChange,
				fmt.Sprintf("balance of %s changed from %s to %s", asset.Hex(), prev, next))
		}
		return nil
	}
	for asset := range before {
		if err := check(asset); err != nil {
			return err
		}
	}
	for asset := range after {
		if _, seen := before[asset]; seen {
			continue
		}
		if err := check(asset); err != nil {
			return err
		}
	}
	return nil
}
