package vault

import (
	"context"
	"fmt"
	"sort"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"vaultcore/internal/amount"
	apperrors "vaultcore/internal/errors"
	"vaultcore/internal/guard"
)

const secondsPerYear = 365 * 24 * 60 * 60

// DepositResult reports the outcome of a deposit.
type DepositResult struct {
	Shares   sdkmath.Int
	EntryFee sdkmath.Int
	ValueUSD sdkmath.Int
	Cooldown time.Duration
}

// WithdrawResult reports the outcome of a withdrawal.
type WithdrawResult struct {
	Redeemed  sdkmath.Int
	ExitFee   sdkmath.Int
	Transfers []guard.Transfer
}

func (tx *txn) assetGuard(asset common.Address) (guard.AssetGuard, error) {
	g := tx.e.registry.AssetGuardFor(asset)
	if g == nil {
		return nil, apperrors.WithMessage(apperrors.ErrAssetNotPriced, "no asset guard for "+asset.Hex())
	}
	return g, nil
}

// fundValue is the 18-decimal USD value of everything the vault holds.
func (tx *txn) fundValue() (sdkmath.Int, error) {
	total := sdkmath.ZeroInt()
	for _, a := range tx.v.Assets {
		g, err := tx.assetGuard(a.Asset)
		if err != nil {
			return sdkmath.Int{}, err
		}
		bal, err := g.Balance(tx.ctx, tx.v.Address, a.Asset)
		if err != nil {
			return sdkmath.Int{}, err
		}
		if bal.IsZero() {
			continue
		}
		val, err := g.USDValue(tx.ctx, a.Asset, bal)
		if err != nil {
			return sdkmath.Int{}, err
		}
		total = total.Add(val)
	}
	return total, nil
}

// pendingFees returns the performance and streaming fee shares owed at nav.
// Streaming fees are not charged while the share price is below the high
// water mark.
func (tx *txn) pendingFees(nav sdkmath.Int) (performance, streaming sdkmath.Int) {
	performance, streaming = sdkmath.ZeroInt(), sdkmath.ZeroInt()
	supply := tx.v.TotalSupply
	if !supply.IsPositive() || !nav.IsPositive() {
		return performance, streaming
	}

	price := amount.MulDiv(nav, amount.Unit, supply)
	hwm := tx.v.HighWaterMark
	fees := tx.v.Fees

	if price.GT(hwm) && fees.Performance > 0 {
		gain := price.Sub(hwm)
		performance = supply.Mul(gain).MulRaw(int64(fees.Performance)).
			Quo(price.MulRaw(amount.BpsDenominator))
	}

	if price.GTE(hwm) && fees.Streaming > 0 && tx.now.After(tx.v.LastFeeMint) {
		elapsed := int64(tx.now.Sub(tx.v.LastFeeMint) / time.Second)
		streaming = supply.MulRaw(elapsed).MulRaw(int64(fees.Streaming)).
			QuoRaw(secondsPerYear * amount.BpsDenominator)
	}
	return performance, streaming
}

// distributeFee mints fee shares to the manager, routing the treasury's
// share to the treasury address.
func (tx *txn) distributeFee(fee sdkmath.Int) (toManager, toTreasury sdkmath.Int) {
	bps, treasury := tx.e.registry.TreasuryShare()
	toTreasury = amount.Bps(fee, bps)
	toManager = fee.Sub(toTreasury)
	tx.mintShares(tx.v.Manager, toManager)
	tx.mintShares(treasury, toTreasury)
	return toManager, toTreasury
}

// mintManagerFee mints pending fees at nav and moves the high water mark.
// Fee shares are priced so the per-share price after minting equals
// TokenPrice before it.
func (tx *txn) mintManagerFee(nav sdkmath.Int) {
	defer func() { tx.v.LastFeeMint = tx.now }()
	if !tx.v.TotalSupply.IsPositive() {
		return
	}

	performance, streaming := tx.pendingFees(nav)
	total := performance.Add(streaming)
	supplyBefore := tx.v.TotalSupply
	hwmBefore := tx.v.HighWaterMark

	var toManager, toTreasury sdkmath.Int
	if total.IsPositive() {
		toManager, toTreasury = tx.distributeFee(total)
	}

	price := amount.MulDiv(nav, amount.Unit, tx.v.TotalSupply)
	if price.GT(tx.v.HighWaterMark) {
		tx.v.HighWaterMark = price
	}

	if total.IsPositive() {
		tx.emit(EventFeeMint, tx.v.Manager, map[string]string{
			"performance_fee":   fmtInt(performance),
			"streaming_fee":     fmtInt(streaming),
			"to_manager":        fmtInt(toManager),
			"to_treasury":       fmtInt(toTreasury),
			"supply_before":     fmtInt(supplyBefore),
			"supply_after":      fmtInt(tx.v.TotalSupply),
			"high_water_before": fmtInt(hwmBefore),
			"high_water_after":  fmtInt(tx.v.HighWaterMark),
			"fund_value":        fmtInt(nav),
		})
	}
}

// settleFees mints pending fees before a parameter change.
func (tx *txn) settleFees() error {
	if !tx.v.TotalSupply.IsPositive() {
		tx.v.LastFeeMint = tx.now
		return nil
	}
	nav, err := tx.fundValue()
	if err != nil {
		return err
	}
	tx.mintManagerFee(nav)
	return nil
}

func (tx *txn) tokenPrice() (sdkmath.Int, error) {
	if !tx.v.TotalSupply.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}
	nav, err := tx.fundValue()
	if err != nil {
		return sdkmath.Int{}, err
	}
	performance, streaming := tx.pendingFees(nav)
	return amount.MulDiv(nav, amount.Unit, tx.v.TotalSupply.Add(performance).Add(streaming)), nil
}

// FundValue returns the 18-decimal USD value of the vault's holdings.
func (e *Engine) FundValue(ctx context.Context, addr common.Address) (sdkmath.Int, error) {
	var nav sdkmath.Int
	err := e.read(ctx, addr, func(tx *txn) error {
		var err error
		nav, err = tx.fundValue()
		return err
	})
	return nav, err
}

// TokenPrice returns the 18-decimal USD price of one share, net of fees that
// are owed but not yet minted. It is zero for an empty vault.
func (e *Engine) TokenPrice(ctx context.Context, addr common.Address) (sdkmath.Int, error) {
	var price sdkmath.Int
	err := e.read(ctx, addr, func(tx *txn) error {
		var err error
		price, err = tx.tokenPrice()
		return err
	})
	return price, err
}

// PendingFees returns the performance and streaming fee shares that a fee
// mint would issue now.
func (e *Engine) PendingFees(ctx context.Context, addr common.Address) (performance, streaming sdkmath.Int, err error) {
	err = e.read(ctx, addr, func(tx *txn) error {
		nav, err := tx.fundValue()
		if err != nil {
			return err
		}
		performance, streaming = tx.pendingFees(nav)
		return nil
	})
	return performance, streaming, err
}

// MintManagerFee mints all pending fees. Anyone may trigger it.
func (e *Engine) MintManagerFee(ctx context.Context, addr common.Address) error {
	return e.apply(ctx, addr, "mint_manager_fee", func(tx *txn) error {
		if err := tx.notPaused(); err != nil {
			return err
		}
		return tx.settleFees()
	})
}

// Deposit converts amount of asset from depositor into vault shares.
func (e *Engine) Deposit(ctx context.Context, addr, depositor, asset common.Address, amt sdkmath.Int) (DepositResult, error) {
	var res DepositResult
	err := e.apply(ctx, addr, "deposit", func(tx *txn) error {
		if err := tx.notPaused(); err != nil {
			return err
		}
		if !tx.v.IsMember(depositor) {
			return apperrors.ErrNotMember
		}
		cfg, ok := tx.v.Asset(asset)
		if !ok || !cfg.IsDeposit {
			return apperrors.ErrInvalidDepositAsset
		}
		if amt.IsNil() || !amt.IsPositive() {
			return apperrors.ErrInvalidAmount
		}
		g, err := tx.assetGuard(asset)
		if err != nil {
			return err
		}

		nav, err := tx.fundValue()
		if err != nil {
			return err
		}
		tx.mintManagerFee(nav)
		supply := tx.v.TotalSupply

		if err := tx.e.ledger.Transfer(asset, depositor, tx.v.Address, amt); err != nil {
			return apperrors.Wrap(apperrors.ErrInsufficientBalance, err)
		}
		value, err := g.USDValue(tx.ctx, asset, amt)
		if err != nil {
			return err
		}

		minted := value
		if supply.IsPositive() {
			if !nav.IsPositive() {
				return apperrors.WithMessage(apperrors.ErrInvalidLiquidityMinted, "fund value is zero")
			}
			minted = amount.MulDiv(value, supply, nav)
		}
		if !minted.IsPositive() {
			return apperrors.ErrInvalidLiquidityMinted
		}

		entryFee := sdkmath.ZeroInt()
		if depositor != tx.v.Manager {
			entryFee = amount.Bps(minted, tx.v.Fees.Entry)
		}
		received := minted.Sub(entryFee)
		balanceBefore := tx.v.SharesOf(depositor)

		tx.mintShares(depositor, received)
		if entryFee.IsPositive() {
			tx.distributeFee(entryFee)
		}
		if tx.v.TotalSupply.LT(tx.e.params.MinSupply) {
			return apperrors.ErrInvalidLiquidityMinted
		}

		prev := tx.v.Lockups[depositor]
		cooldown := CalculateCooldown(balanceBefore, received, tx.e.params.DefaultCooldown, prev.Duration, prev.LastDeposit, tx.now)
		tx.v.Lockups[depositor] = Lockup{Duration: cooldown, LastDeposit: tx.now}

		tx.emit(EventDeposit, depositor, map[string]string{
			"asset":          asset.Hex(),
			"amount":         fmtInt(amt),
			"value_usd":      fmtInt(value),
			"fund_value":     fmtInt(nav),
			"shares_minted":  fmtInt(received),
			"entry_fee":      fmtInt(entryFee),
			"balance_before": fmtInt(balanceBefore),
			"balance_after":  fmtInt(tx.v.SharesOf(depositor)),
			"supply_before":  fmtInt(supply),
			"supply_after":   fmtInt(tx.v.TotalSupply),
			"cooldown":       cooldown.String(),
		})

		res = DepositResult{Shares: received, EntryFee: entryFee, ValueUSD: value, Cooldown: cooldown}
		return nil
	})
	return res, err
}

// Withdraw redeems shares for the withdrawer's pro-rata portion of every
// supported asset.
func (e *Engine) Withdraw(ctx context.Context, addr, withdrawer common.Address, shares sdkmath.Int) (WithdrawResult, error) {
	var res WithdrawResult
	err := e.apply(ctx, addr, "withdraw", func(tx *txn) error {
		if err := tx.notPaused(); err != nil {
			return err
		}
		if shares.IsNil() || !shares.IsPositive() {
			return apperrors.ErrInvalidAmount
		}
		balanceBefore := tx.v.SharesOf(withdrawer)
		if balanceBefore.LT(shares) {
			return apperrors.ErrInsufficientShares
		}
		if err := tx.cooldownElapsed(withdrawer); err != nil {
			return err
		}

		nav, err := tx.fundValue()
		if err != nil {
			return err
		}
		tx.mintManagerFee(nav)

		exitFee := sdkmath.ZeroInt()
		if withdrawer != tx.v.Manager {
			exitFee = amount.Bps(shares, tx.v.Fees.Exit)
		}
		if exitFee.IsPositive() {
			if err := tx.moveShares(withdrawer, tx.v.Manager, exitFee); err != nil {
				return err
			}
		}
		redeem := shares.Sub(exitFee)
		supply := tx.v.TotalSupply
		remaining := supply.Sub(redeem)
		if !tx.floorOK(remaining) {
			return apperrors.ErrSupplyBelowFloor
		}

		portion, err := amount.NewFraction(redeem, supply)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInvalidAmount, err)
		}
		if err := tx.burnShares(withdrawer, redeem); err != nil {
			return err
		}

		transfers, err := tx.processWithdrawal(withdrawer, portion)
		if err != nil {
			return err
		}

		if tx.v.TotalSupply.IsZero() {
			tx.v.HighWaterMark = amount.Unit
			tx.v.LastFeeMint = tx.now
		}

		data := map[string]string{
			"shares":         fmtInt(shares),
			"redeemed":       fmtInt(redeem),
			"exit_fee":       fmtInt(exitFee),
			"portion":        portion.String(),
			"fund_value":     fmtInt(nav),
			"balance_before": fmtInt(balanceBefore),
			"balance_after":  fmtInt(tx.v.SharesOf(withdrawer)),
			"supply_before":  fmtInt(supply),
			"supply_after":   fmtInt(tx.v.TotalSupply),
		}
		for _, t := range transfers {
			data["out_"+t.Asset.Hex()] = fmtInt(t.Amount)
		}
		tx.emit(EventWithdraw, withdrawer, data)

		res = WithdrawResult{Redeemed: redeem, ExitFee: exitFee, Transfers: transfers}
		return nil
	})
	return res, err
}

func (tx *txn) cooldownElapsed(holder common.Address) error {
	if tx.e.registry.CooldownExempt(holder) {
		return nil
	}
	if tx.now.Before(tx.v.Lockups[holder].Until()) {
		return apperrors.WithMessage(apperrors.ErrCooldownActive,
			fmt.Sprintf("cooldown active until %s", tx.v.Lockups[holder].Until().UTC().Format(time.RFC3339)))
	}
	return nil
}

// withdrawalOrder lists supported assets with positions first, so rewards a
// position releases during its unwind are distributed by their own guard in
// the same withdrawal.
func (tx *txn) withdrawalOrder() ([]common.Address, map[common.Address]guard.AssetGuard, error) {
	guards := make(map[common.Address]guard.AssetGuard, len(tx.v.Assets))
	order := make([]common.Address, 0, len(tx.v.Assets))
	for _, a := range tx.v.Assets {
		g, err := tx.assetGuard(a.Asset)
		if err != nil {
			return nil, nil, err
		}
		guards[a.Asset] = g
		order = append(order, a.Asset)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return guards[order[i]].Kind() < guards[order[j]].Kind()
	})
	return order, guards, nil
}

func (tx *txn) processWithdrawal(to common.Address, portion amount.Fraction) ([]guard.Transfer, error) {
	order, guards, err := tx.withdrawalOrder()
	if err != nil {
		return nil, err
	}

	var out []guard.Transfer
	view := tx.v.view()
	for _, asset := range order {
		g := guards[asset]
		pre, err := g.Balance(tx.ctx, tx.v.Address, asset)
		if err != nil {
			return nil, err
		}
		if pre.IsZero() {
			continue
		}

		res, err := g.WithdrawProcessing(tx.ctx, view, asset, portion)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrWithdrawMismatch, err)
		}

		own := sdkmath.ZeroInt()
		for _, t := range res.Transfers {
			if !t.Amount.IsPositive() {
				continue
			}
			if _, ok := tx.v.Asset(t.Asset); !ok {
				return nil, apperrors.WithMessage(apperrors.ErrUnsupportedAsset, "withdrawal of unsupported asset "+t.Asset.Hex())
			}
			if err := tx.e.ledger.Transfer(t.Asset, tx.v.Address, to, t.Amount); err != nil {
				return nil, apperrors.Wrap(apperrors.ErrWithdrawMismatch, err)
			}
			if t.Asset == asset {
				own = own.Add(t.Amount)
			}
			out = append(out, t)
		}

		// Plain balances split exactly; an unwind may land slightly off the
		// requested portion.
		var tol uint32
		if res.Unwound {
			tol = tx.e.params.WithdrawToleranceBps
		}
		want := portion.Of(pre)
		if !withinRounding(own, want, tol) {
			return nil, apperrors.WithMessage(apperrors.ErrWithdrawMismatch,
				fmt.Sprintf("asset %s returned %s, expected %s", asset.Hex(), own, want))
		}
	}
	return out, nil
}

// withinRounding accepts a one-unit difference or one within tol bps.
func withinRounding(got, want sdkmath.Int, tol uint32) bool {
	if got.Sub(want).Abs().LTE(sdkmath.OneInt()) {
		return true
	}
	return amount.WithinBps(got, want, tol)
}
