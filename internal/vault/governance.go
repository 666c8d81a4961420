package vault

import (
	"context"
	"strconv"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"vaultcore/internal/amount"
	apperrors "vaultcore/internal/errors"
)

// CreateRequest describes a new vault.
type CreateRequest struct {
	Manager common.Address
	Name    string
	Private bool
	Assets  []AssetConfig
	Fees    Fees
	Members []common.Address
}

// CreateVault deploys a new vault at the next factory address.
func (e *Engine) CreateVault(ctx context.Context, req CreateRequest) (*Vault, error) {
	if inside(ctx) {
		return nil, apperrors.ErrReentrantCall
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "vault name is required")
	}
	if req.Manager == (common.Address{}) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "manager is required")
	}
	if !req.Fees.Within(e.registry.FeeCeilings()) {
		return nil, apperrors.ErrFeeCeilingExceeded
	}
	if e.registry.Paused() {
		return nil, apperrors.ErrPaused
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	addr := crypto.CreateAddress(FactoryAddress, e.nonce)
	if _, exists := e.vaults[addr]; exists {
		return nil, apperrors.ErrVaultExists
	}

	now := e.now()
	v := &Vault{
		Address:       addr,
		Settings:      crypto.CreateAddress(addr, 1),
		Name:          req.Name,
		Manager:       req.Manager,
		Private:       req.Private,
		Members:       make(map[common.Address]bool),
		TotalSupply:   sdkmath.ZeroInt(),
		Shares:        make(map[common.Address]sdkmath.Int),
		Lockups:       make(map[common.Address]Lockup),
		Fees:          req.Fees,
		LastFeeMint:   now,
		HighWaterMark: amount.Unit,
		CreatedAt:     now,
	}
	for _, m := range req.Members {
		v.Members[m] = true
	}

	err := e.run(ctx, v, "create_vault", func(tx *txn) error {
		if err := tx.addAssets(req.Assets); err != nil {
			return err
		}
		tx.emit(EventVaultCreated, req.Manager, map[string]string{
			"name":        req.Name,
			"private":     strconv.FormatBool(req.Private),
			"assets":      strconv.Itoa(len(tx.v.Assets)),
			"streaming":   strconv.FormatUint(uint64(req.Fees.Streaming), 10),
			"performance": strconv.FormatUint(uint64(req.Fees.Performance), 10),
			"entry":       strconv.FormatUint(uint64(req.Fees.Entry), 10),
			"exit":        strconv.FormatUint(uint64(req.Fees.Exit), 10),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.nonce++
	return e.vaults[addr].clone(), nil
}

func (tx *txn) addAssets(add []AssetConfig) error {
	for _, a := range add {
		if tx.e.registry.AssetGuardFor(a.Asset) == nil {
			return apperrors.WithMessage(apperrors.ErrUnsupportedAsset, "no asset guard for "+a.Asset.Hex())
		}
		replaced := false
		for i := range tx.v.Assets {
			if tx.v.Assets[i].Asset == a.Asset {
				tx.v.Assets[i].IsDeposit = a.IsDeposit
				replaced = true
				break
			}
		}
		if !replaced {
			tx.v.Assets = append(tx.v.Assets, a)
		}
	}
	return nil
}

// ChangeAssets adds or updates supported assets and removes others. An asset
// can only be removed once the vault holds none of it.
func (e *Engine) ChangeAssets(ctx context.Context, addr, caller common.Address, add []AssetConfig, remove []common.Address) error {
	return e.apply(ctx, addr, "change_assets", func(tx *txn) error {
		if err := tx.onlyManager(caller); err != nil {
			return err
		}
		if err := tx.addAssets(add); err != nil {
			return err
		}
		for _, asset := range remove {
			if _, ok := tx.v.Asset(asset); !ok {
				return apperrors.WithMessage(apperrors.ErrUnsupportedAsset, "asset not supported: "+asset.Hex())
			}
			g, err := tx.assetGuard(asset)
			if err != nil {
				return err
			}
			bal, err := g.Balance(tx.ctx, tx.v.Address, asset)
			if err != nil {
				return err
			}
			if !bal.IsZero() {
				return apperrors.ErrAssetNotEmpty
			}
			kept := tx.v.Assets[:0]
			for _, a := range tx.v.Assets {
				if a.Asset != asset {
					kept = append(kept, a)
				}
			}
			tx.v.Assets = kept
		}
		tx.emit(EventAssetsChanged, caller, map[string]string{
			"added":   strconv.Itoa(len(add)),
			"removed": strconv.Itoa(len(remove)),
			"assets":  strconv.Itoa(len(tx.v.Assets)),
		})
		return nil
	})
}

// TransferShares moves shares between holders. The sender must be out of
// cooldown and the recipient must be allowed to hold shares.
func (e *Engine) TransferShares(ctx context.Context, addr, from, to common.Address, shares sdkmath.Int) error {
	return e.apply(ctx, addr, "transfer_shares", func(tx *txn) error {
		if err := tx.notPaused(); err != nil {
			return err
		}
		if shares.IsNil() || !shares.IsPositive() {
			return apperrors.ErrInvalidAmount
		}
		if !tx.v.IsMember(to) {
			return apperrors.ErrNotMember
		}
		if err := tx.cooldownElapsed(from); err != nil {
			return err
		}
		fromBefore, toBefore := tx.v.SharesOf(from), tx.v.SharesOf(to)
		if err := tx.moveShares(from, to, shares); err != nil {
			return err
		}
		tx.emit(EventTransfer, from, map[string]string{
			"to":               to.Hex(),
			"shares":           fmtInt(shares),
			"sender_before":    fmtInt(fromBefore),
			"sender_after":     fmtInt(tx.v.SharesOf(from)),
			"recipient_before": fmtInt(toBefore),
			"recipient_after":  fmtInt(tx.v.SharesOf(to)),
		})
		return nil
	})
}

// AnnounceFeeIncrease records a fee change that can be committed once the
// fee change delay has passed. A new announcement replaces any pending one.
func (e *Engine) AnnounceFeeIncrease(ctx context.Context, addr, caller common.Address, fees Fees) error {
	return e.apply(ctx, addr, "announce_fee_increase", func(tx *txn) error {
		if err := tx.onlyManager(caller); err != nil {
			return err
		}
		if !fees.Increases(tx.v.Fees) {
			return apperrors.ErrNotAnIncrease
		}
		if !fees.Within(tx.e.registry.FeeCeilings()) {
			return apperrors.ErrFeeCeilingExceeded
		}
		tx.v.PendingFees = &FeeChange{Fees: fees, AnnouncedAt: tx.now}
		tx.emit(EventFeeAnnounced, caller, feeData(tx.v.Fees, fees, map[string]string{
			"committable_at": tx.now.Add(tx.e.params.FeeChangeDelay).UTC().Format("2006-01-02T15:04:05Z"),
		}))
		return nil
	})
}

// CommitFeeIncrease applies the announced fees after the delay.
func (e *Engine) CommitFeeIncrease(ctx context.Context, addr, caller common.Address) error {
	return e.apply(ctx, addr, "commit_fee_increase", func(tx *txn) error {
		if err := tx.onlyManager(caller); err != nil {
			return err
		}
		pending := tx.v.PendingFees
		if pending == nil {
			return apperrors.ErrNoPendingFeeChange
		}
		if tx.now.Before(pending.AnnouncedAt.Add(tx.e.params.FeeChangeDelay)) {
			return apperrors.ErrFeeIncreaseNotReady
		}
		if !pending.Fees.Within(tx.e.registry.FeeCeilings()) {
			return apperrors.ErrFeeCeilingExceeded
		}
		if err := tx.settleFees(); err != nil {
			return err
		}
		before := tx.v.Fees
		tx.v.Fees = pending.Fees
		tx.v.PendingFees = nil
		tx.emit(EventFeeCommitted, caller, feeData(before, tx.v.Fees, nil))
		return nil
	})
}

// RenounceFeeIncrease cancels the pending announcement.
func (e *Engine) RenounceFeeIncrease(ctx context.Context, addr, caller common.Address) error {
	return e.apply(ctx, addr, "renounce_fee_increase", func(tx *txn) error {
		if err := tx.onlyManager(caller); err != nil {
			return err
		}
		if tx.v.PendingFees == nil {
			return apperrors.ErrNoPendingFeeChange
		}
		renounced := tx.v.PendingFees.Fees
		tx.v.PendingFees = nil
		tx.emit(EventFeeRenounced, caller, feeData(tx.v.Fees, renounced, nil))
		return nil
	})
}

// DecreaseFees applies lower fees immediately, minting fees owed at the old
// rates first.
func (e *Engine) DecreaseFees(ctx context.Context, addr, caller common.Address, fees Fees) error {
	return e.apply(ctx, addr, "decrease_fees", func(tx *txn) error {
		if err := tx.onlyManager(caller); err != nil {
			return err
		}
		if fees.Increases(tx.v.Fees) {
			return apperrors.ErrNotADecrease
		}
		if !fees.Within(tx.e.registry.FeeCeilings()) {
			return apperrors.ErrFeeCeilingExceeded
		}
		if err := tx.settleFees(); err != nil {
			return err
		}
		before := tx.v.Fees
		tx.v.Fees = fees
		tx.emit(EventFeeDecreased, caller, feeData(before, fees, nil))
		return nil
	})
}

func feeData(before, after Fees, extra map[string]string) map[string]string {
	u := func(v uint32) string { return strconv.FormatUint(uint64(v), 10) }
	data := map[string]string{
		"streaming_before":   u(before.Streaming),
		"streaming_after":    u(after.Streaming),
		"performance_before": u(before.Performance),
		"performance_after":  u(after.Performance),
		"entry_before":       u(before.Entry),
		"entry_after":        u(after.Entry),
		"exit_before":        u(before.Exit),
		"exit_after":         u(after.Exit),
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

// SetTrader delegates trading to trader. The zero address revokes it.
func (e *Engine) SetTrader(ctx context.Context, addr, caller, trader common.Address) error {
	return e.apply(ctx, addr, "set_trader", func(tx *txn) error {
		if err := tx.onlyManager(caller); err != nil {
			return err
		}
		before := tx.v.Trader
		tx.v.Trader = trader
		tx.emit(EventTraderSet, caller, map[string]string{
			"trader_before": before.Hex(),
			"trader_after":  trader.Hex(),
		})
		return nil
	})
}

// AddMembers allows holders to deposit into a private vault.
func (e *Engine) AddMembers(ctx context.Context, addr, caller common.Address, members []common.Address) error {
	return e.changeMembers(ctx, addr, caller, members, true)
}

// RemoveMembers revokes membership. Existing shares are untouched.
func (e *Engine) RemoveMembers(ctx context.Context, addr, caller common.Address, members []common.Address) error {
	return e.changeMembers(ctx, addr, caller, members, false)
}

func (e *Engine) changeMembers(ctx context.Context, addr, caller common.Address, members []common.Address, add bool) error {
	return e.apply(ctx, addr, "change_members", func(tx *txn) error {
		if err := tx.onlyManager(caller); err != nil {
			return err
		}
		before := len(tx.v.Members)
		for _, m := range members {
			if add {
				tx.v.Members[m] = true
			} else {
				delete(tx.v.Members, m)
			}
		}
		tx.emit(EventMembersChanged, caller, map[string]string{
			"members_before": strconv.Itoa(before),
			"members_after":  strconv.Itoa(len(tx.v.Members)),
		})
		return nil
	})
}

// SetPaused pauses or resumes deposits, withdrawals and trading on one
// vault. Only the registry owner may do this.
func (e *Engine) SetPaused(ctx context.Context, addr, caller common.Address, paused bool) error {
	return e.apply(ctx, addr, "set_paused", func(tx *txn) error {
		if err := tx.onlyOwner(caller); err != nil {
			return err
		}
		before := tx.v.Paused
		tx.v.Paused = paused
		tx.emit(EventPauseChanged, caller, map[string]string{
			"paused_before": strconv.FormatBool(before),
			"paused_after":  strconv.FormatBool(paused),
		})
		return nil
	})
}

// SetTradingPaused pauses or resumes execution on one vault while leaving
// deposits and withdrawals open.
func (e *Engine) SetTradingPaused(ctx context.Context, addr, caller common.Address, paused bool) error {
	return e.apply(ctx, addr, "set_trading_paused", func(tx *txn) error {
		if err := tx.onlyOwner(caller); err != nil {
			return err
		}
		before := tx.v.TradingPaused
		tx.v.TradingPaused = paused
		tx.emit(EventTradingPaused, caller, map[string]string{
			"trading_paused_before": strconv.FormatBool(before),
			"trading_paused_after":  strconv.FormatBool(paused),
		})
		return nil
	})
}
