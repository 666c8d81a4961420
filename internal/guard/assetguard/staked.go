package assetguard

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sasha-s/go-deadlock"

	"vaultcore/internal/amount"
	"vaultcore/internal/calldata"
	"vaultcore/internal/guard"
	"vaultcore/internal/oracle"
)

// Binding ties a staked asset to the staking pool holding its position and
// the token that pool pays rewards in.
type Binding struct {
	Staking     common.Address
	RewardToken common.Address
}

// StakedLPGuard values an LP token held partly in the pool's wallet and
// partly staked. Withdrawals unstake the withdrawn portion of the staked
// position so the remainder stays staked.
type StakedLPGuard struct {
	host   guard.Host
	prices oracle.PriceSource

	mu       deadlock.RWMutex
	bindings map[common.Address]Binding
}

// NewStakedLPGuard returns a guard with no bindings.
func NewStakedLPGuard(host guard.Host, prices oracle.PriceSource) *StakedLPGuard {
	return &StakedLPGuard{
		host:     host,
		prices:   prices,
		bindings: make(map[common.Address]Binding),
	}
}

// Bind records the staking pool of asset.
func (g *StakedLPGuard) Bind(asset common.Address, b Binding) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bindings[asset] = b
}

func (g *StakedLPGuard) binding(asset common.Address) (Binding, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	b, ok := g.bindings[asset]
	return b, ok
}

// Kind implements guard.AssetGuard.
func (g *StakedLPGuard) Kind() guard.Kind { return guard.KindPosition }

func (g *StakedLPGuard) staked(ctx context.Context, pool, asset common.Address) (sdkmath.Int, error) {
	b, ok := g.binding(asset)
	if !ok {
		return sdkmath.ZeroInt(), nil
	}
	ret, err := g.host.View(ctx, b.Staking, calldata.MustEncode(calldata.Staking, "balanceOf", pool))
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("read staked balance: %w", err)
	}
	return calldata.DecodeUint(ret)
}

// Balance implements guard.AssetGuard.
func (g *StakedLPGuard) Balance(ctx context.Context, pool, asset common.Address) (sdkmath.Int, error) {
	staked, err := g.staked(ctx, pool, asset)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return g.host.BalanceOf(asset, pool).Add(staked), nil
}

// USDValue implements guard.AssetGuard.
func (g *StakedLPGuard) USDValue(ctx context.Context, asset common.Address, balance sdkmath.Int) (sdkmath.Int, error) {
	return usdValue(ctx, g.host, g.prices, asset, balance)
}

// WithdrawProcessing implements guard.AssetGuard.
func (g *StakedLPGuard) WithdrawProcessing(ctx context.Context, pool guard.PoolView, asset common.Address, portion amount.Fraction) (guard.WithdrawResult, error) {
	wallet := g.host.BalanceOf(asset, pool.Address())
	staked, err := g.staked(ctx, pool.Address(), asset)
	if err != nil {
		return guard.WithdrawResult{}, err
	}

	unstake := portion.Of(staked)
	if unstake.IsPositive() {
		b, _ := g.binding(asset)
		data := calldata.MustEncode(calldata.Staking, "withdraw", unstake)
		if _, err := g.host.Call(ctx, pool.Address(), b.Staking, data); err != nil {
			return guard.WithdrawResult{}, fmt.Errorf("unstake %s: %w", unstake, err)
		}
	}

	return guard.WithdrawResult{
		Transfers: []guard.Transfer{{Asset: asset, Amount: portion.Of(wallet).Add(unstake)}},
		Unwound:   unstake.IsPositive(),
	}, nil
}

// RewardBearingGuard is a staked position that also accrues rewards.
// Pending rewards are not part of the position's value; they are claimed
// into the pool during withdrawal processing when the pool supports the
// reward token, and the reward token's own guard then distributes them.
type RewardBearingGuard struct {
	*StakedLPGuard
}

// NewRewardBearingGuard returns a guard with no bindings.
func NewRewardBearingGuard(host guard.Host, prices oracle.PriceSource) *RewardBearingGuard {
	return &RewardBearingGuard{StakedLPGuard: NewStakedLPGuard(host, prices)}
}

// WithdrawProcessing implements guard.AssetGuard.
func (g *RewardBearingGuard) WithdrawProcessing(ctx context.Context, pool guard.PoolView, asset common.Address, portion amount.Fraction) (guard.WithdrawResult, error) {
	b, ok := g.binding(asset)
	claimed := false
	if ok && pool.IsSupportedAsset(b.RewardToken) {
		ret, err := g.host.View(ctx, b.Staking, calldata.MustEncode(calldata.Staking, "earned", pool.Address()))
		if err != nil {
			return guard.WithdrawResult{}, fmt.Errorf("read earned rewards: %w", err)
		}
		earned, err := calldata.DecodeUint(ret)
		if err != nil {
			return guard.WithdrawResult{}, err
		}
		if earned.IsPositive() {
			if _, err := g.host.Call(ctx, pool.Address(), b.Staking, calldata.MustEncode(calldata.Staking, "getReward")); err != nil {
				return guard.WithdrawResult{}, fmt.Errorf("claim rewards: %w", err)
			}
			claimed = true
		}
	}

	res, err := g.StakedLPGuard.WithdrawProcessing(ctx, pool, asset, portion)
	if err != nil {
		return guard.WithdrawResult{}, err
	}
	res.Unwound = res.Unwound || claimed
	return res, nil
}
