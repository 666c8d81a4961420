// Package assetguard implements the reference asset guards: plain fungible
// balances, staked LP positions, reward-bearing positions and
// aggregator-priced synthetics.
package assetguard

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"vaultcore/internal/amount"
	apperrors "vaultcore/internal/errors"
	"vaultcore/internal/guard"
	"vaultcore/internal/oracle"
)

// ERC20Guard values a plain token balance held in the pool's wallet.
type ERC20Guard struct {
	host   guard.Host
	prices oracle.PriceSource
}

// NewERC20Guard returns a guard pricing tokens through prices.
func NewERC20Guard(host guard.Host, prices oracle.PriceSource) *ERC20Guard {
	return &ERC20Guard{host: host, prices: prices}
}

// Kind implements guard.AssetGuard.
func (g *ERC20Guard) Kind() guard.Kind { return guard.KindFungible }

// Balance implements guard.AssetGuard.
func (g *ERC20Guard) Balance(_ context.Context, pool, asset common.Address) (sdkmath.Int, error) {
	return g.host.BalanceOf(asset, pool), nil
}

// USDValue implements guard.AssetGuard.
func (g *ERC20Guard) USDValue(ctx context.Context, asset common.Address, balance sdkmath.Int) (sdkmath.Int, error) {
	return usdValue(ctx, g.host, g.prices, asset, balance)
}

// WithdrawProcessing implements guard.AssetGuard.
func (g *ERC20Guard) WithdrawProcessing(_ context.Context, pool guard.PoolView, asset common.Address, portion amount.Fraction) (guard.WithdrawResult, error) {
	bal := g.host.BalanceOf(asset, pool.Address())
	return guard.WithdrawResult{
		Transfers: []guard.Transfer{{Asset: asset, Amount: portion.Of(bal)}},
	}, nil
}

func usdValue(ctx context.Context, host guard.Host, prices oracle.PriceSource, asset common.Address, balance sdkmath.Int) (sdkmath.Int, error) {
	if balance.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	info, ok := host.Token(asset)
	if !ok {
		return sdkmath.Int{}, apperrors.WithMessage(apperrors.ErrAssetNotPriced, fmt.Sprintf("unknown token %s", asset.Hex()))
	}
	p, err := prices.USDPrice(ctx, asset)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return oracle.USDValue(balance, info.Decimals, p), nil
}

// SyntheticGuard values a token through the median of several price sources.
type SyntheticGuard struct {
	*ERC20Guard
}

// NewSyntheticGuard returns a guard requiring at least minSources answers.
func NewSyntheticGuard(host guard.Host, sources []oracle.PriceSource, minSources int) *SyntheticGuard {
	agg := &oracle.Aggregator{Sources: sources, MinSources: minSources}
	return &SyntheticGuard{ERC20Guard: NewERC20Guard(host, agg)}
}
