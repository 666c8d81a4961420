// Package oracle resolves USD prices for assets. Every failure mode maps to a
// distinct error so valuation can fail closed with a specific reason.
package oracle

import (
	"context"
	"fmt"
	"sort"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sasha-s/go-deadlock"

	"vaultcore/internal/amount"
	apperrors "vaultcore/internal/errors"
)

// Price is a USD price with its own precision.
type Price struct {
	Value     sdkmath.Int
	Decimals  uint8
	UpdatedAt time.Time
}

// Normalized returns the price scaled to 18 decimals.
func (p Price) Normalized() sdkmath.Int {
	return amount.MulDiv(p.Value, amount.Unit, amount.Pow10(p.Decimals))
}

// PriceSource returns the current USD price of an asset.
type PriceSource interface {
	USDPrice(ctx context.Context, asset common.Address) (Price, error)
}

// Feed is a single price feed for one asset.
type Feed interface {
	Latest(ctx context.Context) (Price, error)
}

// USDValue converts balance units of a token with tokenDecimals into an
// 18-decimal USD value.
func USDValue(balance sdkmath.Int, tokenDecimals uint8, p Price) sdkmath.Int {
	num := balance.Mul(p.Value).Mul(amount.Unit)
	den := amount.Pow10(tokenDecimals).Mul(amount.Pow10(p.Decimals))
	return num.Quo(den)
}

// FeedOracle serves prices from per-asset feeds and rejects prices older
// than its staleness timeout.
type FeedOracle struct {
	mu      deadlock.RWMutex
	feeds   map[common.Address]Feed
	timeout time.Duration
	now     func() time.Time
}

// NewFeedOracle creates an oracle with the given staleness timeout.
func NewFeedOracle(timeout time.Duration) *FeedOracle {
	return &FeedOracle{
		feeds:   make(map[common.Address]Feed),
		timeout: timeout,
		now:     time.Now,
	}
}

// WithClock overrides the time source.
func (o *FeedOracle) WithClock(now func() time.Time) *FeedOracle {
	o.now = now
	return o
}

// SetFeed installs or replaces the feed for asset.
func (o *FeedOracle) SetFeed(asset common.Address, f Feed) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.feeds[asset] = f
}

// USDPrice implements PriceSource.
func (o *FeedOracle) USDPrice(ctx context.Context, asset common.Address) (Price, error) {
	o.mu.RLock()
	f, ok := o.feeds[asset]
	o.mu.RUnlock()
	if !ok {
		return Price{}, apperrors.WithMessage(apperrors.ErrPriceFeedMissing, "price feed not found for "+asset.Hex())
	}

	p, err := f.Latest(ctx)
	if err != nil {
		return Price{}, apperrors.Wrap(apperrors.ErrPriceFeedReverted, err)
	}
	if p.Value.IsNil() || !p.Value.IsPositive() {
		return Price{}, apperrors.ErrPriceNonPositive
	}
	if o.timeout > 0 && o.now().Sub(p.UpdatedAt) > o.timeout {
		return Price{}, apperrors.WithMessage(apperrors.ErrPriceStale,
			fmt.Sprintf("price for %s updated at %s", asset.Hex(), p.UpdatedAt.UTC().Format(time.RFC3339)))
	}
	return p, nil
}

// StaticFeed is a settable feed, used by the sandbox deployment and tests.
type StaticFeed struct {
	mu    deadlock.RWMutex
	price Price
	err   error
}

// NewStaticFeed returns a feed reporting value with the given decimals.
func NewStaticFeed(value sdkmath.Int, decimals uint8, at time.Time) *StaticFeed {
	return &StaticFeed{price: Price{Value: value, Decimals: decimals, UpdatedAt: at}}
}

// Set replaces the reported price and clears any failure.
func (f *StaticFeed) Set(value sdkmath.Int, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.price.Value = value
	f.price.UpdatedAt = at
	f.err = nil
}

// Fail makes subsequent reads return err.
func (f *StaticFeed) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Latest implements Feed.
func (f *StaticFeed) Latest(context.Context) (Price, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.err != nil {
		return Price{}, f.err
	}
	return f.price, nil
}

// Aggregator prices an asset as the median of several sources. Sources that
// fail are skipped; at least MinSources must answer.
type Aggregator struct {
	Sources    []PriceSource
	MinSources int
}

// USDPrice implements PriceSource. The result has 18 decimals and carries the
// oldest timestamp among the answers used.
func (a *Aggregator) USDPrice(ctx context.Context, asset common.Address) (Price, error) {
	var (
		values   []sdkmath.Int
		oldest   time.Time
		firstErr error
	)
	for _, src := range a.Sources {
		p, err := src.USDPrice(ctx, asset)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		values = append(values, p.Normalized())
		if oldest.IsZero() || p.UpdatedAt.Before(oldest) {
			oldest = p.UpdatedAt
		}
	}

	need := a.MinSources
	if need < 1 {
		need = 1
	}
	if len(values) < need {
		if firstErr != nil {
			return Price{}, firstErr
		}
		return Price{}, apperrors.WithMessage(apperrors.ErrPriceFeedMissing, "not enough price sources for "+asset.Hex())
	}

	sort.Slice(values, func(i, j int) bool { return values[i].LT(values[j]) })
	mid := len(values) / 2
	median := values[mid]
	if len(values)%2 == 0 {
		median = values[mid-1].Add(values[mid]).QuoRaw(2)
	}
	return Price{Value: median, Decimals: amount.Decimals, UpdatedAt: oldest}, nil
}
