package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	apperrors "vaultcore/internal/errors"
)

var (
	weth = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	now  = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func TestFeedOracle(t *testing.T) {
	ctx := context.Background()

	t.Run("returns_fresh_price", func(t *testing.T) {
		o := NewFeedOracle(time.Hour).WithClock(func() time.Time { return now })
		o.SetFeed(weth, NewStaticFeed(sdkmath.NewInt(2_000_00000000), 8, now.Add(-time.Minute)))
		p, err := o.USDPrice(ctx, weth)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !p.Normalized().Equal(sdkmath.NewIntWithDecimal(2_000, 18)) {
			t.Errorf("normalized = %s", p.Normalized())
		}
	})

	tests := []struct {
		name string
		feed *StaticFeed
		want *apperrors.AppError
	}{
		{"missing", nil, apperrors.ErrPriceFeedMissing},
		{"stale", NewStaticFeed(sdkmath.NewInt(1), 8, now.Add(-2*time.Hour)), apperrors.ErrPriceStale},
		{"zero", NewStaticFeed(sdkmath.ZeroInt(), 8, now), apperrors.ErrPriceNonPositive},
		{"negative", NewStaticFeed(sdkmath.NewInt(-5), 8, now), apperrors.ErrPriceNonPositive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewFeedOracle(time.Hour).WithClock(func() time.Time { return now })
			if tt.feed != nil {
				o.SetFeed(weth, tt.feed)
			}
			_, err := o.USDPrice(ctx, weth)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %s, got %v", tt.want.Code, err)
			}
		})
	}

	t.Run("reverted", func(t *testing.T) {
		o := NewFeedOracle(time.Hour).WithClock(func() time.Time { return now })
		feed := NewStaticFeed(sdkmath.NewInt(1), 8, now)
		feed.Fail(errors.New("execution reverted"))
		o.SetFeed(weth, feed)
		_, err := o.USDPrice(ctx, weth)
		if !errors.Is(err, apperrors.ErrPriceFeedReverted) {
			t.Fatalf("expected PRICE_FEED_REVERTED, got %v", err)
		}
	})
}

func TestUSDValue(t *testing.T) {
	// 2.5 tokens with 6 decimals at $4.00 (8 decimals) is $10.
	got := USDValue(sdkmath.NewInt(2_500_000), 6, Price{Value: sdkmath.NewInt(400_000_000), Decimals: 8})
	if !got.Equal(sdkmath.NewIntWithDecimal(10, 18)) {
		t.Fatalf("got %s", got)
	}
}

type fixedSource struct {
	p   Price
	err error
}

func (f fixedSource) USDPrice(context.Context, common.Address) (Price, error) { return f.p, f.err }

func TestAggregatorMedian(t *testing.T) {
	ctx := context.Background()
	price := func(v int64) fixedSource {
		return fixedSource{p: Price{Value: sdkmath.NewInt(v), Decimals: 0, UpdatedAt: now}}
	}

	agg := &Aggregator{Sources: []PriceSource{price(10), price(30), price(11), fixedSource{err: errors.New("down")}}, MinSources: 2}
	p, err := agg.USDPrice(ctx, weth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Value.Equal(sdkmath.NewIntWithDecimal(11, 18)) {
		t.Errorf("median = %s, want 11e18", p.Value)
	}

	agg = &Aggregator{Sources: []PriceSource{price(10), fixedSource{err: apperrors.ErrPriceStale}}, MinSources: 2}
	if _, err := agg.USDPrice(ctx, weth); !errors.Is(err, apperrors.ErrPriceStale) {
		t.Errorf("expected first source error, got %v", err)
	}
}
