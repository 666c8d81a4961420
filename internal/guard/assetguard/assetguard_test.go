package assetguard

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"vaultcore/internal/amount"
	"vaultcore/internal/calldata"
	apperrors "vaultcore/internal/errors"
	"vaultcore/internal/guard"
	"vaultcore/internal/ledger"
	"vaultcore/internal/oracle"
	"vaultcore/internal/protocols"
)

var (
	lp      = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	rwd     = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	staking = common.HexToAddress("0x00000000000000000000000000000000000000b3")
	poolA   = common.HexToAddress("0x00000000000000000000000000000000000000a0")
)

type fakePool struct {
	addr      common.Address
	supported map[common.Address]bool
}

func (p fakePool) Address() common.Address                { return p.addr }
func (p fakePool) Manager() common.Address                { return common.Address{} }
func (p fakePool) IsSupportedAsset(a common.Address) bool { return p.supported[a] }
func (p fakePool) SupportedAssets() []common.Address {
	var out []common.Address
	for a := range p.supported {
		out = append(out, a)
	}
	return out
}

func half(t *testing.T) amount.Fraction {
	t.Helper()
	f, err := amount.NewFraction(sdkmath.NewInt(1), sdkmath.NewInt(2))
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func setup(t *testing.T) (*ledger.Ledger, *oracle.FeedOracle, *protocols.StakingPool) {
	t.Helper()
	l := ledger.New()
	l.RegisterToken(ledger.TokenInfo{Address: lp, Symbol: "LP", Decimals: 18})
	l.RegisterToken(ledger.TokenInfo{Address: rwd, Symbol: "RWD", Decimals: 18})
	l.Deploy(lp, &protocols.Token{Address: lp})
	sp := &protocols.StakingPool{Address: staking, StakeToken: lp, RewardToken: rwd}
	l.Deploy(staking, sp)

	o := oracle.NewFeedOracle(time.Hour)
	o.SetFeed(lp, oracle.NewStaticFeed(sdkmath.NewInt(200_000_000), 8, time.Now())) // $2

	// Pool holds 100 LP in wallet and 300 LP staked.
	_ = l.Mint(lp, poolA, sdkmath.NewIntWithDecimal(400, 18))
	ctx := context.Background()
	if _, err := l.Call(ctx, poolA, lp, calldata.MustEncode(calldata.ERC20, "approve", staking, sdkmath.NewIntWithDecimal(300, 18))); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Call(ctx, poolA, staking, calldata.MustEncode(calldata.Staking, "stake", sdkmath.NewIntWithDecimal(300, 18))); err != nil {
		t.Fatal(err)
	}
	return l, o, sp
}

func TestERC20Guard(t *testing.T) {
	l, o, _ := setup(t)
	g := NewERC20Guard(l, o)
	ctx := context.Background()

	v, err := g.USDValue(ctx, lp, sdkmath.NewIntWithDecimal(3, 18))
	if err != nil {
		t.Fatalf("usd value: %v", err)
	}
	if !v.Equal(sdkmath.NewIntWithDecimal(6, 18)) {
		t.Errorf("value = %s, want 6e18", v)
	}

	res, err := g.WithdrawProcessing(ctx, fakePool{addr: poolA}, lp, half(t))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Transfers[0].Amount.Equal(sdkmath.NewIntWithDecimal(50, 18)) {
		t.Errorf("transfer = %s, want 50e18", res.Transfers[0].Amount)
	}

	if _, err := g.USDValue(ctx, rwd, sdkmath.OneInt()); !errors.Is(err, apperrors.ErrPriceFeedMissing) {
		t.Errorf("expected PRICE_FEED_MISSING, got %v", err)
	}
}

func TestStakedLPGuardUnwindsProportionally(t *testing.T) {
	l, o, sp := setup(t)
	g := NewStakedLPGuard(l, o)
	g.Bind(lp, Binding{Staking: staking, RewardToken: rwd})
	ctx := context.Background()

	bal, err := g.Balance(ctx, poolA, lp)
	if err != nil {
		t.Fatal(err)
	}
	if !bal.Equal(sdkmath.NewIntWithDecimal(400, 18)) {
		t.Fatalf("balance = %s, want 400e18", bal)
	}

	res, err := g.WithdrawProcessing(ctx, fakePool{addr: poolA}, lp, half(t))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Unwound {
		t.Error("expected staked position to be unwound")
	}
	if !res.Transfers[0].Amount.Equal(sdkmath.NewIntWithDecimal(200, 18)) {
		t.Errorf("transfer = %s, want 200e18", res.Transfers[0].Amount)
	}
	if got := sp.Staked(l, poolA); !got.Equal(sdkmath.NewIntWithDecimal(150, 18)) {
		t.Errorf("still staked = %s, want 150e18", got)
	}
	if got := l.BalanceOf(lp, poolA); !got.Equal(sdkmath.NewIntWithDecimal(250, 18)) {
		t.Errorf("wallet = %s, want 250e18 before the engine transfers out", got)
	}
}

func TestRewardBearingGuardClaimsWhenSupported(t *testing.T) {
	ctx := context.Background()

	t.Run("supported_reward", func(t *testing.T) {
		l, o, sp := setup(t)
		_ = sp.Accrue(l, poolA, sdkmath.NewInt(90))
		g := NewRewardBearingGuard(l, o)
		g.Bind(lp, Binding{Staking: staking, RewardToken: rwd})

		pool := fakePool{addr: poolA, supported: map[common.Address]bool{lp: true, rwd: true}}
		res, err := g.WithdrawProcessing(ctx, pool, lp, half(t))
		if err != nil {
			t.Fatal(err)
		}
		if !res.Unwound {
			t.Error("expected unwound flag")
		}
		if got := l.BalanceOf(rwd, poolA); !got.Equal(sdkmath.NewInt(90)) {
			t.Errorf("claimed rewards = %s, want 90", got)
		}
	})

	t.Run("unsupported_reward_left_pending", func(t *testing.T) {
		l, o, sp := setup(t)
		_ = sp.Accrue(l, poolA, sdkmath.NewInt(90))
		g := NewRewardBearingGuard(l, o)
		g.Bind(lp, Binding{Staking: staking, RewardToken: rwd})

		pool := fakePool{addr: poolA, supported: map[common.Address]bool{lp: true}}
		if _, err := g.WithdrawProcessing(ctx, pool, lp, half(t)); err != nil {
			t.Fatal(err)
		}
		if got := l.BalanceOf(rwd, poolA); !got.IsZero() {
			t.Errorf("rewards must stay pending, pool holds %s", got)
		}
		if got := sp.Earned(l, poolA); !got.Equal(sdkmath.NewInt(90)) {
			t.Errorf("earned = %s, want 90", got)
		}
	})
}

type fixed struct{ v int64 }

func (f fixed) USDPrice(context.Context, common.Address) (oracle.Price, error) {
	return oracle.Price{Value: sdkmath.NewInt(f.v), Decimals: 0, UpdatedAt: time.Now()}, nil
}

func TestSyntheticGuardUsesMedian(t *testing.T) {
	l, _, _ := setup(t)
	g := NewSyntheticGuard(l, []oracle.PriceSource{fixed{1}, fixed{3}, fixed{100}}, 2)
	v, err := g.USDValue(context.Background(), lp, sdkmath.NewIntWithDecimal(2, 18))
	if err != nil {
		t.Fatal(err)
	}
	if !v.Equal(sdkmath.NewIntWithDecimal(6, 18)) {
		t.Errorf("value = %s, want 6e18", v)
	}
	var _ guard.AssetGuard = g
}
