package vault_test

import (
	"context"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"vaultcore/internal/amount"
	"vaultcore/internal/calldata"
	apperrors "vaultcore/internal/errors"
	"vaultcore/internal/guard"
	"vaultcore/internal/guard/assetguard"
	"vaultcore/internal/ledger"
	"vaultcore/internal/oracle"
	"vaultcore/internal/protocols"
	"vaultcore/internal/registry"
	"vaultcore/internal/vault"
)

var (
	lp      = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	rwd     = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	staking = common.HexToAddress("0x00000000000000000000000000000000000000b3")
)

const (
	rewardBearingType registry.AssetType = 2
	shortType         registry.AssetType = 3
)

// stakedEnv adds an LP token staked in a pool that pays RWD. LP is valued
// through a reward-bearing guard, RWD as a plain token; both trade at $1.
func stakedEnv(t *testing.T) (*env, *protocols.StakingPool) {
	t.Helper()
	e := newEnv(t)
	sp := &protocols.StakingPool{Address: staking, StakeToken: lp, RewardToken: rwd}
	for _, tok := range []ledger.TokenInfo{
		{Address: lp, Symbol: "LP", Decimals: 18},
		{Address: rwd, Symbol: "RWD", Decimals: 18},
	} {
		e.l.RegisterToken(tok)
		e.l.Deploy(tok.Address, &protocols.Token{Address: tok.Address})
		e.feeds[tok.Address] = oracle.NewStaticFeed(usd(1), 8, e.now)
		e.o.SetFeed(tok.Address, e.feeds[tok.Address])
	}
	e.l.Deploy(staking, sp)

	g := assetguard.NewRewardBearingGuard(e.l, e.o)
	g.Bind(lp, assetguard.Binding{Staking: staking, RewardToken: rwd})
	mustOK(t, e.reg.SetAssetGuard(owner, rewardBearingType, g))
	mustOK(t, e.reg.SetAssetType(owner, lp, rewardBearingType))
	mustOK(t, e.reg.SetAssetType(owner, rwd, erc20Type))
	return e, sp
}

// stake moves amt of the vault's LP into the staking pool.
func (e *env) stake(t *testing.T, v common.Address, amt sdkmath.Int) {
	t.Helper()
	mustOK(t, e.eng.UpdateLedger(e.ctx, func(l *ledger.Ledger) error {
		if _, err := l.Call(e.ctx, v, lp, calldata.MustEncode(calldata.ERC20, "approve", staking, amt)); err != nil {
			return err
		}
		_, err := l.Call(e.ctx, v, staking, calldata.MustEncode(calldata.Staking, "stake", amt))
		return err
	}))
}

func TestWithdrawUnwindsStakedPosition(t *testing.T) {
	e, sp := stakedEnv(t)
	v := e.create(t, vault.Fees{}, vault.AssetConfig{Asset: lp, IsDeposit: true}, vault.AssetConfig{Asset: rwd})
	e.deposit(t, v.Address, alice, lp, e18(250))
	e.stake(t, v.Address, e18(150))
	mustOK(t, e.eng.UpdateLedger(e.ctx, func(l *ledger.Ledger) error {
		return sp.Accrue(l, v.Address, e18(10))
	}))
	e.advance(25 * time.Hour)

	// Pending rewards are not part of the position's value.
	nav, err := e.eng.FundValue(e.ctx, v.Address)
	mustOK(t, err)
	expectInt(t, "fund value before", nav, e18(250))

	res, err := e.eng.Withdraw(e.ctx, v.Address, alice, e18(125))
	mustOK(t, err)

	if len(res.Transfers) != 2 {
		t.Fatalf("expected 2 transfers, got %+v", res.Transfers)
	}
	if res.Transfers[0].Asset != lp || res.Transfers[1].Asset != rwd {
		t.Errorf("position must be processed before its reward token: %+v", res.Transfers)
	}
	expectInt(t, "alice lp", e.eng.TokenBalance(lp, alice), e18(125))
	expectInt(t, "alice rwd", e.eng.TokenBalance(rwd, alice), e18(5))
	expectInt(t, "vault lp wallet", e.eng.TokenBalance(lp, v.Address), e18(50))
	expectInt(t, "vault rwd", e.eng.TokenBalance(rwd, v.Address), e18(5))
	expectInt(t, "still staked", sp.Staked(e.l, v.Address), e18(75))
	expectInt(t, "pending rewards", sp.Earned(e.l, v.Address), sdkmath.ZeroInt())

	nav, err = e.eng.FundValue(e.ctx, v.Address)
	mustOK(t, err)
	expectInt(t, "fund value after", nav, e18(130))
}

// shortGuard pays out half a basis point less than asked, optionally
// reporting that it unwound a position to do so.
type shortGuard struct {
	*assetguard.ERC20Guard
	unwound bool
}

func (g shortGuard) WithdrawProcessing(ctx context.Context, pool guard.PoolView, asset common.Address, portion amount.Fraction) (guard.WithdrawResult, error) {
	res, err := g.ERC20Guard.WithdrawProcessing(ctx, pool, asset, portion)
	if err != nil {
		return res, err
	}
	amt := res.Transfers[0].Amount
	res.Transfers[0].Amount = amt.Sub(amt.QuoRaw(20_000))
	res.Unwound = g.unwound
	return res, nil
}

func TestWithdrawToleranceAppliesToUnwinds(t *testing.T) {
	setup := func(t *testing.T, unwound bool) (*env, *vault.Vault) {
		t.Helper()
		e := newEnv(t)
		mustOK(t, e.reg.SetAssetGuard(owner, shortType, shortGuard{ERC20Guard: assetguard.NewERC20Guard(e.l, e.o), unwound: unwound}))
		mustOK(t, e.reg.SetAssetType(owner, dai, shortType))
		v := e.create(t, vault.Fees{}, vault.AssetConfig{Asset: dai, IsDeposit: true})
		e.deposit(t, v.Address, alice, dai, e18(1000))
		e.advance(25 * time.Hour)
		return e, v
	}

	t.Run("plain balance must split exactly", func(t *testing.T) {
		e, v := setup(t, false)
		_, err := e.eng.Withdraw(e.ctx, v.Address, alice, e18(500))
		expectErr(t, err, apperrors.ErrWithdrawMismatch)
		expectInt(t, "alice dai", e.eng.TokenBalance(dai, alice), sdkmath.ZeroInt())
		expectInt(t, "vault dai", e.eng.TokenBalance(dai, v.Address), e18(1000))
	})

	t.Run("unwind within tolerance is accepted", func(t *testing.T) {
		e, v := setup(t, true)
		_, err := e.eng.Withdraw(e.ctx, v.Address, alice, e18(500))
		mustOK(t, err)
		expectInt(t, "alice dai", e.eng.TokenBalance(dai, alice), e18(500).Sub(sdkmath.NewIntWithDecimal(25, 15)))
	})
}
