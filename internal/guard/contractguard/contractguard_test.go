package contractguard

import (
	"context"
	"errors"
	"math/big"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"vaultcore/internal/calldata"
	apperrors "vaultcore/internal/errors"
	"vaultcore/internal/guard"
)

var (
	pool    = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	usdc    = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	weth    = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	doge    = common.HexToAddress("0x00000000000000000000000000000000000000d0")
	rwd     = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	router  = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	staking = common.HexToAddress("0x00000000000000000000000000000000000000f2")
	thief   = common.HexToAddress("0x00000000000000000000000000000000000000ee")
)

type view struct{ supported map[common.Address]bool }

func (v view) Address() common.Address                { return pool }
func (v view) Manager() common.Address                { return common.Address{} }
func (v view) IsSupportedAsset(a common.Address) bool { return v.supported[a] }
func (v view) SupportedAssets() []common.Address      { return nil }

type lookup map[common.Address]guard.ContractGuard

func (l lookup) ContractGuard(target common.Address) guard.ContractGuard { return l[target] }

func supported(assets ...common.Address) view {
	v := view{supported: make(map[common.Address]bool)}
	for _, a := range assets {
		v.supported[a] = true
	}
	return v
}

func TestERC20Guard(t *testing.T) {
	g := NewERC20Guard(lookup{router: NewSwapRouterGuard()})
	ctx := context.Background()
	p := supported(usdc, weth)

	tests := []struct {
		name   string
		target common.Address
		data   []byte
		want   *apperrors.AppError
	}{
		{"approve_router", usdc, calldata.MustEncode(calldata.ERC20, "approve", router, sdkmath.NewInt(1)), nil},
		{"approve_unguarded_spender", usdc, calldata.MustEncode(calldata.ERC20, "approve", thief, sdkmath.NewInt(1)), apperrors.ErrUnapprovedSpender},
		{"approve_unsupported_token", doge, calldata.MustEncode(calldata.ERC20, "approve", router, sdkmath.NewInt(1)), apperrors.ErrUnsupportedAsset},
		{"transfer_rejected", usdc, calldata.MustEncode(calldata.ERC20, "transfer", thief, sdkmath.NewInt(1)), apperrors.ErrInvalidTransaction},
		{"garbage", usdc, []byte{0xde, 0xad}, apperrors.ErrInvalidTransaction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := g.Evaluate(ctx, p, tt.target, tt.data)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if v.Type != guard.TxApprove || v.Public {
					t.Errorf("unexpected verdict %+v", v)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %s, got %v", tt.want.Code, err)
			}
		})
	}
}

func swap(path []common.Address, to common.Address) []byte {
	return calldata.MustEncode(calldata.Router, "swapExactTokensForTokens",
		sdkmath.NewInt(100), sdkmath.ZeroInt(), path, to, big.NewInt(0))
}

func TestSwapRouterGuard(t *testing.T) {
	g := NewSwapRouterGuard()
	ctx := context.Background()
	p := supported(usdc, weth)

	tests := []struct {
		name string
		data []byte
		want *apperrors.AppError
	}{
		{"allowed", swap([]common.Address{usdc, weth}, pool), nil},
		{"unsupported_source", swap([]common.Address{doge, weth}, pool), apperrors.ErrUnsupportedSource},
		{"unsupported_destination", swap([]common.Address{usdc, doge}, pool), apperrors.ErrUnsupportedDest},
		{"recipient_not_pool", swap([]common.Address{usdc, weth}, thief), apperrors.ErrRecipientNotPool},
		{"short_path", swap([]common.Address{usdc}, pool), apperrors.ErrInvalidTransaction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := g.Evaluate(ctx, p, router, tt.data)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if v.Type != guard.TxExchange {
					t.Errorf("type = %s", v.Type)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %s, got %v", tt.want.Code, err)
			}
		})
	}
}

func TestStakingGuard(t *testing.T) {
	g := NewStakingGuard(weth, rwd)
	ctx := context.Background()

	v, err := g.Evaluate(ctx, supported(weth, rwd), staking, calldata.MustEncode(calldata.Staking, "getReward"))
	if err != nil {
		t.Fatalf("getReward: %v", err)
	}
	if !v.Public || v.Type != guard.TxClaim {
		t.Errorf("getReward verdict = %+v, want public claim", v)
	}

	v, err = g.Evaluate(ctx, supported(weth), staking, calldata.MustEncode(calldata.Staking, "stake", sdkmath.NewInt(1)))
	if err != nil {
		t.Fatalf("stake: %v", err)
	}
	if v.Public {
		t.Error("stake must be manager-only")
	}

	if _, err := g.Evaluate(ctx, supported(weth), staking, calldata.MustEncode(calldata.Staking, "getReward")); !errors.Is(err, apperrors.ErrUnsupportedAsset) {
		t.Errorf("expected UNSUPPORTED_ASSET for disabled reward token, got %v", err)
	}
	if _, err := g.Evaluate(ctx, supported(rwd), staking, calldata.MustEncode(calldata.Staking, "withdraw", sdkmath.NewInt(1))); !errors.Is(err, apperrors.ErrUnsupportedAsset) {
		t.Errorf("expected UNSUPPORTED_ASSET for disabled stake token, got %v", err)
	}
}
