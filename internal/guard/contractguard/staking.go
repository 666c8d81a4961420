package contractguard

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"vaultcore/internal/calldata"
	apperrors "vaultcore/internal/errors"
	"vaultcore/internal/guard"
)

// StakingGuard guards one staking pool. Staking and unstaking require the
// manager or trader; claiming rewards is public since it only adds value.
type StakingGuard struct {
	StakeToken  common.Address
	RewardToken common.Address
}

// NewStakingGuard returns a guard for a pool staking stakeToken and paying rewardToken.
func NewStakingGuard(stakeToken, rewardToken common.Address) *StakingGuard {
	return &StakingGuard{StakeToken: stakeToken, RewardToken: rewardToken}
}

// Evaluate implements guard.ContractGuard.
func (g *StakingGuard) Evaluate(_ context.Context, pool guard.PoolView, _ common.Address, data []byte) (guard.Verdict, error) {
	call, err := calldata.Decode(calldata.Staking, data)
	if err != nil {
		return guard.Verdict{}, apperrors.Wrap(apperrors.ErrInvalidTransaction, err)
	}

	switch call.Name() {
	case "stake", "withdraw":
		if !pool.IsSupportedAsset(g.StakeToken) {
			return guard.Verdict{}, apperrors.ErrUnsupportedAsset
		}
		typ := guard.TxStake
		if call.Name() == "withdraw" {
			typ = guard.TxUnstake
		}
		return guard.Verdict{Type: typ, Touched: []common.Address{g.StakeToken}}, nil
	case "getReward":
		if !pool.IsSupportedAsset(g.RewardToken) {
			return guard.Verdict{}, apperrors.WithMessage(apperrors.ErrUnsupportedAsset, "reward token not enabled")
		}
		return guard.Verdict{Type: guard.TxClaim, Public: true, Touched: []common.Address{g.RewardToken}}, nil
	case "exit":
		if !pool.IsSupportedAsset(g.StakeToken) {
			return guard.Verdict{}, apperrors.ErrUnsupportedAsset
		}
		if !pool.IsSupportedAsset(g.RewardToken) {
			return guard.Verdict{}, apperrors.WithMessage(apperrors.ErrUnsupportedAsset, "reward token not enabled")
		}
		return guard.Verdict{Type: guard.TxExit, Touched: []common.Address{g.StakeToken, g.RewardToken}}, nil
	}
	return guard.Verdict{}, apperrors.ErrInvalidTransaction
}
