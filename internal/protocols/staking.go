package protocols

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"vaultcore/internal/calldata"
	"vaultcore/internal/ledger"
)

// StakingPool holds staked balances of StakeToken and pays RewardToken.
// Positions live in the pool's ledger storage so they are journaled with
// every other change.
type StakingPool struct {
	Address     common.Address
	StakeToken  common.Address
	RewardToken common.Address
}

func stakedSlot(holder common.Address) common.Hash {
	return crypto.Keccak256Hash([]byte("staked"), holder.Bytes())
}

func rewardSlot(holder common.Address) common.Hash {
	return crypto.Keccak256Hash([]byte("reward"), holder.Bytes())
}

// Staked returns holder's staked balance.
func (p *StakingPool) Staked(l *ledger.Ledger, holder common.Address) sdkmath.Int {
	return l.Load(p.Address, stakedSlot(holder))
}

// Earned returns holder's unclaimed rewards.
func (p *StakingPool) Earned(l *ledger.Ledger, holder common.Address) sdkmath.Int {
	return l.Load(p.Address, rewardSlot(holder))
}

// Accrue credits holder with amt of reward, minting the reward tokens that
// back it into the pool.
func (p *StakingPool) Accrue(l *ledger.Ledger, holder common.Address, amt sdkmath.Int) error {
	if err := l.Mint(p.RewardToken, p.Address, amt); err != nil {
		return err
	}
	l.Store(p.Address, rewardSlot(holder), p.Earned(l, holder).Add(amt))
	return nil
}

// Call implements ledger.Target.
func (p *StakingPool) Call(_ context.Context, l *ledger.Ledger, from common.Address, data []byte) ([]byte, error) {
	call, err := calldata.Decode(calldata.Staking, data)
	if err != nil {
		return nil, err
	}

	switch call.Name() {
	case "stake":
		amt, err := call.Amount(0)
		if err != nil {
			return nil, err
		}
		if err := l.TransferFrom(p.StakeToken, p.Address, from, p.Address, amt); err != nil {
			return nil, err
		}
		l.Store(p.Address, stakedSlot(from), p.Staked(l, from).Add(amt))
		return nil, nil
	case "withdraw":
		amt, err := call.Amount(0)
		if err != nil {
			return nil, err
		}
		return nil, p.withdraw(l, from, amt)
	case "getReward":
		return nil, p.claim(l, from)
	case "exit":
		if err := p.withdraw(l, from, p.Staked(l, from)); err != nil {
			return nil, err
		}
		return nil, p.claim(l, from)
	case "balanceOf":
		account, err := call.Address(0)
		if err != nil {
			return nil, err
		}
		return calldata.EncodeUint(p.Staked(l, account)), nil
	case "earned":
		account, err := call.Address(0)
		if err != nil {
			return nil, err
		}
		return calldata.EncodeUint(p.Earned(l, account)), nil
	}
	return nil, fmt.Errorf("staking: unsupported method %s", call.Name())
}

func (p *StakingPool) withdraw(l *ledger.Ledger, holder common.Address, amt sdkmath.Int) error {
	staked := p.Staked(l, holder)
	if staked.LT(amt) {
		return fmt.Errorf("staking: withdraw %s exceeds staked %s", amt, staked)
	}
	l.Store(p.Address, stakedSlot(holder), staked.Sub(amt))
	return l.Transfer(p.StakeToken, p.Address, holder, amt)
}

func (p *StakingPool) claim(l *ledger.Ledger, holder common.Address) error {
	pending := p.Earned(l, holder)
	if pending.IsZero() {
		return nil
	}
	l.Store(p.Address, rewardSlot(holder), sdkmath.ZeroInt())
	return l.Transfer(p.RewardToken, p.Address, holder, pending)
}
