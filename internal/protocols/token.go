// Package protocols provides reference external targets deployed on the
// ledger: plain tokens, an oracle-priced swap router and a staking pool.
package protocols

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"vaultcore/internal/calldata"
	"vaultcore/internal/ledger"
)

// Token exposes a ledger token through its ERC-20 call surface.
type Token struct {
	Address common.Address
}

// Call implements ledger.Target.
func (t *Token) Call(_ context.Context, l *ledger.Ledger, from common.Address, data []byte) ([]byte, error) {
	call, err := calldata.Decode(calldata.ERC20, data)
	if err != nil {
		return nil, err
	}

	switch call.Name() {
	case "approve":
		spender, err := call.Address(0)
		if err != nil {
			return nil, err
		}
		amt, err := call.Amount(1)
		if err != nil {
			return nil, err
		}
		if err := l.Approve(t.Address, from, spender, amt); err != nil {
			return nil, err
		}
		return calldata.EncodeReturn(calldata.ERC20, "approve", true)
	case "transfer":
		to, err := call.Address(0)
		if err != nil {
			return nil, err
		}
		amt, err := call.Amount(1)
		if err != nil {
			return nil, err
		}
		if err := l.Transfer(t.Address, from, to, amt); err != nil {
			return nil, err
		}
		return calldata.EncodeReturn(calldata.ERC20, "transfer", true)
	case "transferFrom":
		owner, err := call.Address(0)
		if err != nil {
			return nil, err
		}
		to, err := call.Address(1)
		if err != nil {
			return nil, err
		}
		amt, err := call.Amount(2)
		if err != nil {
			return nil, err
		}
		if err := l.TransferFrom(t.Address, from, owner, to, amt); err != nil {
			return nil, err
		}
		return calldata.EncodeReturn(calldata.ERC20, "transferFrom", true)
	case "balanceOf":
		account, err := call.Address(0)
		if err != nil {
			return nil, err
		}
		return calldata.EncodeUint(l.BalanceOf(t.Address, account)), nil
	}
	return nil, fmt.Errorf("token: unsupported method %s", call.Name())
}
