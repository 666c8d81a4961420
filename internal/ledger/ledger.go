// Package ledger is the in-process ledger of record: token balances,
// allowances, contract storage and deployed call targets. Every mutation is
// journaled so a caller can snapshot and revert a group of changes as a unit.
//
// A Ledger is not safe for concurrent use; callers serialize access.
package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInsufficientBalance   = errors.New("ledger: insufficient balance")
	ErrInsufficientAllowance = errors.New("ledger: insufficient allowance")
	ErrNoCode                = errors.New("ledger: no contract at address")
	ErrUnknownToken          = errors.New("ledger: unknown token")
	ErrNegativeAmount        = errors.New("ledger: negative amount")
)

// TokenInfo is the metadata of a registered token.
type TokenInfo struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
}

// Target is a contract deployed on the ledger. Call runs with the caller's
// address and raw call data and returns raw return data.
type Target interface {
	Call(ctx context.Context, l *Ledger, from common.Address, data []byte) ([]byte, error)
}

// Ledger holds balances keyed by (asset, holder).
type Ledger struct {
	tokens     map[common.Address]TokenInfo
	balances   map[common.Address]map[common.Address]sdkmath.Int
	allowances map[allowanceKey]sdkmath.Int
	storage    map[common.Address]map[common.Hash]sdkmath.Int
	targets    map[common.Address]Target
	journal    []func()
}

type allowanceKey struct {
	asset, owner, spender common.Address
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		tokens:     make(map[common.Address]TokenInfo),
		balances:   make(map[common.Address]map[common.Address]sdkmath.Int),
		allowances: make(map[allowanceKey]sdkmath.Int),
		storage:    make(map[common.Address]map[common.Hash]sdkmath.Int),
		targets:    make(map[common.Address]Target),
	}
}

// RegisterToken records token metadata. Registration is not journaled.
func (l *Ledger) RegisterToken(info TokenInfo) {
	l.tokens[info.Address] = info
}

// Token returns the metadata of a registered token.
func (l *Ledger) Token(asset common.Address) (TokenInfo, bool) {
	info, ok := l.tokens[asset]
	return info, ok
}

// Tokens returns every registered token ordered by address.
func (l *Ledger) Tokens() []TokenInfo {
	out := make([]TokenInfo, 0, len(l.tokens))
	for _, info := range l.tokens {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address[:], out[j].Address[:]) < 0
	})
	return out
}

// Deploy installs a call target at addr. Deployment is not journaled.
func (l *Ledger) Deploy(addr common.Address, t Target) {
	l.targets[addr] = t
}

// HasCode reports whether a target is deployed at addr.
func (l *Ledger) HasCode(addr common.Address) bool {
	_, ok := l.targets[addr]
	return ok
}

// BalanceOf returns the balance of holder in asset.
func (l *Ledger) BalanceOf(asset, holder common.Address) sdkmath.Int {
	if v, ok := l.balances[asset][holder]; ok {
		return v
	}
	return sdkmath.ZeroInt()
}

// Holdings returns the registered tokens in which holder has a non-zero
// balance, ordered by address.
func (l *Ledger) Holdings(holder common.Address) []common.Address {
	var out []common.Address
	for asset, byHolder := range l.balances {
		if _, ok := l.tokens[asset]; !ok {
			continue
		}
		if v, ok := byHolder[holder]; ok && !v.IsZero() {
			out = append(out, asset)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

func (l *Ledger) setBalance(asset, holder common.Address, v sdkmath.Int) {
	byHolder, ok := l.balances[asset]
	if !ok {
		byHolder = make(map[common.Address]sdkmath.Int)
		l.balances[asset] = byHolder
	}
	prev, had := byHolder[holder]
	l.journal = append(l.journal, func() {
		if had {
			byHolder[holder] = prev
		} else {
			delete(byHolder, holder)
		}
	})
	byHolder[holder] = v
}

// Mint credits amount of asset to holder.
func (l *Ledger) Mint(asset, to common.Address, amt sdkmath.Int) error {
	if amt.IsNegative() {
		return ErrNegativeAmount
	}
	if _, ok := l.tokens[asset]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, asset.Hex())
	}
	l.setBalance(asset, to, l.BalanceOf(asset, to).Add(amt))
	return nil
}

// Burn debits amount of asset from holder.
func (l *Ledger) Burn(asset, from common.Address, amt sdkmath.Int) error {
	if amt.IsNegative() {
		return ErrNegativeAmount
	}
	bal := l.BalanceOf(asset, from)
	if bal.LT(amt) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from.Hex(), bal, amt)
	}
	l.setBalance(asset, from, bal.Sub(amt))
	return nil
}

// Transfer moves amount of asset between holders.
func (l *Ledger) Transfer(asset, from, to common.Address, amt sdkmath.Int) error {
	if amt.IsNegative() {
		return ErrNegativeAmount
	}
	if amt.IsZero() || from == to {
		return nil
	}
	if err := l.Burn(asset, from, amt); err != nil {
		return err
	}
	l.setBalance(asset, to, l.BalanceOf(asset, to).Add(amt))
	return nil
}

// Allowance returns how much spender may move from owner's asset balance.
func (l *Ledger) Allowance(asset, owner, spender common.Address) sdkmath.Int {
	if v, ok := l.allowances[allowanceKey{asset, owner, spender}]; ok {
		return v
	}
	return sdkmath.ZeroInt()
}

// Approve sets spender's allowance over owner's asset balance.
func (l *Ledger) Approve(asset, owner, spender common.Address, amt sdkmath.Int) error {
	if amt.IsNegative() {
		return ErrNegativeAmount
	}
	key := allowanceKey{asset, owner, spender}
	prev, had := l.allowances[key]
	l.journal = append(l.journal, func() {
		if had {
			l.allowances[key] = prev
		} else {
			delete(l.allowances, key)
		}
	})
	l.allowances[key] = amt
	return nil
}

// TransferFrom moves amount of asset from owner to to, spending spender's allowance.
func (l *Ledger) TransferFrom(asset, spender, owner, to common.Address, amt sdkmath.Int) error {
	allowed := l.Allowance(asset, owner, spender)
	if allowed.LT(amt) {
		return fmt.Errorf("%w: %s may spend %s, needs %s", ErrInsufficientAllowance, spender.Hex(), allowed, amt)
	}
	if err := l.Approve(asset, owner, spender, allowed.Sub(amt)); err != nil {
		return err
	}
	return l.Transfer(asset, owner, to, amt)
}

// Load reads a storage slot of contract.
func (l *Ledger) Load(contract common.Address, key common.Hash) sdkmath.Int {
	if v, ok := l.storage[contract][key]; ok {
		return v
	}
	return sdkmath.ZeroInt()
}

// Store writes a storage slot of contract.
func (l *Ledger) Store(contract common.Address, key common.Hash, v sdkmath.Int) {
	slots, ok := l.storage[contract]
	if !ok {
		slots = make(map[common.Hash]sdkmath.Int)
		l.storage[contract] = slots
	}
	prev, had := slots[key]
	l.journal = append(l.journal, func() {
		if had {
			slots[key] = prev
		} else {
			delete(slots, key)
		}
	})
	slots[key] = v
}

// Snapshot returns an id that RevertToSnapshot can roll back to.
func (l *Ledger) Snapshot() int {
	return len(l.journal)
}

// RevertToSnapshot undoes every change made after the snapshot was taken.
func (l *Ledger) RevertToSnapshot(id int) {
	for i := len(l.journal) - 1; i >= id; i-- {
		l.journal[i]()
	}
	l.journal = l.journal[:id]
}

// Commit discards the journal. Outstanding snapshot ids become invalid.
func (l *Ledger) Commit() {
	l.journal = nil
}

// Call invokes the target at to on behalf of from. When the target returns an
// error every change it made is reverted.
func (l *Ledger) Call(ctx context.Context, from, to common.Address, data []byte) ([]byte, error) {
	t, ok := l.targets[to]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoCode, to.Hex())
	}
	snap := l.Snapshot()
	ret, err := t.Call(ctx, l, from, data)
	if err != nil {
		l.RevertToSnapshot(snap)
		return nil, err
	}
	return ret, nil
}

// View invokes the target at to and always discards its changes.
func (l *Ledger) View(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	t, ok := l.targets[to]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoCode, to.Hex())
	}
	snap := l.Snapshot()
	defer l.RevertToSnapshot(snap)
	return t.Call(ctx, l, common.Address{}, data)
}
