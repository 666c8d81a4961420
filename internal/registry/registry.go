// Package registry is the capability registry: the owner-curated mapping from
// external targets to contract guards, asset types to asset guards, and
// symbolic names to addresses, plus platform-wide governance switches.
//
// Lookups return nil when unset. Callers must treat nil as "not authorized".
package registry

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sasha-s/go-deadlock"

	apperrors "vaultcore/internal/errors"
	"vaultcore/internal/guard"
)

// AssetType identifies a family of assets sharing one asset guard.
type AssetType uint16

// Well-known address book names.
const (
	AddressTreasury = "treasury"
)

// FeeCeilings are the hard upper bounds on vault fee numerators, in bps.
type FeeCeilings struct {
	Streaming   uint32 `json:"streaming"`
	Performance uint32 `json:"performance"`
	Entry       uint32 `json:"entry"`
	Exit        uint32 `json:"exit"`
}

// DefaultFeeCeilings caps streaming at 3%, performance at 50% and entry and
// exit at 1%.
var DefaultFeeCeilings = FeeCeilings{Streaming: 300, Performance: 5_000, Entry: 100, Exit: 100}

// Registry is safe for concurrent use.
type Registry struct {
	mu deadlock.RWMutex

	owner          common.Address
	contractGuards map[common.Address]guard.ContractGuard
	assetGuards    map[AssetType]guard.AssetGuard
	assetTypes     map[common.Address]AssetType
	addresses      map[string]common.Address
	ceilings       FeeCeilings
	treasuryBps    uint32
	paused         bool
	whitelist      map[common.Address]bool
}

// New creates a registry owned by owner.
func New(owner common.Address) *Registry {
	return &Registry{
		owner:          owner,
		contractGuards: make(map[common.Address]guard.ContractGuard),
		assetGuards:    make(map[AssetType]guard.AssetGuard),
		assetTypes:     make(map[common.Address]AssetType),
		addresses:      make(map[string]common.Address),
		ceilings:       DefaultFeeCeilings,
		whitelist:      make(map[common.Address]bool),
	}
}

// Owner returns the registry owner.
func (r *Registry) Owner() common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.owner
}

func (r *Registry) onlyOwner(caller common.Address) error {
	if caller != r.owner {
		return apperrors.ErrOnlyOwner
	}
	return nil
}

// TransferOwnership hands the registry to a new owner.
func (r *Registry) TransferOwnership(caller, next common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	r.owner = next
	return nil
}

// SetContractGuard binds target to g, overwriting any previous binding. A nil
// guard removes the binding.
func (r *Registry) SetContractGuard(caller, target common.Address, g guard.ContractGuard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	if g == nil {
		delete(r.contractGuards, target)
		return nil
	}
	r.contractGuards[target] = g
	return nil
}

// ContractGuard returns the guard for target, or nil.
func (r *Registry) ContractGuard(target common.Address) guard.ContractGuard {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.contractGuards[target]
}

// SetAssetGuard binds an asset type to g. A nil guard removes the binding.
func (r *Registry) SetAssetGuard(caller common.Address, t AssetType, g guard.AssetGuard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	if g == nil {
		delete(r.assetGuards, t)
		return nil
	}
	r.assetGuards[t] = g
	return nil
}

// AssetGuard returns the guard for an asset type, or nil.
func (r *Registry) AssetGuard(t AssetType) guard.AssetGuard {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.assetGuards[t]
}

// SetAssetType records which asset type asset belongs to.
func (r *Registry) SetAssetType(caller, asset common.Address, t AssetType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	r.assetTypes[asset] = t
	return nil
}

// AssetType returns the type of asset and whether one is recorded.
func (r *Registry) AssetType(asset common.Address) (AssetType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.assetTypes[asset]
	return t, ok
}

// AssetGuardFor resolves asset → type → guard, returning nil when either
// step is unset.
func (r *Registry) AssetGuardFor(asset common.Address) guard.AssetGuard {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.assetTypes[asset]
	if !ok {
		return nil
	}
	return r.assetGuards[t]
}

// SetAddress binds a symbolic name to addr.
func (r *Registry) SetAddress(caller common.Address, name string, addr common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	r.addresses[name] = addr
	return nil
}

// Address returns the address bound to name and whether it is set.
func (r *Registry) Address(name string) (common.Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	addr, ok := r.addresses[name]
	return addr, ok
}

// Addresses returns a copy of the address book.
func (r *Registry) Addresses() map[string]common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]common.Address, len(r.addresses))
	for k, v := range r.addresses {
		out[k] = v
	}
	return out
}

// SetFeeCeilings replaces the fee ceilings.
func (r *Registry) SetFeeCeilings(caller common.Address, c FeeCeilings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	r.ceilings = c
	return nil
}

// FeeCeilings returns the current fee ceilings.
func (r *Registry) FeeCeilings() FeeCeilings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ceilings
}

// SetTreasuryShare sets the share of streaming and performance fees, in bps,
// routed to the treasury address.
func (r *Registry) SetTreasuryShare(caller common.Address, bps uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	if bps > 10_000 {
		return apperrors.ErrFeeCeilingExceeded
	}
	r.treasuryBps = bps
	return nil
}

// TreasuryShare returns the treasury fee share and the treasury address.
// The share is zero when no treasury address is set.
func (r *Registry) TreasuryShare() (uint32, common.Address) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	addr, ok := r.addresses[AddressTreasury]
	if !ok {
		return 0, common.Address{}
	}
	return r.treasuryBps, addr
}

// SetPaused toggles the platform-wide pause.
func (r *Registry) SetPaused(caller common.Address, paused bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	r.paused = paused
	return nil
}

// Paused reports whether the platform is paused.
func (r *Registry) Paused() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.paused
}

// SetCooldownWhitelist exempts (or stops exempting) addr from cooldowns.
func (r *Registry) SetCooldownWhitelist(caller, addr common.Address, exempt bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	if exempt {
		r.whitelist[addr] = true
	} else {
		delete(r.whitelist, addr)
	}
	return nil
}

// CooldownExempt reports whether addr is exempt from cooldowns.
func (r *Registry) CooldownExempt(addr common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.whitelist[addr]
}

// Entry describes one registry binding for listings.
type Entry struct {
	Address   common.Address `json:"address"`
	AssetType AssetType      `json:"asset_type"`
}

// Assets lists every asset with a recorded type, ordered by address.
func (r *Registry) Assets() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.assetTypes))
	for addr, t := range r.assetTypes {
		out = append(out, Entry{Address: addr, AssetType: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address.Hex() < out[j].Address.Hex() })
	return out
}

// Targets lists every target with a contract guard, ordered by address.
func (r *Registry) Targets() []common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]common.Address, 0, len(r.contractGuards))
	for addr := range r.contractGuards {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}
