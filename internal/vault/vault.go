// Package vault is the authorization and accounting engine of the platform.
// It converts deposits and withdrawals into share mints and burns under
// fund-value pricing, accrues fees, blends withdrawal cooldowns and
// authorizes manager-initiated calls through the capability registry.
package vault

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"vaultcore/internal/guard"
	"vaultcore/internal/registry"
)

// Fees are the vault's fee numerators in basis points.
type Fees struct {
	Streaming   uint32 `json:"streaming" yaml:"streaming"`
	Performance uint32 `json:"performance" yaml:"performance"`
	Entry       uint32 `json:"entry" yaml:"entry"`
	Exit        uint32 `json:"exit" yaml:"exit"`
}

// Within reports whether every numerator is at or below its ceiling.
func (f Fees) Within(c registry.FeeCeilings) bool {
	return f.Streaming <= c.Streaming &&
		f.Performance <= c.Performance &&
		f.Entry <= c.Entry &&
		f.Exit <= c.Exit
}

// Increases reports whether any numerator is above the one in cur.
func (f Fees) Increases(cur Fees) bool {
	return f.Streaming > cur.Streaming ||
		f.Performance > cur.Performance ||
		f.Entry > cur.Entry ||
		f.Exit > cur.Exit
}

// FeeChange is an announced fee increase awaiting commitment.
type FeeChange struct {
	Fees        Fees      `json:"fees"`
	AnnouncedAt time.Time `json:"announced_at"`
}

// AssetConfig is a supported asset and whether it accepts deposits.
type AssetConfig struct {
	Asset     common.Address `json:"asset" yaml:"asset"`
	IsDeposit bool           `json:"is_deposit" yaml:"is_deposit"`
}

// Lockup is a holder's withdrawal cooldown.
type Lockup struct {
	Duration    time.Duration `json:"duration"`
	LastDeposit time.Time     `json:"last_deposit"`
}

// Until returns when the lockup expires.
func (l Lockup) Until() time.Time {
	return l.LastDeposit.Add(l.Duration)
}

// Vault is the full state of one pooled fund.
type Vault struct {
	Address  common.Address
	Settings common.Address
	Name     string
	Manager  common.Address
	Trader   common.Address
	Private  bool
	Members  map[common.Address]bool

	Assets []AssetConfig

	TotalSupply sdkmath.Int
	Shares      map[common.Address]sdkmath.Int
	Lockups     map[common.Address]Lockup

	Fees          Fees
	PendingFees   *FeeChange
	LastFeeMint   time.Time
	HighWaterMark sdkmath.Int

	Paused        bool
	TradingPaused bool
	CreatedAt     time.Time
}

func (v *Vault) clone() *Vault {
	c := *v
	c.Members = make(map[common.Address]bool, len(v.Members))
	for k, val := range v.Members {
		c.Members[k] = val
	}
	c.Assets = append([]AssetConfig(nil), v.Assets...)
	c.Shares = make(map[common.Address]sdkmath.Int, len(v.Shares))
	for k, val := range v.Shares {
		c.Shares[k] = val
	}
	c.Lockups = make(map[common.Address]Lockup, len(v.Lockups))
	for k, val := range v.Lockups {
		c.Lockups[k] = val
	}
	if v.PendingFees != nil {
		pending := *v.PendingFees
		c.PendingFees = &pending
	}
	return &c
}

// SharesOf returns holder's share balance.
func (v *Vault) SharesOf(holder common.Address) sdkmath.Int {
	if s, ok := v.Shares[holder]; ok {
		return s
	}
	return sdkmath.ZeroInt()
}

// Asset returns the configuration of asset if it is supported.
func (v *Vault) Asset(asset common.Address) (AssetConfig, bool) {
	for _, a := range v.Assets {
		if a.Asset == asset {
			return a, true
		}
	}
	return AssetConfig{}, false
}

// IsMember reports whether holder may hold shares of a private vault.
func (v *Vault) IsMember(holder common.Address) bool {
	return !v.Private || holder == v.Manager || v.Members[holder]
}

func (v *Vault) view() guard.PoolView { return poolView{v} }

type poolView struct{ v *Vault }

func (p poolView) Address() common.Address { return p.v.Address }
func (p poolView) Manager() common.Address { return p.v.Manager }

func (p poolView) IsSupportedAsset(asset common.Address) bool {
	_, ok := p.v.Asset(asset)
	return ok
}

func (p poolView) SupportedAssets() []common.Address {
	out := make([]common.Address, len(p.v.Assets))
	for i, a := range p.v.Assets {
		out[i] = a.Asset
	}
	return out
}
