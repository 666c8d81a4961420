// Package deploy assembles a ledger, registry, oracle and vault engine from
// a YAML manifest describing tokens, guards and reference protocols.
package deploy

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"gopkg.in/yaml.v3"

	"vaultcore/internal/registry"
)

// Asset guard families a token can be bound to.
const (
	TypeERC20         = "erc20"
	TypeStakedLP      = "staked_lp"
	TypeRewardBearing = "reward_bearing"
	TypeSynthetic     = "synthetic"
)

// assetTypes maps guard families to their registry asset type ids.
var assetTypes = map[string]registry.AssetType{
	TypeERC20:         1,
	TypeStakedLP:      2,
	TypeRewardBearing: 3,
	TypeSynthetic:     4,
}

// AssetTypeOf returns the registry asset type of a guard family name.
func AssetTypeOf(family string) (registry.AssetType, bool) {
	t, ok := assetTypes[strings.ToLower(family)]
	return t, ok
}

// Manifest describes a deployment.
type Manifest struct {
	Owner             string                `yaml:"owner"`
	Treasury          string                `yaml:"treasury"`
	TreasuryShareBps  uint32                `yaml:"treasury_share_bps"`
	FeeCeilings       *registry.FeeCeilings `yaml:"fee_ceilings"`
	CooldownWhitelist []string              `yaml:"cooldown_whitelist"`

	Tokens       []TokenSpec   `yaml:"tokens"`
	Routers      []RouterSpec  `yaml:"routers"`
	StakingPools []StakingSpec `yaml:"staking_pools"`
	Balances     []BalanceSpec `yaml:"balances"`
}

// TokenSpec is one token. Price is a decimal USD price such as "2000.50".
// Address defaults to one derived from the symbol.
type TokenSpec struct {
	Symbol    string `yaml:"symbol"`
	Address   string `yaml:"address"`
	Decimals  uint8  `yaml:"decimals"`
	Price     string `yaml:"price"`
	AssetType string `yaml:"asset_type"`
	// Staking names the staking pool of a staked_lp or reward_bearing token.
	Staking string `yaml:"staking"`
	// PriceID is the token's id at the external price provider, e.g. the
	// CoinGecko coin id. Tokens without one keep their manifest price.
	PriceID string `yaml:"price_id"`
}

// TokenAddress returns the ledger address the token is deployed at.
func (t TokenSpec) TokenAddress() common.Address {
	return addressOf(t.Address, "token", t.Symbol)
}

// RouterSpec is a swap router with reserves keyed by token symbol.
type RouterSpec struct {
	Name     string            `yaml:"name"`
	Address  string            `yaml:"address"`
	FeeBps   uint32            `yaml:"fee_bps"`
	Reserves map[string]string `yaml:"reserves"`
}

// StakingSpec is a staking pool; tokens are referenced by symbol.
type StakingSpec struct {
	Name        string `yaml:"name"`
	Address     string `yaml:"address"`
	StakeToken  string `yaml:"stake_token"`
	RewardToken string `yaml:"reward_token"`
}

// BalanceSpec funds a holder with a decimal amount of a token.
type BalanceSpec struct {
	Holder string `yaml:"holder"`
	Token  string `yaml:"token"`
	Amount string `yaml:"amount"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks addresses, references and asset types.
func (m *Manifest) Validate() error {
	if !common.IsHexAddress(m.Owner) {
		return fmt.Errorf("owner %q is not an address", m.Owner)
	}
	if m.Treasury != "" && !common.IsHexAddress(m.Treasury) {
		return fmt.Errorf("treasury %q is not an address", m.Treasury)
	}
	for _, w := range m.CooldownWhitelist {
		if !common.IsHexAddress(w) {
			return fmt.Errorf("cooldown whitelist entry %q is not an address", w)
		}
	}

	symbols := make(map[string]bool, len(m.Tokens))
	for _, t := range m.Tokens {
		if t.Symbol == "" {
			return fmt.Errorf("token without symbol")
		}
		if symbols[t.Symbol] {
			return fmt.Errorf("duplicate token %s", t.Symbol)
		}
		symbols[t.Symbol] = true
		if t.Address != "" && !common.IsHexAddress(t.Address) {
			return fmt.Errorf("token %s: address %q is invalid", t.Symbol, t.Address)
		}
		if _, ok := assetTypes[t.assetType()]; !ok {
			return fmt.Errorf("token %s: unknown asset type %q", t.Symbol, t.AssetType)
		}
	}

	pools := make(map[string]bool, len(m.StakingPools))
	for _, p := range m.StakingPools {
		if !symbols[p.StakeToken] || !symbols[p.RewardToken] {
			return fmt.Errorf("staking pool %s references unknown tokens", p.Name)
		}
		pools[p.Name] = true
	}
	for _, t := range m.Tokens {
		switch t.assetType() {
		case TypeStakedLP, TypeRewardBearing:
			if !pools[t.Staking] {
				return fmt.Errorf("token %s: unknown staking pool %q", t.Symbol, t.Staking)
			}
		}
	}
	for _, r := range m.Routers {
		for sym := range r.Reserves {
			if !symbols[sym] {
				return fmt.Errorf("router %s: unknown reserve token %s", r.Name, sym)
			}
		}
	}
	for _, b := range m.Balances {
		if !common.IsHexAddress(b.Holder) || !symbols[b.Token] {
			return fmt.Errorf("invalid balance entry for %s/%s", b.Holder, b.Token)
		}
	}
	return nil
}

func (t TokenSpec) assetType() string {
	if t.AssetType == "" {
		return TypeERC20
	}
	return strings.ToLower(t.AssetType)
}

// addressOf returns explicit, or an address derived from kind and name.
func addressOf(explicit, kind, name string) common.Address {
	if explicit != "" {
		return common.HexToAddress(explicit)
	}
	return common.BytesToAddress(crypto.Keccak256([]byte(kind + "/" + name)))
}
