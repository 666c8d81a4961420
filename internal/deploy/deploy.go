package deploy

import (
	"context"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"vaultcore/internal/amount"
	"vaultcore/internal/guard"
	"vaultcore/internal/guard/assetguard"
	"vaultcore/internal/guard/contractguard"
	"vaultcore/internal/ledger"
	"vaultcore/internal/oracle"
	"vaultcore/internal/protocols"
	"vaultcore/internal/registry"
	"vaultcore/internal/vault"
)

// PriceDecimals is the precision of manifest prices fed to the oracle.
const PriceDecimals = 8

// Platform is a fully wired deployment.
type Platform struct {
	Manifest *Manifest
	Ledger   *ledger.Ledger
	Registry *registry.Registry
	Oracle   *oracle.FeedOracle
	Engine   *vault.Engine

	// Reference serves manifest prices only and Observed serves persisted
	// observations only. Synthetic assets are priced from the median of
	// both; Observed is nil without an observation reader.
	Reference *oracle.FeedOracle
	Observed  *oracle.FeedOracle

	// Feeds hold the manifest prices, keyed by token address.
	Feeds   map[common.Address]*oracle.StaticFeed
	Tokens  map[string]common.Address
	Routers map[string]*protocols.SwapRouter
	Staking map[string]*protocols.StakingPool
}

// Token returns the address of the token with the given symbol.
func (p *Platform) Token(symbol string) (common.Address, bool) {
	addr, ok := p.Tokens[symbol]
	return addr, ok
}

type options struct {
	engine    []vault.Option
	reader    oracle.ObservationReader
	staleness time.Duration
	now       func() time.Time
}

// Option configures Apply.
type Option func(*options)

// WithEngineOptions passes options through to the vault engine.
func WithEngineOptions(opts ...vault.Option) Option {
	return func(o *options) { o.engine = append(o.engine, opts...) }
}

// WithObservations prices tokens from persisted observations, falling back
// to the manifest price while a token has none.
func WithObservations(r oracle.ObservationReader) Option {
	return func(o *options) { o.reader = r }
}

// WithStaleness rejects prices older than d. Zero disables the check.
func WithStaleness(d time.Duration) Option {
	return func(o *options) { o.staleness = d }
}

// WithClock overrides the time source of the oracle and the engine.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Apply builds a platform from m.
func Apply(m *Manifest, opts ...Option) (*Platform, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	owner := common.HexToAddress(m.Owner)
	p := &Platform{
		Manifest: m,
		Ledger:   ledger.New(),
		Registry: registry.New(owner),
		Oracle:   oracle.NewFeedOracle(o.staleness).WithClock(o.now),

		Reference: oracle.NewFeedOracle(o.staleness).WithClock(o.now),
		Feeds:    make(map[common.Address]*oracle.StaticFeed),
		Tokens:   make(map[string]common.Address),
		Routers:  make(map[string]*protocols.SwapRouter),
		Staking:  make(map[string]*protocols.StakingPool),
	}
	if o.reader != nil {
		p.Observed = oracle.NewFeedOracle(o.staleness).WithClock(o.now)
	}
	if err := p.governance(owner, m); err != nil {
		return nil, err
	}
	if err := p.tokens(owner, m, o); err != nil {
		return nil, err
	}
	if err := p.protocols(owner, m); err != nil {
		return nil, err
	}
	if err := p.guards(owner, m); err != nil {
		return nil, err
	}
	if err := p.fund(m); err != nil {
		return nil, err
	}
	p.Ledger.Commit()

	engineOpts := append([]vault.Option{vault.WithClock(o.now)}, o.engine...)
	p.Engine = vault.NewEngine(p.Ledger, p.Registry, engineOpts...)
	return p, nil
}

func (p *Platform) governance(owner common.Address, m *Manifest) error {
	ceilings := registry.DefaultFeeCeilings
	if m.FeeCeilings != nil {
		ceilings = *m.FeeCeilings
	}
	if err := p.Registry.SetFeeCeilings(owner, ceilings); err != nil {
		return fmt.Errorf("set fee ceilings: %w", err)
	}
	if m.Treasury != "" {
		if err := p.Registry.SetAddress(owner, registry.AddressTreasury, common.HexToAddress(m.Treasury)); err != nil {
			return fmt.Errorf("set treasury: %w", err)
		}
		if err := p.Registry.SetTreasuryShare(owner, m.TreasuryShareBps); err != nil {
			return fmt.Errorf("set treasury share: %w", err)
		}
	}
	for _, w := range m.CooldownWhitelist {
		if err := p.Registry.SetCooldownWhitelist(owner, common.HexToAddress(w), true); err != nil {
			return fmt.Errorf("whitelist %s: %w", w, err)
		}
	}
	return nil
}

func (p *Platform) tokens(owner common.Address, m *Manifest, o options) error {
	for _, t := range m.Tokens {
		addr := t.TokenAddress()
		p.Tokens[t.Symbol] = addr
		p.Ledger.RegisterToken(ledger.TokenInfo{Address: addr, Symbol: t.Symbol, Decimals: t.Decimals})
		p.Ledger.Deploy(addr, &protocols.Token{Address: addr})

		price := sdkmath.ZeroInt()
		if t.Price != "" {
			v, err := amount.ParseUnits(t.Price, PriceDecimals)
			if err != nil {
				return fmt.Errorf("token %s price: %w", t.Symbol, err)
			}
			price = v
		}
		static := oracle.NewStaticFeed(price, PriceDecimals, o.now())
		p.Feeds[addr] = static

		p.Reference.SetFeed(addr, static)

		var feed oracle.Feed = static
		if o.reader != nil {
			observed := oracle.NewStoreFeed(o.reader, addr)
			p.Observed.SetFeed(addr, observed)
			feed = fallbackFeed{primary: observed, fallback: static}
		}
		p.Oracle.SetFeed(addr, feed)

		if err := p.Registry.SetAssetType(owner, addr, assetTypes[t.assetType()]); err != nil {
			return fmt.Errorf("token %s asset type: %w", t.Symbol, err)
		}
	}
	return nil
}

func (p *Platform) protocols(owner common.Address, m *Manifest) error {
	for _, s := range m.StakingPools {
		addr := addressOf(s.Address, "staking", s.Name)
		pool := &protocols.StakingPool{
			Address:     addr,
			StakeToken:  p.Tokens[s.StakeToken],
			RewardToken: p.Tokens[s.RewardToken],
		}
		p.Staking[s.Name] = pool
		p.Ledger.Deploy(addr, pool)
		if err := p.Registry.SetContractGuard(owner, addr, contractguard.NewStakingGuard(pool.StakeToken, pool.RewardToken)); err != nil {
			return fmt.Errorf("staking pool %s guard: %w", s.Name, err)
		}
	}

	routerGuard := contractguard.NewSwapRouterGuard()
	for _, r := range m.Routers {
		addr := addressOf(r.Address, "router", r.Name)
		router := &protocols.SwapRouter{Address: addr, Prices: p.Oracle, FeeBps: r.FeeBps}
		p.Routers[r.Name] = router
		p.Ledger.Deploy(addr, router)
		if err := p.Registry.SetContractGuard(owner, addr, routerGuard); err != nil {
			return fmt.Errorf("router %s guard: %w", r.Name, err)
		}
	}
	return nil
}

func (p *Platform) guards(owner common.Address, m *Manifest) error {
	staked := assetguard.NewStakedLPGuard(p.Ledger, p.Oracle)
	rewards := assetguard.NewRewardBearingGuard(p.Ledger, p.Oracle)
	byType := map[string]guard.AssetGuard{
		TypeERC20:         assetguard.NewERC20Guard(p.Ledger, p.Oracle),
		TypeStakedLP:      staked,
		TypeRewardBearing: rewards,
		TypeSynthetic:     assetguard.NewSyntheticGuard(p.Ledger, p.syntheticSources(), 1),
	}
	for name, g := range byType {
		if err := p.Registry.SetAssetGuard(owner, assetTypes[name], g); err != nil {
			return fmt.Errorf("asset guard %s: %w", name, err)
		}
	}

	tokenGuard := contractguard.NewERC20Guard(p.Registry)
	for _, t := range m.Tokens {
		addr := p.Tokens[t.Symbol]
		if err := p.Registry.SetContractGuard(owner, addr, tokenGuard); err != nil {
			return fmt.Errorf("token %s guard: %w", t.Symbol, err)
		}
		if t.Staking == "" {
			continue
		}
		pool := p.Staking[t.Staking]
		b := assetguard.Binding{Staking: pool.Address, RewardToken: pool.RewardToken}
		switch t.assetType() {
		case TypeStakedLP:
			staked.Bind(addr, b)
		case TypeRewardBearing:
			rewards.Bind(addr, b)
		}
	}
	return nil
}

// syntheticSources lists the independent price sources a synthetic asset
// is aggregated from.
func (p *Platform) syntheticSources() []oracle.PriceSource {
	sources := []oracle.PriceSource{p.Reference}
	if p.Observed != nil {
		sources = append(sources, p.Observed)
	}
	return sources
}

func (p *Platform) fund(m *Manifest) error {
	mint := func(symbol string, holder common.Address, value string) error {
		addr := p.Tokens[symbol]
		info, _ := p.Ledger.Token(addr)
		amt, err := amount.ParseUnits(value, info.Decimals)
		if err != nil {
			return fmt.Errorf("%s amount: %w", symbol, err)
		}
		return p.Ledger.Mint(addr, holder, amt)
	}
	for _, r := range m.Routers {
		for symbol, value := range r.Reserves {
			if err := mint(symbol, p.Routers[r.Name].Address, value); err != nil {
				return fmt.Errorf("router %s reserves: %w", r.Name, err)
			}
		}
	}
	for _, b := range m.Balances {
		if err := mint(b.Token, common.HexToAddress(b.Holder), b.Amount); err != nil {
			return fmt.Errorf("balance of %s: %w", b.Holder, err)
		}
	}
	return nil
}

// fallbackFeed answers from primary and uses fallback when primary fails.
type fallbackFeed struct {
	primary  oracle.Feed
	fallback oracle.Feed
}

func (f fallbackFeed) Latest(ctx context.Context) (oracle.Price, error) {
	if p, err := f.primary.Latest(ctx); err == nil {
		return p, nil
	}
	return f.fallback.Latest(ctx)
}
