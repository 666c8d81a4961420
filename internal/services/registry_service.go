package services

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"

	"vaultcore/internal/deploy"
	apperrors "vaultcore/internal/errors"
	"vaultcore/internal/guard"
	"vaultcore/internal/guard/contractguard"
	"vaultcore/internal/registry"
	"vaultcore/internal/vault"
)

// Contract guard kinds accepted by SetContractGuard.
const (
	GuardNone       = "none"
	GuardERC20      = "erc20"
	GuardSwapRouter = "swap_router"
	GuardStaking    = "staking"
)

// registryService administers the capability registry.
type registryService struct {
	registry *registry.Registry
	engine   *vault.Engine
}

// NewRegistryService creates a new RegistryServicer over the engine's registry.
func NewRegistryService(engine *vault.Engine) RegistryServicer {
	return &registryService{registry: engine.Registry(), engine: engine}
}

// GetRegistry returns the current platform configuration.
func (s *registryService) GetRegistry(_ context.Context) (*RegistryView, error) {
	bps, treasury := s.registry.TreasuryShare()
	return &RegistryView{
		Owner:            s.registry.Owner(),
		Paused:           s.registry.Paused(),
		FeeCeilings:      s.registry.FeeCeilings(),
		Treasury:         treasury,
		TreasuryShareBps: bps,
		Addresses:        s.registry.Addresses(),
		Assets:           s.registry.Assets(),
		Targets:          s.registry.Targets(),
		Tokens:           s.engine.Tokens(),
	}, nil
}

// SetPaused pauses or resumes every vault.
func (s *registryService) SetPaused(ctx context.Context, caller common.Address, paused bool) (err error) {
	_, span := startSpan(ctx, "registry.pause", attribute.Bool("paused", paused))
	defer func() { endSpan(span, err) }()

	return s.registry.SetPaused(caller, paused)
}

// SetFeeCeilings replaces the fee ceilings.
func (s *registryService) SetFeeCeilings(ctx context.Context, caller common.Address, c registry.FeeCeilings) (err error) {
	_, span := startSpan(ctx, "registry.fee_ceilings")
	defer func() { endSpan(span, err) }()

	return s.registry.SetFeeCeilings(caller, c)
}

// SetTreasury binds the treasury address and its fee share.
func (s *registryService) SetTreasury(ctx context.Context, caller, treasury common.Address, shareBps uint32) (err error) {
	_, span := startSpan(ctx, "registry.treasury", attribute.String("treasury", treasury.Hex()))
	defer func() { endSpan(span, err) }()

	if err := s.registry.SetAddress(caller, registry.AddressTreasury, treasury); err != nil {
		return err
	}
	return s.registry.SetTreasuryShare(caller, shareBps)
}

// SetAddress binds a named address.
func (s *registryService) SetAddress(ctx context.Context, caller common.Address, name string, addr common.Address) (err error) {
	_, span := startSpan(ctx, "registry.address", attribute.String("name", name))
	defer func() { endSpan(span, err) }()

	if name == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "address name is required")
	}
	return s.registry.SetAddress(caller, name, addr)
}

// SetCooldownWhitelist exempts addr from withdrawal cooldowns, or revokes it.
func (s *registryService) SetCooldownWhitelist(ctx context.Context, caller, addr common.Address, exempt bool) (err error) {
	_, span := startSpan(ctx, "registry.cooldown_whitelist", attribute.String("address", addr.Hex()))
	defer func() { endSpan(span, err) }()

	return s.registry.SetCooldownWhitelist(caller, addr, exempt)
}

// SetAssetType assigns asset to a guard family such as "erc20" or "staked_lp".
func (s *registryService) SetAssetType(ctx context.Context, caller, asset common.Address, family string) (err error) {
	_, span := startSpan(ctx, "registry.asset_type", attribute.String("asset", asset.Hex()))
	defer func() { endSpan(span, err) }()

	t, ok := deploy.AssetTypeOf(family)
	if !ok {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown asset family "+family)
	}
	return s.registry.SetAssetType(caller, asset, t)
}

// SetContractGuard binds target to a new guard of the given kind.
func (s *registryService) SetContractGuard(ctx context.Context, caller, target common.Address, spec ContractGuardSpec) (err error) {
	_, span := startSpan(ctx, "registry.contract_guard",
		attribute.String("target", target.Hex()), attribute.String("kind", spec.Kind))
	defer func() { endSpan(span, err) }()

	var g guard.ContractGuard
	switch strings.ToLower(spec.Kind) {
	case GuardNone:
	case GuardERC20:
		g = contractguard.NewERC20Guard(s.registry)
	case GuardSwapRouter:
		g = contractguard.NewSwapRouterGuard()
	case GuardStaking:
		if spec.StakeToken == (common.Address{}) || spec.RewardToken == (common.Address{}) {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "staking guard needs stake and reward tokens")
		}
		g = contractguard.NewStakingGuard(spec.StakeToken, spec.RewardToken)
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown guard kind "+spec.Kind)
	}
	return s.registry.SetContractGuard(caller, target, g)
}

// TransferOwnership hands the registry to next.
func (s *registryService) TransferOwnership(ctx context.Context, caller, next common.Address) (err error) {
	_, span := startSpan(ctx, "registry.transfer_ownership", attribute.String("next", next.Hex()))
	defer func() { endSpan(span, err) }()

	return s.registry.TransferOwnership(caller, next)
}
