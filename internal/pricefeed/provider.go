// Package pricefeed fetches token prices from external providers and hands
// them to a sink that records them for the oracle.
package pricefeed

import (
	"context"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"vaultcore/internal/deploy"
)

// Decimals is the precision of every quote, matching the engine's feeds.
const Decimals = 8

// Asset is a token the runner prices.
type Asset struct {
	Address common.Address
	Symbol  string
	PriceID string
}

// Quote is a successfully fetched USD price scaled by Decimals.
type Quote struct {
	Asset      common.Address
	Source     string
	Value      sdkmath.Int
	ObservedAt time.Time
}

// FetchError represents a failed price fetch for a specific asset.
type FetchError struct {
	Asset  common.Address
	Symbol string
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch price for %s (%s): %v", e.Symbol, e.Asset.Hex(), e.Err)
}

// Provider fetches current USD prices for a set of assets.
type Provider interface {
	// Name returns the provider's source name recorded with each quote.
	Name() string

	// Supports returns true if this provider can price the asset.
	Supports(a Asset) bool

	// FetchPrices returns as many quotes as possible along with per-asset
	// errors for the rest.
	FetchPrices(ctx context.Context, assets []Asset) ([]Quote, []FetchError)
}

// ManifestAssets lists the manifest tokens that carry a provider price id.
func ManifestAssets(m *deploy.Manifest) []Asset {
	var out []Asset
	for _, t := range m.Tokens {
		if t.PriceID == "" {
			continue
		}
		out = append(out, Asset{Address: t.TokenAddress(), Symbol: t.Symbol, PriceID: t.PriceID})
	}
	return out
}
