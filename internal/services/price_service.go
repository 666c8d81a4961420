package services

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	apperrors "vaultcore/internal/errors"
	"vaultcore/internal/models"
	"vaultcore/internal/oracle"
	"vaultcore/internal/store"
)

// priceService records feed observations and answers price lookups.
type priceService struct {
	store  *store.Store
	prices oracle.PriceSource
}

// NewPriceService creates a new PriceServicer.
func NewPriceService(st *store.Store, prices oracle.PriceSource) PriceServicer {
	return &priceService{store: st, prices: prices}
}

// RecordPrices validates and persists a batch of observations, returning
// how many were recorded.
func (s *priceService) RecordPrices(ctx context.Context, prices []PriceInput) (int, error) {
	if len(prices) == 0 {
		return 0, nil
	}

	obs := make([]models.PriceObservation, 0, len(prices))
	for i, p := range prices {
		if p.Asset == (common.Address{}) {
			return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("price %d: asset is required", i))
		}
		if p.Value.IsNil() || !p.Value.IsPositive() {
			return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("price %d: value must be positive", i))
		}
		obs = append(obs, models.PriceObservation{
			Asset:      p.Asset.Hex(),
			Source:     p.Source,
			Value:      models.NewAmount(p.Value),
			Decimals:   p.Decimals,
			ObservedAt: p.RecordedAt,
		})
	}

	if err := s.store.SavePrices(ctx, obs); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return len(obs), nil
}

// GetPrice returns the oracle price of asset.
func (s *priceService) GetPrice(ctx context.Context, asset common.Address) (oracle.Price, error) {
	ctx, span := startSpan(ctx, "price.get")
	p, err := s.prices.USDPrice(ctx, asset)
	endSpan(span, err)
	return p, err
}
