// Package store persists accepted vault operations and price observations
// with GORM.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vaultcore/internal/models"
	"vaultcore/internal/oracle"
	"vaultcore/internal/vault"
)

// ErrNoObservation is returned when an asset has never been priced.
var ErrNoObservation = errors.New("store: no price observation")

// Store implements vault.Journal and oracle.ObservationReader.
type Store struct {
	db *gorm.DB
}

// New creates a store over db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database for read queries.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Commit writes the vault row, its assets, holdings and members, and the
// operation's events in one transaction.
func (s *Store) Commit(ctx context.Context, c vault.Commit) error {
	v := c.Vault
	addr := v.Address.Hex()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := vaultRow(v)
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("upsert vault: %w", err)
		}

		if err := tx.Where("vault_address = ?", addr).Delete(&models.VaultAsset{}).Error; err != nil {
			return fmt.Errorf("clear assets: %w", err)
		}
		if len(v.Assets) > 0 {
			assets := make([]models.VaultAsset, 0, len(v.Assets))
			for _, a := range v.Assets {
				assets = append(assets, models.VaultAsset{
					VaultAddress: addr,
					Asset:        a.Asset.Hex(),
					IsDeposit:    a.IsDeposit,
					Balance:      models.NewAmount(c.Custody[a.Asset]),
				})
			}
			if err := tx.Create(&assets).Error; err != nil {
				return fmt.Errorf("insert assets: %w", err)
			}
		}

		if err := tx.Where("vault_address = ?", addr).Delete(&models.Holding{}).Error; err != nil {
			return fmt.Errorf("clear holdings: %w", err)
		}
		if holdings := holdingRows(v); len(holdings) > 0 {
			if err := tx.Create(&holdings).Error; err != nil {
				return fmt.Errorf("insert holdings: %w", err)
			}
		}

		if err := tx.Where("vault_address = ?", addr).Delete(&models.Member{}).Error; err != nil {
			return fmt.Errorf("clear members: %w", err)
		}
		if len(v.Members) > 0 {
			members := make([]models.Member, 0, len(v.Members))
			for m := range v.Members {
				members = append(members, models.Member{VaultAddress: addr, Member: m.Hex()})
			}
			if err := tx.Create(&members).Error; err != nil {
				return fmt.Errorf("insert members: %w", err)
			}
		}

		if len(c.Events) > 0 {
			events := make([]models.Event, 0, len(c.Events))
			for _, ev := range c.Events {
				data, err := json.Marshal(ev.Data)
				if err != nil {
					return fmt.Errorf("encode event data: %w", err)
				}
				events = append(events, models.Event{
					ID:           ev.ID,
					VaultAddress: addr,
					Kind:         string(ev.Kind),
					Actor:        ev.Actor.Hex(),
					Data:         string(data),
					At:           ev.At,
				})
			}
			if err := tx.Create(&events).Error; err != nil {
				return fmt.Errorf("insert events: %w", err)
			}
		}
		return nil
	})
}

func vaultRow(v *vault.Vault) models.Vault {
	row := models.Vault{
		Address:        v.Address.Hex(),
		Settings:       v.Settings.Hex(),
		Name:           v.Name,
		Manager:        v.Manager.Hex(),
		Private:        v.Private,
		TotalSupply:    models.NewAmount(v.TotalSupply),
		HighWaterMark:  models.NewAmount(v.HighWaterMark),
		LastFeeMint:    v.LastFeeMint,
		StreamingFee:   v.Fees.Streaming,
		PerformanceFee: v.Fees.Performance,
		EntryFee:       v.Fees.Entry,
		ExitFee:        v.Fees.Exit,
		Paused:         v.Paused,
		TradingPaused:  v.TradingPaused,
		CreatedAt:      v.CreatedAt,
	}
	if v.Trader != (common.Address{}) {
		row.Trader = v.Trader.Hex()
	}
	if p := v.PendingFees; p != nil {
		at := p.AnnouncedAt
		row.PendingStreamingFee = p.Fees.Streaming
		row.PendingPerformanceFee = p.Fees.Performance
		row.PendingEntryFee = p.Fees.Entry
		row.PendingExitFee = p.Fees.Exit
		row.PendingAnnouncedAt = &at
	}
	return row
}

func holdingRows(v *vault.Vault) []models.Holding {
	holders := make(map[common.Address]struct{}, len(v.Shares))
	for h := range v.Shares {
		holders[h] = struct{}{}
	}
	for h := range v.Lockups {
		holders[h] = struct{}{}
	}
	out := make([]models.Holding, 0, len(holders))
	for h := range holders {
		lock := v.Lockups[h]
		out = append(out, models.Holding{
			VaultAddress:    v.Address.Hex(),
			Holder:          h.Hex(),
			Shares:          models.NewAmount(v.SharesOf(h)),
			CooldownSeconds: int64(lock.Duration / time.Second),
			LastDeposit:     lock.LastDeposit,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Holder < out[j].Holder })
	return out
}

// EventFilter narrows ListEvents.
type EventFilter struct {
	Vault common.Address
	Kind  string
}

// ListEvents returns a page of a vault's events, newest first.
func (s *Store) ListEvents(ctx context.Context, f EventFilter, page Page) ([]models.Event, int64, error) {
	page = page.normalized()
	q := s.db.WithContext(ctx).Model(&models.Event{}).Where("vault_address = ?", f.Vault.Hex())
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	var events []models.Event
	if err := q.Order("at DESC, id DESC").Scopes(page.scope()).Find(&events).Error; err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	return events, total, nil
}

// Holdings returns the persisted holdings of a vault.
func (s *Store) Holdings(ctx context.Context, addr common.Address) ([]models.Holding, error) {
	var out []models.Holding
	err := s.db.WithContext(ctx).Where("vault_address = ?", addr.Hex()).Order("holder").Find(&out).Error
	return out, err
}

// SavePrices records observations from a price feed run.
func (s *Store) SavePrices(ctx context.Context, obs []models.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&obs).Error
}

// LatestPrice implements oracle.ObservationReader.
func (s *Store) LatestPrice(ctx context.Context, asset common.Address) (oracle.Price, error) {
	var obs models.PriceObservation
	err := s.db.WithContext(ctx).
		Where("asset = ?", asset.Hex()).
		Order("observed_at DESC").
		First(&obs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return oracle.Price{}, fmt.Errorf("%w for %s", ErrNoObservation, asset.Hex())
	}
	if err != nil {
		return oracle.Price{}, err
	}
	return oracle.Price{Value: obs.Value.Int, Decimals: obs.Decimals, UpdatedAt: obs.ObservedAt}, nil
}
