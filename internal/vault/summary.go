package vault

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"vaultcore/internal/amount"
)

// AssetSummary is one supported asset's position in a vault.
type AssetSummary struct {
	Asset     common.Address
	Symbol    string
	Decimals  uint8
	IsDeposit bool
	Balance   sdkmath.Int
	ValueUSD  sdkmath.Int
}

// Summary is a point-in-time view of a vault.
type Summary struct {
	Vault              *Vault
	FundValue          sdkmath.Int
	TokenPrice         sdkmath.Int
	PendingPerformance sdkmath.Int
	PendingStreaming   sdkmath.Int
	Assets             []AssetSummary
	At                 time.Time
}

// FundSummary returns balances, values and pricing of the vault at addr.
func (e *Engine) FundSummary(ctx context.Context, addr common.Address) (Summary, error) {
	var s Summary
	err := e.read(ctx, addr, func(tx *txn) error {
		total := sdkmath.ZeroInt()
		assets := make([]AssetSummary, 0, len(tx.v.Assets))
		for _, a := range tx.v.Assets {
			g, err := tx.assetGuard(a.Asset)
			if err != nil {
				return err
			}
			bal, err := g.Balance(tx.ctx, tx.v.Address, a.Asset)
			if err != nil {
				return err
			}
			val := sdkmath.ZeroInt()
			if !bal.IsZero() {
				if val, err = g.USDValue(tx.ctx, a.Asset, bal); err != nil {
					return err
				}
			}
			info, _ := tx.e.ledger.Token(a.Asset)
			assets = append(assets, AssetSummary{
				Asset:     a.Asset,
				Symbol:    info.Symbol,
				Decimals:  info.Decimals,
				IsDeposit: a.IsDeposit,
				Balance:   bal,
				ValueUSD:  val,
			})
			total = total.Add(val)
		}

		performance, streaming := tx.pendingFees(total)
		price := sdkmath.ZeroInt()
		if tx.v.TotalSupply.IsPositive() {
			price = amount.MulDiv(total, amount.Unit, tx.v.TotalSupply.Add(performance).Add(streaming))
		}
		s = Summary{
			Vault:              tx.v.clone(),
			FundValue:          total,
			TokenPrice:         price,
			PendingPerformance: performance,
			PendingStreaming:   streaming,
			Assets:             assets,
			At:                 tx.now,
		}
		return nil
	})
	return s, err
}
