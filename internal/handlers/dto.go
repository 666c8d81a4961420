package handlers

import (
	"sort"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"vaultcore/internal/amount"
	"vaultcore/internal/vault"
)

// FeeChangeResponse is an announced fee increase.
type FeeChangeResponse struct {
	Fees        vault.Fees `json:"fees"`
	AnnouncedAt time.Time  `json:"announced_at"`
	ReadyAt     time.Time  `json:"ready_at"`
}

// VaultResponse represents a vault in responses. Amounts are base-unit
// integer strings.
type VaultResponse struct {
	Address       string              `json:"address"`
	Settings      string              `json:"settings"`
	Name          string              `json:"name"`
	Manager       string              `json:"manager"`
	Trader        string              `json:"trader,omitempty"`
	Private       bool                `json:"private"`
	Members       []string            `json:"members"`
	Assets        []vault.AssetConfig `json:"assets"`
	TotalSupply   string              `json:"total_supply"`
	Fees          vault.Fees          `json:"fees"`
	PendingFees   *FeeChangeResponse  `json:"pending_fees,omitempty"`
	HighWaterMark string              `json:"high_water_mark"`
	LastFeeMint   time.Time           `json:"last_fee_mint"`
	Paused        bool                `json:"paused"`
	TradingPaused bool                `json:"trading_paused"`
	CreatedAt     time.Time           `json:"created_at"`
}

func newVaultResponse(v *vault.Vault, feeDelay time.Duration) VaultResponse {
	members := make([]string, 0, len(v.Members))
	for m, ok := range v.Members {
		if ok {
			members = append(members, m.Hex())
		}
	}
	sort.Strings(members)

	resp := VaultResponse{
		Address:       v.Address.Hex(),
		Settings:      v.Settings.Hex(),
		Name:          v.Name,
		Manager:       v.Manager.Hex(),
		Private:       v.Private,
		Members:       members,
		Assets:        v.Assets,
		TotalSupply:   intString(v.TotalSupply),
		Fees:          v.Fees,
		HighWaterMark: intString(v.HighWaterMark),
		LastFeeMint:   v.LastFeeMint,
		Paused:        v.Paused,
		TradingPaused: v.TradingPaused,
		CreatedAt:     v.CreatedAt,
	}
	if v.Trader != (common.Address{}) {
		resp.Trader = v.Trader.Hex()
	}
	if v.PendingFees != nil {
		resp.PendingFees = &FeeChangeResponse{
			Fees:        v.PendingFees.Fees,
			AnnouncedAt: v.PendingFees.AnnouncedAt,
			ReadyAt:     v.PendingFees.AnnouncedAt.Add(feeDelay),
		}
	}
	return resp
}

// AssetSummaryResponse is one asset line of a vault summary.
type AssetSummaryResponse struct {
	Asset     string `json:"asset"`
	Symbol    string `json:"symbol"`
	Decimals  uint8  `json:"decimals"`
	IsDeposit bool   `json:"is_deposit"`
	Balance   string `json:"balance"`
	Formatted string `json:"formatted"`
	ValueUSD  string `json:"value_usd"`
}

// SummaryResponse is a vault valuation.
type SummaryResponse struct {
	Vault              VaultResponse          `json:"vault"`
	FundValue          string                 `json:"fund_value"`
	FundValueUSD       string                 `json:"fund_value_usd"`
	TokenPrice         string                 `json:"token_price"`
	PendingPerformance string                 `json:"pending_performance_fee"`
	PendingStreaming   string                 `json:"pending_streaming_fee"`
	Assets             []AssetSummaryResponse `json:"assets"`
	At                 time.Time              `json:"at"`
}

func newSummaryResponse(s vault.Summary, feeDelay time.Duration) SummaryResponse {
	assets := make([]AssetSummaryResponse, 0, len(s.Assets))
	for _, a := range s.Assets {
		assets = append(assets, AssetSummaryResponse{
			Asset:     a.Asset.Hex(),
			Symbol:    a.Symbol,
			Decimals:  a.Decimals,
			IsDeposit: a.IsDeposit,
			Balance:   intString(a.Balance),
			Formatted: amount.Format(a.Balance, a.Decimals),
			ValueUSD:  amount.FormatUSD(a.ValueUSD),
		})
	}
	return SummaryResponse{
		Vault:              newVaultResponse(s.Vault, feeDelay),
		FundValue:          intString(s.FundValue),
		FundValueUSD:       amount.FormatUSD(s.FundValue),
		TokenPrice:         intString(s.TokenPrice),
		PendingPerformance: intString(s.PendingPerformance),
		PendingStreaming:   intString(s.PendingStreaming),
		Assets:             assets,
		At:                 s.At,
	}
}

// TransferResponse is one asset paid out by a withdrawal.
type TransferResponse struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

func intString(v sdkmath.Int) string {
	return amount.OrZero(v).String()
}
