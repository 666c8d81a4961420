package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

const (
	coinGeckoBaseURL  = "https://api.coingecko.com/api/v3"
	coinGeckoBatchMax = 100
)

// CoinGeckoProvider fetches USD prices from CoinGecko's simple price endpoint.
type CoinGeckoProvider struct {
	httpClient *http.Client
	baseURL    string
	now        func() time.Time
}

// NewCoinGeckoProvider creates a new CoinGecko price provider. An empty
// baseURL uses the public API.
func NewCoinGeckoProvider(httpClient *http.Client, baseURL string) *CoinGeckoProvider {
	if baseURL == "" {
		baseURL = coinGeckoBaseURL
	}
	return &CoinGeckoProvider{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Name returns the provider's source name.
func (p *CoinGeckoProvider) Name() string { return "coingecko" }

// Supports returns true for assets with a CoinGecko coin id.
func (p *CoinGeckoProvider) Supports(a Asset) bool {
	return a.PriceID != ""
}

// FetchPrices fetches current prices from CoinGecko in batches.
func (p *CoinGeckoProvider) FetchPrices(ctx context.Context, assets []Asset) ([]Quote, []FetchError) {
	if len(assets) == 0 {
		return nil, nil
	}

	var quotes []Quote
	var fetchErrors []FetchError
	now := p.now()
	for i := 0; i < len(assets); i += coinGeckoBatchMax {
		end := min(i+coinGeckoBatchMax, len(assets))
		q, errs := p.fetchBatch(ctx, assets[i:end], now)
		quotes = append(quotes, q...)
		fetchErrors = append(fetchErrors, errs...)
	}
	return quotes, fetchErrors
}

func (p *CoinGeckoProvider) fetchBatch(ctx context.Context, assets []Asset, now time.Time) ([]Quote, []FetchError) {
	ids := make([]string, 0, len(assets))
	for _, a := range assets {
		ids = append(ids, a.PriceID)
	}
	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", "usd")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/simple/price?"+query.Encode(), nil)
	if err != nil {
		return nil, batchErrors(assets, fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, batchErrors(assets, fmt.Errorf("http request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, batchErrors(assets, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	// {"weth": {"usd": 3456.78}}
	var body map[string]map[string]decimal.Decimal
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, batchErrors(assets, fmt.Errorf("decoding response: %w", err))
	}

	var quotes []Quote
	var fetchErrors []FetchError
	for _, a := range assets {
		price, found := body[a.PriceID]["usd"]
		if !found {
			fetchErrors = append(fetchErrors, FetchError{Asset: a.Address, Symbol: a.Symbol, Err: fmt.Errorf("id %s not found in response", a.PriceID)})
			continue
		}
		value := price.Shift(Decimals).Round(0)
		if !value.IsPositive() {
			fetchErrors = append(fetchErrors, FetchError{Asset: a.Address, Symbol: a.Symbol, Err: fmt.Errorf("non-positive price for %s", a.PriceID)})
			continue
		}
		quotes = append(quotes, Quote{
			Asset:      a.Address,
			Source:     p.Name(),
			Value:      sdkmath.NewIntFromBigInt(value.BigInt()),
			ObservedAt: now,
		})
	}
	return quotes, fetchErrors
}

// batchErrors creates FetchErrors for all assets in a failed batch.
func batchErrors(assets []Asset, err error) []FetchError {
	out := make([]FetchError, len(assets))
	for i, a := range assets {
		out[i] = FetchError{Asset: a.Address, Symbol: a.Symbol, Err: err}
	}
	return out
}
