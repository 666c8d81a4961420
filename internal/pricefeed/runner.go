package pricefeed

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RunResult contains the outcome of one feed cycle.
type RunResult struct {
	AssetsRequested int
	PricesRecorded  int
	Errors          []FetchError
	Duration        time.Duration
}

// Runner fetches prices from providers and records them through a sink.
type Runner struct {
	sink      Sink
	providers []Provider
	log       *zap.SugaredLogger
}

// NewRunner creates a new Runner. Providers are tried in order; the first
// that supports an asset prices it.
func NewRunner(sink Sink, providers []Provider, log *zap.SugaredLogger) *Runner {
	return &Runner{sink: sink, providers: providers, log: log}
}

// Run executes a single cycle: group assets by provider, fetch concurrently
// and record whatever was fetched.
func (r *Runner) Run(ctx context.Context, assets []Asset) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{AssetsRequested: len(assets)}

	groups := make(map[int][]Asset)
	for _, a := range assets {
		matched := false
		for i, p := range r.providers {
			if p.Supports(a) {
				groups[i] = append(groups[i], a)
				matched = true
				break
			}
		}
		if !matched {
			r.log.Warnw("no provider supports asset", "symbol", a.Symbol, "asset", a.Address.Hex())
		}
	}

	var mu sync.Mutex
	var quotes []Quote
	var wg sync.WaitGroup
	for i, group := range groups {
		wg.Add(1)
		go func(p Provider, assets []Asset) {
			defer wg.Done()
			r.log.Debugw("fetching prices", "provider", p.Name(), "count", len(assets))
			q, errs := p.FetchPrices(ctx, assets)
			mu.Lock()
			quotes = append(quotes, q...)
			result.Errors = append(result.Errors, errs...)
			mu.Unlock()
		}(r.providers[i], group)
	}
	wg.Wait()

	for _, e := range result.Errors {
		r.log.Warnw("price fetch failed", "symbol", e.Symbol, "error", e.Err)
	}

	if len(quotes) == 0 {
		r.log.Info("no prices fetched")
		result.Duration = time.Since(start)
		return result, nil
	}

	recorded, err := r.sink.RecordPrices(ctx, quotes)
	if err != nil {
		return nil, err
	}
	result.PricesRecorded = recorded
	result.Duration = time.Since(start)
	return result, nil
}

// RunEvery runs a cycle immediately and then every interval until ctx is
// cancelled. Failed cycles are logged and retried on the next tick.
func (r *Runner) RunEvery(ctx context.Context, interval time.Duration, assets []Asset) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res, err := r.Run(ctx, assets)
		if err != nil {
			r.log.Errorw("price feed cycle failed", "error", err)
		} else {
			r.log.Infow("price feed cycle",
				"requested", res.AssetsRequested,
				"recorded", res.PricesRecorded,
				"errors", len(res.Errors),
				"duration_ms", res.Duration.Milliseconds(),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
