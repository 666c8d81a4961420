// Command pricefeed fetches token prices from CoinGecko and posts them to
// the vaultcore ingestion endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"vaultcore/internal/config"
	"vaultcore/internal/deploy"
	"vaultcore/internal/logger"
	"vaultcore/internal/pricefeed"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	if err := run(*once); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run(once bool) error {
	log := logger.Named("pricefeed")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.IngestAPIKey == "" {
		return fmt.Errorf("PIPELINE_API_KEY is required")
	}

	manifest, err := deploy.Load(cfg.ManifestPath)
	if err != nil {
		return fmt.Errorf("failed to load deployment manifest: %w", err)
	}
	assets := pricefeed.ManifestAssets(manifest)
	if len(assets) == 0 {
		log.Info("no tokens with a price_id, nothing to do")
		return nil
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	runner := pricefeed.NewRunner(
		pricefeed.NewAPIClient(cfg.APIURL, cfg.IngestAPIKey, httpClient),
		[]pricefeed.Provider{pricefeed.NewCoinGeckoProvider(httpClient, cfg.CoinGeckoBaseURL)},
		log,
	)

	if once {
		res, err := runner.Run(ctx, assets)
		if err != nil {
			return err
		}
		log.Infow("price feed cycle", "requested", res.AssetsRequested, "recorded", res.PricesRecorded, "errors", len(res.Errors))
		return nil
	}

	log.Infow("starting price feed", "assets", len(assets), "interval", cfg.PriceFeedEvery)
	runner.RunEvery(ctx, cfg.PriceFeedEvery, assets)
	return nil
}
