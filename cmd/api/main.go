package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gin-gonic/gin"

	"vaultcore/internal/config"
	"vaultcore/internal/database"
	"vaultcore/internal/deploy"
	"vaultcore/internal/handlers"
	"vaultcore/internal/logger"
	"vaultcore/internal/middleware"
	"vaultcore/internal/pricefeed"
	"vaultcore/internal/services"
	"vaultcore/internal/store"
	"vaultcore/internal/telemetry"
	"vaultcore/internal/validator"
	"vaultcore/internal/vault"
)

// @title           vaultcore API
// @version         1.0
// @description     Custodial multi-asset vaults with guarded execution and share accounting.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	shutdownTracing, err := telemetry.Setup(ctx, "vaultcore-api", cfg.OTELEndpoint)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	dbManager, err := database.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() { _ = dbManager.Close() }()
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	st := store.New(dbManager.DB())

	manifest, err := deploy.Load(cfg.ManifestPath)
	if err != nil {
		return fmt.Errorf("failed to load deployment manifest: %w", err)
	}
	if err := applyOverrides(manifest, cfg); err != nil {
		return err
	}

	platform, err := deploy.Apply(manifest,
		deploy.WithObservations(st),
		deploy.WithStaleness(cfg.PriceStaleAfter),
		deploy.WithEngineOptions(
			vault.WithJournal(st),
			vault.WithLogger(logger.Named("vault")),
			vault.WithParams(engineParams(cfg)),
			vault.WithCommitTimeout(cfg.CommitTimeout),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to deploy platform: %w", err)
	}
	log.Infow("platform deployed", "tokens", len(manifest.Tokens), "owner", manifest.Owner)

	// Initialize services
	vaultService := services.NewVaultService(platform.Engine, st)
	registryService := services.NewRegistryService(platform.Engine)
	priceService := services.NewPriceService(st, platform.Oracle)
	authService := services.NewAuthService(time.Now)

	if cfg.EmbeddedFeed {
		runner := pricefeed.NewRunner(priceSink(priceService),
			[]pricefeed.Provider{pricefeed.NewCoinGeckoProvider(&http.Client{Timeout: cfg.RequestTimeout}, cfg.CoinGeckoBaseURL)},
			logger.Named("pricefeed"))
		go runner.RunEvery(ctx, cfg.PriceFeedEvery, pricefeed.ManifestAssets(manifest))
	}

	validator.Register()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Tracing())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterRoutes(router.Group("/api/v1"), handlers.Handlers{
		Auth:     handlers.NewAuthHandler(authService, cfg.JWTSecret, cfg.JWTExpirationDur),
		Vault:    handlers.NewVaultHandler(vaultService, cfg.FeeChangeDelay),
		Registry: handlers.NewRegistryHandler(registryService),
		Price:    handlers.NewPriceHandler(priceService),
	}, cfg.JWTSecret, cfg.IngestAPIKey)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting vaultcore API on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// applyOverrides lets the environment replace the manifest's governance
// addresses.
func applyOverrides(m *deploy.Manifest, cfg *config.Config) error {
	m.Owner = cfg.Owner
	if cfg.Treasury != "" {
		m.Treasury = cfg.Treasury
		m.TreasuryShareBps = cfg.TreasuryShareBps
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid manifest after overrides: %w", err)
	}
	return nil
}

func engineParams(cfg *config.Config) vault.Params {
	return vault.Params{
		MinSupply:            sdkmath.NewInt(cfg.MinSupply),
		DefaultCooldown:      cfg.DefaultCooldown,
		FeeChangeDelay:       cfg.FeeChangeDelay,
		NAVLossToleranceBps:  cfg.NAVLossToleranceBps,
		WithdrawToleranceBps: cfg.WithdrawToleranceBps,
	}
}

// priceSink records fetched quotes through the price service.
func priceSink(svc services.PriceServicer) pricefeed.Sink {
	return pricefeed.SinkFunc(func(ctx context.Context, quotes []pricefeed.Quote) (int, error) {
		inputs := make([]services.PriceInput, len(quotes))
		for i, q := range quotes {
			inputs[i] = services.PriceInput{
				Asset:      q.Asset,
				Source:     q.Source,
				Value:      q.Value,
				Decimals:   pricefeed.Decimals,
				RecordedAt: q.ObservedAt,
			}
		}
		return svc.RecordPrices(ctx, inputs)
	})
}
