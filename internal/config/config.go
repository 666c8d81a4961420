package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/sasha-s/go-deadlock"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string `env:"PORT" envDefault:"8080"`
	Env  string `env:"ENV" envDefault:"development"`

	// Database
	DBDriver   string `env:"DB_DRIVER" envDefault:"postgres"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"vaultcore"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"vaultcore"`
	DBName     string `env:"DB_NAME" envDefault:"vaultcore"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	DBPath     string `env:"DB_PATH" envDefault:"vaultcore.db"`

	// JWT
	JWTSecret        string        `env:"JWT_SECRET" envDefault:"fallback-secret-key-for-dev-only"`
	JWTExpirationDur time.Duration `env:"JWT_EXPIRES_IN" envDefault:"24h"`

	// Platform governance
	Owner            string `env:"REGISTRY_OWNER" envDefault:"0x0000000000000000000000000000000000000001"`
	Treasury         string `env:"TREASURY_ADDRESS"`
	TreasuryShareBps uint32 `env:"TREASURY_SHARE_BPS" envDefault:"0"`

	// Accounting
	MinSupply            int64         `env:"MIN_SUPPLY" envDefault:"100000"`
	DefaultCooldown      time.Duration `env:"DEFAULT_COOLDOWN" envDefault:"24h"`
	FeeChangeDelay       time.Duration `env:"FEE_CHANGE_DELAY" envDefault:"672h"`
	NAVLossToleranceBps  uint32        `env:"NAV_LOSS_TOLERANCE_BPS" envDefault:"100"`
	WithdrawToleranceBps uint32        `env:"WITHDRAW_TOLERANCE_BPS" envDefault:"1"`
	CommitTimeout        time.Duration `env:"JOURNAL_COMMIT_TIMEOUT" envDefault:"10s"`

	// Prices
	PriceStaleAfter  time.Duration `env:"PRICE_STALE_AFTER" envDefault:"1h"`
	PriceFeedEvery   time.Duration `env:"PRICE_FEED_INTERVAL" envDefault:"5m"`
	CoinGeckoBaseURL string        `env:"COINGECKO_BASE_URL" envDefault:"https://api.coingecko.com/api/v3"`
	IngestAPIKey     string        `env:"PIPELINE_API_KEY"`
	APIURL           string        `env:"VAULTCORE_API_URL" envDefault:"http://localhost:8080"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	EmbeddedFeed     bool          `env:"EMBEDDED_PRICE_FEED" envDefault:"false"`

	// Deployment and tracing
	ManifestPath string `env:"DEPLOY_MANIFEST" envDefault:"deploy/sandbox.yaml"`
	OTELEndpoint string `env:"OTEL_ENDPOINT"`
}

var appConfig *Config

// ParseEnv parses environment variables into target using env struct tags.
func ParseEnv(target any) error {
	return env.Parse(target)
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{}
	if err := ParseEnv(config); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	appConfig = config
	return config, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if !common.IsHexAddress(c.Owner) {
		return fmt.Errorf("REGISTRY_OWNER is not an address: %q", c.Owner)
	}
	if c.Treasury != "" && !common.IsHexAddress(c.Treasury) {
		return fmt.Errorf("TREASURY_ADDRESS is not an address: %q", c.Treasury)
	}
	if c.TreasuryShareBps > 10_000 || c.NAVLossToleranceBps > 10_000 || c.WithdrawToleranceBps > 10_000 {
		return fmt.Errorf("basis point settings must be at most 10000")
	}
	if c.MinSupply < 0 {
		return fmt.Errorf("MIN_SUPPLY must not be negative")
	}
	lockTimeout := deadlock.Opts.DeadlockTimeout
	if c.CommitTimeout <= 0 || (lockTimeout > 0 && c.CommitTimeout >= lockTimeout) {
		return fmt.Errorf("JOURNAL_COMMIT_TIMEOUT must be positive and below %v, got %v",
			lockTimeout, c.CommitTimeout)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %v", c.RequestTimeout)
	}
	return nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// DSN returns the PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// MigrationURL returns the golang-migrate database URL.
func (c *Config) MigrationURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}
