package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/radityaw/treasury-agent/internal/domain/entities"
)

// Config holds all configuration for the application
type Config struct {
	// Ethereum node configuration
	Ethereum EthereumConfig

	// Exchange router configuration
	Router RouterConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// API server configuration
	API APIConfig

	// Funding monitor configuration
	Monitor MonitorConfig

	// Default guardrail limits applied to wallets without explicit settings
	Guardrail GuardrailConfig

	// Logging configuration
	Log LogConfig
}

// EthereumConfig holds Ethereum node connection settings
type EthereumConfig struct {
	RPCURL         string        `envconfig:"ETH_RPC_URL" default:"http://localhost:8545"`
	ChainID        int64         `envconfig:"ETH_CHAIN_ID" default:"1"`
	RequestTimeout time.Duration `envconfig:"ETH_REQUEST_TIMEOUT" default:"30s"`
	MaxRetries     int           `envconfig:"ETH_MAX_RETRIES" default:"3"`
	RetryDelay     time.Duration `envconfig:"ETH_RETRY_DELAY" default:"1s"`

	// Hex-encoded signer key for the trading sub-account; read-only
	// deployments leave it empty
	PrivateKey string `envconfig:"ETH_PRIVATE_KEY" default:""`
}

// RouterConfig holds exchange router settings
type RouterConfig struct {
	Address      string        `envconfig:"ROUTER_ADDRESS" default:"0x7a250d5630b4cf539739df2c5dacb4c659f2488d"`
	PoolCacheTTL time.Duration `envconfig:"ROUTER_POOL_CACHE_TTL" default:"5m"`
	SlippageBps  int64         `envconfig:"ROUTER_SLIPPAGE_BPS" default:"50"`

	// Hub tokens tried in order when no direct pool exists.
	// The primary hub stablecoin comes before the wrapped gas token.
	HubSymbols []string `envconfig:"ROUTER_HUB_SYMBOLS" default:"USDC,WETH"`

	// Monitored tokens as SYMBOL:address:decimals[:convertible] specs
	Tokens []string `envconfig:"ROUTER_TOKENS" default:"USDC:0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48:6,USDT:0xdac17f958d2ee523a2206206994597c13d831ec7:6:convertible,DAI:0x6b175474e89094c44da98b954eedeac495271d0f:18:convertible,WETH:0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2:18"`

	// Symbol of the agent's primary operating token; convertible deposits
	// are swapped into it automatically.
	PrimarySymbol string `envconfig:"ROUTER_PRIMARY_SYMBOL" default:"USDC"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"treasury"`
	Password        string        `envconfig:"DB_PASSWORD" default:"treasury"`
	Name            string        `envconfig:"DB_NAME" default:"treasury_agent"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// APIConfig holds API server settings
type APIConfig struct {
	Host            string        `envconfig:"API_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"API_PORT" default:"8081"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    int           `envconfig:"API_RATE_LIMIT_RPS" default:"100"`
	CacheTTL        time.Duration `envconfig:"API_CACHE_TTL" default:"30s"`
}

// MonitorConfig holds funding monitor settings
type MonitorConfig struct {
	MetricsPort  int           `envconfig:"MONITOR_METRICS_PORT" default:"8080"`
	PollInterval time.Duration `envconfig:"MONITOR_POLL_INTERVAL" default:"30s"`
	WorkerCount  int           `envconfig:"MONITOR_WORKER_COUNT" default:"4"`

	// Wallets to monitor (comma-separated addresses)
	Wallets []string `envconfig:"MONITOR_WALLETS" default:""`
}

// GuardrailConfig holds default per-wallet trading limits
type GuardrailConfig struct {
	MinAprThreshold   float64 `envconfig:"GUARDRAIL_MIN_APR" default:"5"`
	MaxSingleVaultPct float64 `envconfig:"GUARDRAIL_MAX_SINGLE_VAULT_PCT" default:"50"`
	MinHoldPeriodDays float64 `envconfig:"GUARDRAIL_MIN_HOLD_DAYS" default:"7"`
	MaxVaultCount     int     `envconfig:"GUARDRAIL_MAX_VAULT_COUNT" default:"5"`
	MaxDailyTrades    int     `envconfig:"GUARDRAIL_MAX_DAILY_TRADES" default:"20"`
	MaxTradeSizeUSD   float64 `envconfig:"GUARDRAIL_MAX_TRADE_SIZE_USD" default:"10000"`
}

// Limits converts the configured defaults into a guardrail entity
func (c *GuardrailConfig) Limits() entities.GuardrailConfig {
	return entities.GuardrailConfig{
		MinAprThreshold:   c.MinAprThreshold,
		MaxSingleVaultPct: c.MaxSingleVaultPct,
		MinHoldPeriodDays: c.MinHoldPeriodDays,
		MaxVaultCount:     c.MaxVaultCount,
		MaxDailyTrades:    c.MaxDailyTrades,
		MaxTradeSizeUSD:   c.MaxTradeSizeUSD,
	}
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseTokens parses the configured token specs into a token registry.
// Each spec has the form SYMBOL:address:decimals with an optional
// trailing ":convertible" marker.
func (c *RouterConfig) ParseTokens() (*entities.TokenRegistry, error) {
	tokens := make([]entities.Token, 0, len(c.Tokens))
	for _, spec := range c.Tokens {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}

		parts := strings.Split(spec, ":")
		if len(parts) < 3 || len(parts) > 4 {
			return nil, fmt.Errorf("invalid token spec %q", spec)
		}

		decimals, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("invalid decimals in token spec %q: %w", spec, err)
		}
		if decimals < 0 || decimals > 18 {
			return nil, fmt.Errorf("decimals out of range in token spec %q", spec)
		}

		tokens = append(tokens, entities.Token{
			Symbol:      strings.ToUpper(parts[0]),
			Address:     strings.ToLower(parts[1]),
			Decimals:    decimals,
			Convertible: len(parts) == 4 && parts[3] == "convertible",
		})
	}

	if len(tokens) == 0 {
		return nil, fmt.Errorf("no tokens configured")
	}

	return entities.NewTokenRegistry(tokens), nil
}
