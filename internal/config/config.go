// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	Ethereum     EthereumConfig     `mapstructure:"ethereum"`
	Exchange     ExchangeConfig     `mapstructure:"exchange"`
	Tokens       []TokenConfig      `mapstructure:"tokens"`
	Ticker       TickerConfig       `mapstructure:"ticker"`
	Liquidity    LiquidityConfig    `mapstructure:"liquidity"`
	Fee          FeeConfig          `mapstructure:"fee"`
	Orders       OrdersConfig       `mapstructure:"orders"`
	RequestLimit RequestLimitConfig `mapstructure:"request_limit"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// HTTPConfig holds the REST server settings.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Gzip            bool          `mapstructure:"gzip"`
}

// EthereumConfig holds Ethereum node configuration.
type EthereumConfig struct {
	HTTPURL     string        `mapstructure:"http_url"`
	ChainID     uint64        `mapstructure:"chain_id"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// ExchangeConfig identifies the relayer on the exchange protocol.
type ExchangeConfig struct {
	ContractAddress   string        `mapstructure:"contract_address"`
	ProxyAddress      string        `mapstructure:"proxy_address"`
	PrivateKey        string        `mapstructure:"private_key"`
	BalanceCacheTTL   time.Duration `mapstructure:"balance_cache_ttl"`
	AllowanceCheckTTL time.Duration `mapstructure:"allowance_check_ttl"`
}

// ContractAddressHex returns the exchange contract address.
func (c *ExchangeConfig) ContractAddressHex() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

// ProxyAddressHex returns the spender whose allowance is checked.
func (c *ExchangeConfig) ProxyAddressHex() common.Address {
	return common.HexToAddress(c.ProxyAddress)
}

// TokenConfig describes one tradable token.
type TokenConfig struct {
	Symbol   string `mapstructure:"symbol"`
	Address  string `mapstructure:"address"`
	Decimals uint8  `mapstructure:"decimals"`
}

// TickerConfig holds price feed settings.
type TickerConfig struct {
	TTL             time.Duration       `mapstructure:"ttl"`
	RefreshInterval time.Duration       `mapstructure:"refresh_interval"`
	Cache           TickerCacheConfig   `mapstructure:"cache"`
	Fixed           FixedTickerConfig   `mapstructure:"fixed"`
	Relayer         RelayerFeedConfig   `mapstructure:"relayer"`
	Binance         BinanceTickerConfig `mapstructure:"binance"`
	Uniswap         UniswapTickerConfig `mapstructure:"uniswap"`
}

// TickerCacheConfig selects the ticker cache backend.
type TickerCacheConfig struct {
	Driver          string        `mapstructure:"driver"` // memory | redis
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// FixedPrice is one configured quote: units of To per unit of From.
type FixedPrice struct {
	From  string `mapstructure:"from"`
	To    string `mapstructure:"to"`
	Price string `mapstructure:"price"`
}

// FixedTickerConfig holds static quotes.
type FixedTickerConfig struct {
	Enabled bool         `mapstructure:"enabled"`
	Weight  string       `mapstructure:"weight"`
	Prices  []FixedPrice `mapstructure:"prices"`
}

// RelayerFeedConfig points at another standard relayer API used as a feed.
type RelayerFeedConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Weight    string        `mapstructure:"weight"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second
	Burst     int           `mapstructure:"burst"`
}

// BinanceTickerConfig holds the Binance book ticker feed settings.
type BinanceTickerConfig struct {
	Enabled      bool              `mapstructure:"enabled"`
	Weight       string            `mapstructure:"weight"`
	WebSocketURL string            `mapstructure:"websocket_url"` // wss://stream.binance.com:9443 or wss://stream.binance.us:9443 for US
	RESTURL      string            `mapstructure:"rest_url"`
	Symbols      []string          `mapstructure:"symbols"`
	Aliases      map[string]string `mapstructure:"aliases"` // token symbol -> exchange asset, e.g. WETH: ETH
	StaleTimeout time.Duration     `mapstructure:"stale_timeout"`
}

// UniswapTickerConfig prices pairs from Uniswap V3 pools through QuoterV2.
type UniswapTickerConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Weight        string `mapstructure:"weight"`
	QuoterAddress string `mapstructure:"quoter_address"`
	FeeTiers      []int  `mapstructure:"fee_tiers"`
}

// QuoterAddressHex returns the QuoterV2 contract address.
func (c *UniswapTickerConfig) QuoterAddressHex() common.Address {
	return common.HexToAddress(c.QuoterAddress)
}

// LiquidityConfig sizes the envelope the relayer commits per token.
type LiquidityConfig struct {
	Percentage    string `mapstructure:"percentage"`
	MinimumAmount string `mapstructure:"minimum_amount"` // display units
	Precision     int    `mapstructure:"precision"`
}

// PercentageDecimal returns the share of holdings offered.
func (c *LiquidityConfig) PercentageDecimal() decimal.Decimal {
	return decimal.RequireFromString(c.Percentage)
}

// MinimumAmountDecimal returns the minimum tradable amount in display units.
func (c *LiquidityConfig) MinimumAmountDecimal() decimal.Decimal {
	return decimal.RequireFromString(c.MinimumAmount)
}

// FeeConfig holds the fee policy.
type FeeConfig struct {
	Payer       string `mapstructure:"payer"` // maker | taker
	Rate        string `mapstructure:"rate"`
	TokenSymbol string `mapstructure:"token_symbol"`
	Recipient   string `mapstructure:"recipient"`
}

// RateDecimal returns the fee rate.
func (c *FeeConfig) RateDecimal() decimal.Decimal {
	return decimal.RequireFromString(c.Rate)
}

// RecipientHex returns the fee recipient address.
func (c *FeeConfig) RecipientHex() common.Address {
	return common.HexToAddress(c.Recipient)
}

// OrdersConfig holds order synthesis settings.
type OrdersConfig struct {
	Expiration  time.Duration `mapstructure:"expiration"`
	Concurrency int           `mapstructure:"concurrency"`
}

// RequestLimitConfig holds the per-client request limit.
type RequestLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Driver   string        `mapstructure:"driver"` // memory | redis
	Window   time.Duration `mapstructure:"window"`
	MaxCalls int           `mapstructure:"max_calls"`
}

// RedisConfig holds the shared Redis connection.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	ServiceName   string  `mapstructure:"service_name"`
	TraceExporter string  `mapstructure:"trace_exporter"` // zipkin | otlp-grpc | otlp-http | stdout
	Endpoint      string  `mapstructure:"endpoint"`
	OTLPMetrics   bool    `mapstructure:"otlp_metrics"`
	SampleRatio   float64 `mapstructure:"sample_ratio"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("RELAYER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	_ = v.BindEnv("app.environment", "RELAYER_ENVIRONMENT", "ENVIRONMENT")
	_ = v.BindEnv("app.log_level", "RELAYER_LOG_LEVEL", "LOG_LEVEL")

	// HTTP
	_ = v.BindEnv("http.addr", "RELAYER_HTTP_ADDR", "HTTP_ADDR")

	// Ethereum
	_ = v.BindEnv("ethereum.http_url", "RELAYER_ETH_HTTP_URL", "ETH_HTTP_URL")
	_ = v.BindEnv("ethereum.chain_id", "RELAYER_ETH_CHAIN_ID", "ETH_CHAIN_ID")

	// Exchange
	_ = v.BindEnv("exchange.private_key", "RELAYER_PRIVATE_KEY", "PRIVATE_KEY")
	_ = v.BindEnv("exchange.contract_address", "RELAYER_EXCHANGE_ADDRESS")

	// Redis
	_ = v.BindEnv("redis.addr", "RELAYER_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "RELAYER_REDIS_PASSWORD", "REDIS_PASSWORD")

	// Telemetry
	_ = v.BindEnv("telemetry.enabled", "RELAYER_OTEL_ENABLED", "OTEL_ENABLED")
	_ = v.BindEnv("telemetry.service_name", "RELAYER_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	_ = v.BindEnv("telemetry.endpoint", "RELAYER_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "reserve-relayer")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// HTTP defaults
	v.SetDefault("http.addr", ":3000")
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("http.shutdown_timeout", "15s")
	v.SetDefault("http.gzip", true)

	// Ethereum defaults
	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.call_timeout", "10s")

	// Exchange defaults (0x v1 mainnet)
	v.SetDefault("exchange.contract_address", "0x12459c951127e0c374ff9105dda097662a027093")
	v.SetDefault("exchange.proxy_address", "0x8da0d80f5007ef1e431dd2127178d224e32c2ef4")
	v.SetDefault("exchange.balance_cache_ttl", "15s")
	v.SetDefault("exchange.allowance_check_ttl", "1m")

	// Ticker defaults
	v.SetDefault("ticker.ttl", "5m")
	v.SetDefault("ticker.refresh_interval", "5m")
	v.SetDefault("ticker.cache.driver", "memory")
	v.SetDefault("ticker.cache.cleanup_interval", "1m")
	v.SetDefault("ticker.fixed.enabled", true)
	v.SetDefault("ticker.fixed.weight", "1")
	v.SetDefault("ticker.relayer.enabled", false)
	v.SetDefault("ticker.relayer.weight", "1")
	v.SetDefault("ticker.relayer.timeout", "5s")
	v.SetDefault("ticker.relayer.rate_limit", 5)
	v.SetDefault("ticker.relayer.burst", 5)
	v.SetDefault("ticker.binance.enabled", false)
	v.SetDefault("ticker.binance.weight", "1")
	v.SetDefault("ticker.binance.websocket_url", "wss://stream.binance.com:9443")
	v.SetDefault("ticker.binance.rest_url", "https://api.binance.com")
	v.SetDefault("ticker.binance.stale_timeout", "10s")
	v.SetDefault("ticker.binance.aliases", map[string]string{"weth": "ETH"})
	v.SetDefault("ticker.uniswap.enabled", false)
	v.SetDefault("ticker.uniswap.weight", "1")
	v.SetDefault("ticker.uniswap.quoter_address", "0x61fFE014bA17989E743c5F6cB21bF9697530B21e")
	v.SetDefault("ticker.uniswap.fee_tiers", []int{500, 3000, 10000})

	// Liquidity defaults
	v.SetDefault("liquidity.percentage", "0.02")
	v.SetDefault("liquidity.minimum_amount", "0")
	v.SetDefault("liquidity.precision", 6)

	// Fee defaults
	v.SetDefault("fee.payer", "taker")
	v.SetDefault("fee.rate", "0")
	v.SetDefault("fee.token_symbol", "ZRX")
	v.SetDefault("fee.recipient", "0x0000000000000000000000000000000000000000")

	// Orders defaults
	v.SetDefault("orders.expiration", "5m")
	v.SetDefault("orders.concurrency", 8)

	// Request limit defaults
	v.SetDefault("request_limit.enabled", true)
	v.SetDefault("request_limit.driver", "memory")
	v.SetDefault("request_limit.window", "1h")
	v.SetDefault("request_limit.max_calls", 1000)

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.key_prefix", "relayer:")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "reserve-relayer")
	v.SetDefault("telemetry.trace_exporter", "zipkin")
	v.SetDefault("telemetry.endpoint", "http://localhost:9411/api/v2/spans")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}
	if !common.IsHexAddress(c.Exchange.ContractAddress) {
		return fmt.Errorf("invalid exchange.contract_address: %s", c.Exchange.ContractAddress)
	}
	if !common.IsHexAddress(c.Exchange.ProxyAddress) {
		return fmt.Errorf("invalid exchange.proxy_address: %s", c.Exchange.ProxyAddress)
	}
	if _, err := crypto.HexToECDSA(strings.TrimPrefix(c.Exchange.PrivateKey, "0x")); err != nil {
		return fmt.Errorf("invalid exchange.private_key: %w", err)
	}

	if len(c.Tokens) == 0 {
		return fmt.Errorf("tokens cannot be empty")
	}
	for i, t := range c.Tokens {
		if t.Symbol == "" {
			return fmt.Errorf("tokens[%d].symbol is required", i)
		}
		if !common.IsHexAddress(t.Address) {
			return fmt.Errorf("invalid tokens[%d].address: %s", i, t.Address)
		}
	}

	for _, d := range []struct {
		key, value string
	}{
		{"liquidity.percentage", c.Liquidity.Percentage},
		{"liquidity.minimum_amount", c.Liquidity.MinimumAmount},
		{"fee.rate", c.Fee.Rate},
		{"ticker.fixed.weight", c.Ticker.Fixed.Weight},
		{"ticker.relayer.weight", c.Ticker.Relayer.Weight},
		{"ticker.binance.weight", c.Ticker.Binance.Weight},
		{"ticker.uniswap.weight", c.Ticker.Uniswap.Weight},
	} {
		v, err := decimal.NewFromString(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		if v.IsNegative() {
			return fmt.Errorf("%s cannot be negative", d.key)
		}
	}
	for i, p := range c.Ticker.Fixed.Prices {
		v, err := decimal.NewFromString(p.Price)
		if err != nil || !v.IsPositive() {
			return fmt.Errorf("ticker.fixed.prices[%d] must be a positive decimal", i)
		}
	}

	if c.Liquidity.Precision < 0 {
		return fmt.Errorf("liquidity.precision cannot be negative")
	}
	if c.Fee.Payer != "maker" && c.Fee.Payer != "taker" {
		return fmt.Errorf("fee.payer must be maker or taker, got %q", c.Fee.Payer)
	}
	if !common.IsHexAddress(c.Fee.Recipient) {
		return fmt.Errorf("invalid fee.recipient: %s", c.Fee.Recipient)
	}
	if c.Ticker.Cache.Driver != "memory" && c.Ticker.Cache.Driver != "redis" {
		return fmt.Errorf("ticker.cache.driver must be memory or redis, got %q", c.Ticker.Cache.Driver)
	}
	if c.RequestLimit.Driver != "memory" && c.RequestLimit.Driver != "redis" {
		return fmt.Errorf("request_limit.driver must be memory or redis, got %q", c.RequestLimit.Driver)
	}
	if c.RequestLimit.Enabled && c.RequestLimit.MaxCalls < 1 {
		return fmt.Errorf("request_limit.max_calls must be >= 1")
	}
	if c.Ticker.Relayer.Enabled && c.Ticker.Relayer.BaseURL == "" {
		return fmt.Errorf("ticker.relayer.base_url is required when the relayer feed is enabled")
	}
	if c.Ticker.Uniswap.Enabled && !common.IsHexAddress(c.Ticker.Uniswap.QuoterAddress) {
		return fmt.Errorf("invalid ticker.uniswap.quoter_address: %s", c.Ticker.Uniswap.QuoterAddress)
	}
	if c.Ticker.Binance.Enabled && len(c.Ticker.Binance.Symbols) == 0 {
		return fmt.Errorf("ticker.binance.symbols is required when the binance feed is enabled")
	}
	return nil
}

// UsesRedis reports whether any component needs the Redis client.
func (c *Config) UsesRedis() bool {
	return c.Ticker.Cache.Driver == "redis" || (c.RequestLimit.Enabled && c.RequestLimit.Driver == "redis")
}
