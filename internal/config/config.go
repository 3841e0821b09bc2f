// Package config defines connector configuration. Config is loaded from a
// YAML file (default: configs/config.yaml) with sensitive fields
// overridable via HL_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level configuration recognized by the core (§6).
type Config struct {
	Name             string          `mapstructure:"name"`
	Testnet          bool            `mapstructure:"testnet"`
	EnableWebsocket  bool            `mapstructure:"enable_websocket"`
	Wallet           WalletConfig    `mapstructure:"wallet"`
	API              APIConfig       `mapstructure:"api"`
	RateLimit        RateLimitConfig `mapstructure:"rate_limit"`
	WebsocketOptions WebsocketConfig `mapstructure:"websocket"`
	Logging          LoggingConfig   `mapstructure:"logging"`
}

// WalletConfig holds the credentials used to sign trading actions.
type WalletConfig struct {
	// APIKey is the 0x-prefixed main-account address used as the "user"
	// field for account queries.
	APIKey string `mapstructure:"api_key"`
	// APISecret is the 0x-prefixed 32-byte private key for the API
	// wallet that signs actions. Absence means read-only mode.
	APISecret string `mapstructure:"api_secret"`
}

// APIConfig holds the REST and WebSocket endpoints for both networks.
// Config.BaseURL and Config.WSHost pick between them by Testnet.
type APIConfig struct {
	MainnetBaseURL string `mapstructure:"mainnet_base_url"`
	TestnetBaseURL string `mapstructure:"testnet_base_url"`
	MainnetWSHost  string `mapstructure:"mainnet_ws_host"`
	TestnetWSHost  string `mapstructure:"testnet_ws_host"`
}

// RateLimitConfig tunes the token bucket in front of outbound requests
// (§4.4 documents Hyperliquid's published limit of 20/sec; overriding
// this is for testing against a sandboxed server with a different cap).
type RateLimitConfig struct {
	Capacity float64 `mapstructure:"capacity"`
	Rate     float64 `mapstructure:"rate_per_second"`
}

// WebsocketConfig mirrors the options named in §4.9.
type WebsocketConfig struct {
	HandshakeTimeoutMS   int   `mapstructure:"handshake_timeout_ms"`
	PingIntervalMS       int   `mapstructure:"ping_interval_ms"`
	ReconnectIntervalMS  int   `mapstructure:"reconnect_interval_ms"`
	MaxReconnectAttempts int   `mapstructure:"max_reconnect_attempts"`
	MaxMessageBytes      int64 `mapstructure:"max_message_bytes"`
}

// LoggingConfig controls the slog handler built in cmd/hlconnector.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns the baseline configuration used when a field is
// absent from the YAML file; Load applies this before reading the file so
// partial configs still produce workable values.
func DefaultConfig() Config {
	return Config{
		Name:            "hyperliquid",
		EnableWebsocket: true,
		API: APIConfig{
			MainnetBaseURL: "https://api.hyperliquid.xyz",
			TestnetBaseURL: "https://api.hyperliquid-testnet.xyz",
			MainnetWSHost:  "api.hyperliquid.xyz",
			TestnetWSHost:  "api.hyperliquid-testnet.xyz",
		},
		RateLimit: RateLimitConfig{
			Capacity: 20,
			Rate:     20,
		},
		WebsocketOptions: WebsocketConfig{
			HandshakeTimeoutMS:   10_000,
			PingIntervalMS:       50_000,
			ReconnectIntervalMS:  1_000,
			MaxReconnectAttempts: 10,
			MaxMessageBytes:      32 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: HL_API_KEY, HL_API_SECRET.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("HL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("HL_API_KEY"); key != "" {
		cfg.Wallet.APIKey = key
	}
	if secret := os.Getenv("HL_API_SECRET"); secret != "" {
		cfg.Wallet.APISecret = secret
	}
	if os.Getenv("HL_TESTNET") == "true" || os.Getenv("HL_TESTNET") == "1" {
		cfg.Testnet = true
	}

	return &cfg, nil
}

// Validate checks invariants the core depends on. A missing api_secret is
// not an error here — it puts the connector in read-only mode (§6) — the
// failure surfaces later as ErrNoCredentials on the first signing call.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Wallet.APISecret != "" {
		key := strings.TrimPrefix(c.Wallet.APISecret, "0x")
		if len(key) != 64 {
			return fmt.Errorf("wallet.api_secret must be 32 bytes of hex (got %d hex chars)", len(key))
		}
	}
	if c.RateLimit.Capacity <= 0 {
		return fmt.Errorf("rate_limit.capacity must be > 0")
	}
	if c.RateLimit.Rate <= 0 {
		return fmt.Errorf("rate_limit.rate_per_second must be > 0")
	}
	return nil
}

// BaseURL returns the REST base URL selected by Testnet.
func (c *Config) BaseURL() string {
	if c.Testnet {
		return c.API.TestnetBaseURL
	}
	return c.API.MainnetBaseURL
}

// WSHost returns the WebSocket host selected by Testnet.
func (c *Config) WSHost() string {
	if c.Testnet {
		return c.API.TestnetWSHost
	}
	return c.API.MainnetWSHost
}

// AgentSource returns the EIP-712 phantom-agent source byte: "a" for
// mainnet, "b" for testnet (§4.3).
func (c *Config) AgentSource() string {
	if c.Testnet {
		return "b"
	}
	return "a"
}
