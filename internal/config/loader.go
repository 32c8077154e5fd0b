package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Mainnet deployments used when the config file leaves an address unset.
var defaultContracts = map[string]string{
	"contracts.treasury":    "0xb1a32FC9F9D8b2cf86C068Cae13108809547ef71",
	"contracts.fork_escrow": "0x44d97D22B3d37d837cE4b22773aAd9d1566055D9",
	"contracts.dao_proxy":   "0x6f3E6272A167e8AcCb32072d08E0957F9c79223d",
	"contracts.token_buyer": "0x4f2aCdc74f6941390d9b1804faBc3E780388cfe5",
	"contracts.payer":       "0xd97Bcd9f47cEe35c0a9ec1dc40C1269afc9E8E1D",
	"contracts.nouns_token": "0x9C8fF314C9Bc7F6e59A9d9225Fb22946427eDC03",
	"contracts.usdc":        "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
	"contracts.weth":        "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
	"contracts.steth":       "0xae7ab96520DE3A18E5e111B5EaAb095312D7fE84",
	"contracts.wsteth":      "0x7f39C581F595B53c5cb19bD0b3f8dA6c935E2Ca0",
	"contracts.reth":        "0xae78736Cd615f374D3085123A210448E74Fc6393",
	"contracts.price_feed":  "0x0C8791ED5D6C37E1FDe2C46e68Bc4A2d0D84D01E",
}

// ErrDatabaseURLRequired is returned when a command needs PostgreSQL and no
// URL is configured.
var ErrDatabaseURLRequired = errors.New("DATABASE_URL is required")

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}

	v.SetDefault("log_level", "info")
	v.SetDefault("interval", "")
	v.SetDefault("http_port", 8080)
	v.SetDefault("run_immediately", true)
	v.SetDefault("timezone", "UTC")
	v.SetDefault("rpc_rate_limit", 10)
	v.SetDefault("subgraph.url", "https://api.goldsky.com/api/public/project_cldf2o9pqagp43svvbk5u3kmo/subgraphs/nouns/prod/gn")
	v.SetDefault("subgraph.cache_ttl", "1m")
	v.SetDefault("activity.enabled", false)
	v.SetDefault("activity.window_days", 30)
	v.SetDefault("search.debounce", "150ms")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	for key, addr := range defaultContracts {
		v.SetDefault(key, addr)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Comma-separated RPC_URLS env var
	if rpcURLsEnv := v.GetString("rpc_urls"); strings.Contains(rpcURLsEnv, ",") {
		cfg.RPCUrls = splitList(rpcURLsEnv)
	}

	// single rpc_url becomes rpc_urls
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("config normalization failed: %w", err)
	}

	validate := NewValidator()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithDatabase loads config and requires a database URL
func LoadWithDatabase(configPath string) (*Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, ErrDatabaseURLRequired
	}
	return cfg, nil
}

// DatabaseURL reads only the database URL, from the same file and
// environment sources as Load, so migrations run without RPC endpoints.
func DatabaseURL(configPath string) (string, error) {
	v, err := newViper(configPath)
	if err != nil {
		return "", err
	}
	dsn := v.GetString("database_url")
	if dsn == "" {
		return "", ErrDatabaseURLRequired
	}
	return dsn, nil
}

// newViper reads the config file, if any, and binds the environment.
// NOUNS_DASHBOARD_ACTIVITY_WINDOW_DAYS -> activity.window_days
func newViper(configPath string) (*viper.Viper, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("NOUNS_DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("rpc_url", "NOUNS_DASHBOARD_RPC_URL", "RPC_URL")
	v.BindEnv("rpc_urls", "NOUNS_DASHBOARD_RPC_URLS", "RPC_URLS")
	v.BindEnv("database_url", "NOUNS_DASHBOARD_DATABASE_URL", "DATABASE_URL")
	v.BindEnv("redis_url", "NOUNS_DASHBOARD_REDIS_URL", "REDIS_URL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
