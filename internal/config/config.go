package config

import (
	"fmt"
	"time"

	"github.com/matrixise/nouns-dashboard/internal/scheduler"
)

// Config represents the application configuration
type Config struct {
	RPCUrl       string   `mapstructure:"rpc_url" validate:"omitempty,url"`
	RPCUrls      []string `mapstructure:"rpc_urls" validate:"required,min=1,dive,url"`
	RPCRateLimit float64  `mapstructure:"rpc_rate_limit" validate:"omitempty,gt=0"`

	Contracts ContractsConfig `mapstructure:"contracts"`
	Subgraph  SubgraphConfig  `mapstructure:"subgraph"`
	Activity  ActivityConfig  `mapstructure:"activity"`
	Search    SearchConfig    `mapstructure:"search"`

	Interval       string `mapstructure:"interval" validate:"omitempty,schedule"`
	Timezone       string `mapstructure:"timezone" validate:"omitempty,timezone"`
	RunImmediately *bool  `mapstructure:"run_immediately"`
	LogLevel       string `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	HTTPPort       int    `mapstructure:"http_port" validate:"omitempty,min=1024,max=65535"`

	DatabaseURL string `mapstructure:"database_url" validate:"omitempty,url"`
	RedisURL    string `mapstructure:"redis_url" validate:"omitempty,url"`
}

// ContractsConfig holds the on-chain addresses read by the treasury view
type ContractsConfig struct {
	Treasury   string `mapstructure:"treasury" validate:"required,eth_addr"`
	ForkEscrow string `mapstructure:"fork_escrow" validate:"required,eth_addr"`
	DAOProxy   string `mapstructure:"dao_proxy" validate:"required,eth_addr"`
	TokenBuyer string `mapstructure:"token_buyer" validate:"required,eth_addr"`
	Payer      string `mapstructure:"payer" validate:"required,eth_addr"`
	NounsToken string `mapstructure:"nouns_token" validate:"required,eth_addr"`
	USDC       string `mapstructure:"usdc" validate:"required,eth_addr"`
	WETH       string `mapstructure:"weth" validate:"required,eth_addr"`
	STETH      string `mapstructure:"steth" validate:"required,eth_addr"`
	WSTETH     string `mapstructure:"wsteth" validate:"required,eth_addr"`
	RETH       string `mapstructure:"reth" validate:"required,eth_addr"`
	PriceFeed  string `mapstructure:"price_feed" validate:"required,eth_addr"`
}

// SubgraphConfig configures the GraphQL subgraph reader
type SubgraphConfig struct {
	URL      string `mapstructure:"url" validate:"omitempty,url"`
	CacheTTL string `mapstructure:"cache_ttl" validate:"omitempty,duration"`
}

// ActivityConfig controls the auction proceeds / assets deployed section
type ActivityConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	WindowDays int  `mapstructure:"window_days" validate:"min=1,max=365"`
}

// SearchConfig configures the member directory
type SearchConfig struct {
	Debounce string `mapstructure:"debounce" validate:"omitempty,duration"`
}

// Normalize folds the single rpc_url into rpc_urls
func (c *Config) Normalize() error {
	if len(c.RPCUrls) == 0 && c.RPCUrl != "" {
		c.RPCUrls = []string{c.RPCUrl}
	}
	c.RPCUrl = ""

	if len(c.RPCUrls) == 0 {
		return fmt.Errorf("either rpc_url or rpc_urls must be set")
	}
	return nil
}

// GetTimezone returns the configured location, UTC when unset or invalid
func (c *Config) GetTimezone() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ShouldRunImmediately defaults to true
func (c *Config) ShouldRunImmediately() bool {
	if c.RunImmediately == nil {
		return true
	}
	return *c.RunImmediately
}

// IsCronExpression reports whether Interval is a cron expression
func (c *Config) IsCronExpression() bool {
	return scheduler.IsCronExpression(c.Interval)
}

// SubgraphCacheTTL returns the cache lifetime of subgraph responses. Zero
// disables caching.
func (c *Config) SubgraphCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Subgraph.CacheTTL)
	if err != nil {
		return 0
	}
	return d
}

// SearchDebounce returns the quiet period before a member search recomputes
func (c *Config) SearchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Search.Debounce)
	if err != nil {
		return 150 * time.Millisecond
	}
	return d
}
