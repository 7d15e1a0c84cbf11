package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Trading    TradingConfig    `mapstructure:"trading"`
	Bridging   BridgingConfig   `mapstructure:"bridging"`
	AutoBridge AutoBridgeConfig `mapstructure:"auto_bridge"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	VenueA     VenueAConfig     `mapstructure:"venue_a"`
	VenueB     VenueBConfig     `mapstructure:"venue_b"`
	Tokens     []TokenConfig    `mapstructure:"tokens"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"` // development, staging, production
	LogLevel    string `mapstructure:"log_level"`
}

// TradingConfig contains the trading cycle and risk-gate thresholds
// (spec.md §6, "Trading").
type TradingConfig struct {
	CycleSeconds                 int     `mapstructure:"cycle_seconds"` // T_cycle, default 15
	MinEdgeBps                   float64 `mapstructure:"min_edge_bps"`
	ReverseMinEdgeBps            float64 `mapstructure:"reverse_min_edge_bps"` // 0 means "use MinEdgeBps"
	MaxSlippageBps               float64 `mapstructure:"max_slippage_bps"`
	MaxPriceImpactBps            float64 `mapstructure:"max_price_impact_bps"`
	RiskBufferBps                float64 `mapstructure:"risk_buffer_bps"`
	CooldownMinutes              int     `mapstructure:"cooldown_minutes"`
	MaxDailyTrades               int     `mapstructure:"max_daily_trades"`
	EnableReverse                bool    `mapstructure:"enable_reverse"`
	ArbitrageDirection           string  `mapstructure:"arbitrage_direction"` // forward, reverse, best
	DynamicSlippageMaxMultiplier  float64 `mapstructure:"dynamic_slippage_max_multiplier"`
	DynamicSlippageEdgeRatio      float64 `mapstructure:"dynamic_slippage_edge_ratio"`
	StaleWindowSeconds            int     `mapstructure:"stale_window_seconds"`
	BalanceCheckCooldownSeconds   int     `mapstructure:"balance_check_cooldown_seconds"`
	TradeWindowStart              string  `mapstructure:"trade_window_start"` // UTC HH:MM
	TradeWindowEnd                string  `mapstructure:"trade_window_end"`
	UUSD                          float64 `mapstructure:"u_usd"` // accounting-unit USD anchor fallback
}

// BridgingConfig contains bridge-execution settings (spec.md §6, "Bridging").
type BridgingConfig struct {
	IntervalMinutes   int     `mapstructure:"interval_minutes"` // T_bridge, default 5
	ThresholdUSD      float64 `mapstructure:"threshold_usd"`
	MaxRetries        int     `mapstructure:"max_retries"`
	RetryDelayMinutes int     `mapstructure:"retry_delay_minutes"`
	TradesPerBridge   int     `mapstructure:"trades_per_bridge"`
	BridgeCostUSD     float64 `mapstructure:"bridge_cost_usd"`
}

// AutoBridgeConfig contains the automatic-rebalancing thresholds
// (spec.md §6, "Auto-bridging").
type AutoBridgeConfig struct {
	Enabled                   bool     `mapstructure:"enabled"`
	ImbalanceThresholdPercent float64  `mapstructure:"imbalance_threshold_percent"` // 50..100
	TargetSplitPercent        float64  `mapstructure:"target_split_percent"`        // 0..100
	MinRebalanceAmount        float64  `mapstructure:"min_rebalance_amount"`
	CheckIntervalMinutes      int      `mapstructure:"check_interval_minutes"`
	CooldownMinutes           int      `mapstructure:"cooldown_minutes"`
	MaxBridgesPerDay          int      `mapstructure:"max_bridges_per_day"`
	EnabledTokens             []string `mapstructure:"enabled_tokens"`
	SkipTokens                []string `mapstructure:"skip_tokens"`
}

// MonitoringConfig contains monitoring settings (spec.md §6, "Monitoring").
type MonitoringConfig struct {
	PrometheusPort       int     `mapstructure:"prometheus_port"`
	EnableMetrics        bool    `mapstructure:"enable_metrics"`
	WebhookURL           string  `mapstructure:"webhook_url"`
	EnableAlerts         bool    `mapstructure:"enable_alerts"`
	AlertWebhookURL      string  `mapstructure:"alert_webhook_url"`
	InventoryFloorUSD    float64 `mapstructure:"inventory_floor_usd"`
	BridgeTimeoutMinutes int     `mapstructure:"bridge_timeout_minutes"`
}

// VenueAConfig contains venue A (AMM-style chain) connection settings.
type VenueAConfig struct {
	RPCEndpoint        string  `mapstructure:"rpc_endpoint"`
	WalletAddress      string  `mapstructure:"wallet_address"`
	MinActiveLiquidity float64 `mapstructure:"min_active_liquidity"`
}

// VenueBConfig contains venue B (router-aggregator chain) connection settings.
type VenueBConfig struct {
	RouterEndpoint string `mapstructure:"router_endpoint"`
	WalletAddress  string `mapstructure:"wallet_address"`
}

// TokenConfig is the on-disk representation of a TokenSpec (spec.md §3),
// unmarshaled into internal/state.TokenSpec at startup.
type TokenConfig struct {
	Symbol           string  `mapstructure:"symbol"`
	VenueACollection string  `mapstructure:"venue_a_collection"`
	VenueACategory   string  `mapstructure:"venue_a_category"`
	VenueAType       string  `mapstructure:"venue_a_type"`
	VenueAAdditional string  `mapstructure:"venue_a_additional_key"`
	VenueBMint       string  `mapstructure:"venue_b_mint"`
	Decimals         int32   `mapstructure:"decimals"`
	TradeSize        float64 `mapstructure:"trade_size"`
	Enabled          bool    `mapstructure:"enabled"`
	QuoteViaA        string  `mapstructure:"quote_via_a"`
	QuoteViaB        string  `mapstructure:"quote_via_b"`
	InventoryTarget  float64 `mapstructure:"inventory_target"`
	HasTarget        bool    `mapstructure:"has_inventory_target"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("XCHAINARB")

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	// Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration using comprehensive validation
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "xchainarb")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Trading defaults (spec.md §6 "Trading")
	v.SetDefault("trading.cycle_seconds", 15)
	v.SetDefault("trading.min_edge_bps", 30)
	v.SetDefault("trading.reverse_min_edge_bps", 0)
	v.SetDefault("trading.max_slippage_bps", 50)
	v.SetDefault("trading.max_price_impact_bps", 50)
	v.SetDefault("trading.risk_buffer_bps", 100)
	v.SetDefault("trading.cooldown_minutes", 5)
	v.SetDefault("trading.max_daily_trades", 0) // 0 = unlimited
	v.SetDefault("trading.enable_reverse", true)
	v.SetDefault("trading.arbitrage_direction", "best")
	v.SetDefault("trading.dynamic_slippage_max_multiplier", 2.0)
	v.SetDefault("trading.dynamic_slippage_edge_ratio", 0.75)
	v.SetDefault("trading.stale_window_seconds", 30)
	v.SetDefault("trading.balance_check_cooldown_seconds", 60)
	v.SetDefault("trading.trade_window_start", "")
	v.SetDefault("trading.trade_window_end", "")
	v.SetDefault("trading.u_usd", 0.01)

	// Bridging defaults (spec.md §6 "Bridging")
	v.SetDefault("bridging.interval_minutes", 5)
	v.SetDefault("bridging.threshold_usd", 50.0)
	v.SetDefault("bridging.max_retries", 3)
	v.SetDefault("bridging.retry_delay_minutes", 1)
	v.SetDefault("bridging.trades_per_bridge", 100)
	v.SetDefault("bridging.bridge_cost_usd", 1.25)

	// Auto-bridge defaults (spec.md §6 "Auto-bridging")
	v.SetDefault("auto_bridge.enabled", true)
	v.SetDefault("auto_bridge.imbalance_threshold_percent", 80.0)
	v.SetDefault("auto_bridge.target_split_percent", 50.0)
	v.SetDefault("auto_bridge.min_rebalance_amount", 100.0)
	v.SetDefault("auto_bridge.check_interval_minutes", 5)
	v.SetDefault("auto_bridge.cooldown_minutes", 30)
	v.SetDefault("auto_bridge.max_bridges_per_day", 10)

	// Monitoring defaults
	v.SetDefault("monitoring.prometheus_port", 9100)
	v.SetDefault("monitoring.enable_metrics", true)
	v.SetDefault("monitoring.enable_alerts", true)
	v.SetDefault("monitoring.inventory_floor_usd", 0.0)
	v.SetDefault("monitoring.bridge_timeout_minutes", 30)

	// Venue defaults
	v.SetDefault("venue_a.min_active_liquidity", 1000.0)
}

// Note: Comprehensive validation is now in validation.go
// The Config.Validate() method is called during Load()

// CycleInterval returns T_cycle as a time.Duration.
func (c *TradingConfig) CycleInterval() time.Duration {
	return time.Duration(c.CycleSeconds) * time.Second
}

// StaleWindow returns the quote-freshness window as a time.Duration.
func (c *TradingConfig) StaleWindow() time.Duration {
	return time.Duration(c.StaleWindowSeconds) * time.Second
}

// BridgeInterval returns T_bridge as a time.Duration.
func (c *BridgingConfig) BridgeInterval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// EffectiveReverseMinEdgeBps returns ReverseMinEdgeBps, falling back to
// MinEdgeBps when unset (spec.md §4.5).
func (c *TradingConfig) EffectiveReverseMinEdgeBps() float64 {
	if c.ReverseMinEdgeBps == 0 {
		return c.MinEdgeBps
	}
	return c.ReverseMinEdgeBps
}
