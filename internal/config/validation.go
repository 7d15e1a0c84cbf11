package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Configuration validation failed with %d error(s):\n\n", len(ve)))
	for i, err := range ve {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	sb.WriteString("\nPlease fix the above errors and try again.\n")
	return sb.String()
}

// Validate performs comprehensive configuration validation
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateApp()...)
	errors = append(errors, c.validateTrading()...)
	errors = append(errors, c.validateBridging()...)
	errors = append(errors, c.validateAutoBridge()...)
	errors = append(errors, c.validateTokens()...)

	if len(errors) > 0 {
		return errors
	}

	return nil
}

func (c *Config) validateApp() ValidationErrors {
	var errors ValidationErrors

	if c.App.Name == "" {
		errors = append(errors, ValidationError{
			Field:   "app.name",
			Message: "Application name is required",
		})
	}

	if c.App.Environment == "" {
		errors = append(errors, ValidationError{
			Field:   "app.environment",
			Message: "Environment is required (development, staging, or production)",
		})
	} else {
		validEnvs := []string{"development", "staging", "production"}
		valid := false
		for _, env := range validEnvs {
			if c.App.Environment == env {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, ValidationError{
				Field:   "app.environment",
				Message: fmt.Sprintf("Invalid environment '%s'. Must be one of: %v", c.App.Environment, validEnvs),
			})
		}
	}

	if c.App.LogLevel == "" {
		errors = append(errors, ValidationError{
			Field:   "app.log_level",
			Message: "Log level is required (debug, info, warn, error)",
		})
	}

	return errors
}

func (c *Config) validateTrading() ValidationErrors {
	var errors ValidationErrors

	if c.Trading.CycleSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "trading.cycle_seconds",
			Message: "Trade cycle interval must be at least 1 second",
		})
	}

	if c.Trading.MinEdgeBps <= 0 {
		errors = append(errors, ValidationError{
			Field:   "trading.min_edge_bps",
			Message: "min_edge_bps must be positive",
		})
	}

	if c.Trading.MaxPriceImpactBps <= 0 {
		errors = append(errors, ValidationError{
			Field:   "trading.max_price_impact_bps",
			Message: "max_price_impact_bps must be positive",
		})
	}

	switch c.Trading.ArbitrageDirection {
	case "forward", "reverse", "best":
	default:
		errors = append(errors, ValidationError{
			Field:   "trading.arbitrage_direction",
			Message: fmt.Sprintf("Invalid arbitrage_direction '%s'. Must be forward, reverse, or best", c.Trading.ArbitrageDirection),
		})
	}

	if c.Trading.DynamicSlippageEdgeRatio <= 0 {
		errors = append(errors, ValidationError{
			Field:   "trading.dynamic_slippage_edge_ratio",
			Message: "dynamic_slippage_edge_ratio must be positive",
		})
	}

	if c.Trading.DynamicSlippageMaxMultiplier < 1 {
		errors = append(errors, ValidationError{
			Field:   "trading.dynamic_slippage_max_multiplier",
			Message: "dynamic_slippage_max_multiplier must be at least 1",
		})
	}

	if (c.Trading.TradeWindowStart == "") != (c.Trading.TradeWindowEnd == "") {
		errors = append(errors, ValidationError{
			Field:   "trading.trade_window_start/end",
			Message: "trade_window_start and trade_window_end must both be set or both be empty",
		})
	}

	if c.Trading.UUSD <= 0 {
		errors = append(errors, ValidationError{
			Field:   "trading.u_usd",
			Message: "u_usd anchor fallback must be positive",
		})
	}

	return errors
}

func (c *Config) validateBridging() ValidationErrors {
	var errors ValidationErrors

	if c.Bridging.IntervalMinutes < 1 {
		errors = append(errors, ValidationError{
			Field:   "bridging.interval_minutes",
			Message: "Bridge cycle interval must be at least 1 minute",
		})
	}

	if c.Bridging.TradesPerBridge < 1 {
		errors = append(errors, ValidationError{
			Field:   "bridging.trades_per_bridge",
			Message: "trades_per_bridge must be at least 1",
		})
	}

	if c.Bridging.BridgeCostUSD < 0 {
		errors = append(errors, ValidationError{
			Field:   "bridging.bridge_cost_usd",
			Message: "bridge_cost_usd must be non-negative",
		})
	}

	if c.Bridging.MaxRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "bridging.max_retries",
			Message: "max_retries must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateAutoBridge() ValidationErrors {
	var errors ValidationErrors

	if !c.AutoBridge.Enabled {
		return errors
	}

	if c.AutoBridge.ImbalanceThresholdPercent < 50 || c.AutoBridge.ImbalanceThresholdPercent > 100 {
		errors = append(errors, ValidationError{
			Field:   "auto_bridge.imbalance_threshold_percent",
			Message: "imbalance_threshold_percent must be between 50 and 100",
		})
	}

	if c.AutoBridge.TargetSplitPercent < 0 || c.AutoBridge.TargetSplitPercent > 100 {
		errors = append(errors, ValidationError{
			Field:   "auto_bridge.target_split_percent",
			Message: "target_split_percent must be between 0 and 100",
		})
	}

	if c.AutoBridge.MaxBridgesPerDay < 1 {
		errors = append(errors, ValidationError{
			Field:   "auto_bridge.max_bridges_per_day",
			Message: "max_bridges_per_day must be at least 1",
		})
	}

	for _, sym := range c.AutoBridge.EnabledTokens {
		for _, skip := range c.AutoBridge.SkipTokens {
			if sym == skip {
				errors = append(errors, ValidationError{
					Field:   "auto_bridge.enabled_tokens/skip_tokens",
					Message: fmt.Sprintf("token %s appears in both enabled_tokens and skip_tokens", sym),
				})
			}
		}
	}

	return errors
}

func (c *Config) validateTokens() ValidationErrors {
	var errors ValidationErrors

	seen := make(map[string]bool)
	for _, tok := range c.Tokens {
		if tok.Symbol == "" {
			errors = append(errors, ValidationError{
				Field:   "tokens[].symbol",
				Message: "token symbol is required",
			})
			continue
		}
		if seen[tok.Symbol] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("tokens[%s]", tok.Symbol),
				Message: "duplicate token symbol in configuration",
			})
		}
		seen[tok.Symbol] = true

		if tok.Decimals < 0 {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("tokens[%s].decimals", tok.Symbol),
				Message: "decimals must be non-negative",
			})
		}

		if tok.TradeSize <= 0 {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("tokens[%s].trade_size", tok.Symbol),
				Message: "trade_size must be positive",
			})
		}
	}

	return errors
}

// ValidateAndLoad loads and validates configuration. configPath can be
// empty to use default config locations.
func ValidateAndLoad(configPath string) (*Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
