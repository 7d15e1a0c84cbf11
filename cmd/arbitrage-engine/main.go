// Command arbitrage-engine runs the cross-chain arbitrage bot: two
// cooperative tick loops (trading at T_cycle, bridging at T_bridge) wired
// against a shared StateStore, per spec.md §2, §5, §6.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/xchainarb/internal/alerts"
	"github.com/ajitpratap0/xchainarb/internal/balance"
	"github.com/ajitpratap0/xchainarb/internal/bridge"
	"github.com/ajitpratap0/xchainarb/internal/config"
	"github.com/ajitpratap0/xchainarb/internal/coordinator"
	"github.com/ajitpratap0/xchainarb/internal/evaluator"
	"github.com/ajitpratap0/xchainarb/internal/metrics"
	"github.com/ajitpratap0/xchainarb/internal/rate"
	"github.com/ajitpratap0/xchainarb/internal/risk"
	"github.com/ajitpratap0/xchainarb/internal/scheduler"
	"github.com/ajitpratap0/xchainarb/internal/state"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (defaults to ./configs/config.yaml or ./config.yaml)")
	dataDir := flag.String("data-dir", "./data", "Directory for persisted state, trade logs, and bridge records")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	config.InitLogger(cfg.App.LogLevel, "console")
	log.Info().Str("app", cfg.App.Name).Str("version", cfg.App.Version).Str("environment", cfg.App.Environment).Msg("starting arbitrage-engine")

	configureAlerts(cfg)

	metrics.Version = cfg.App.Version
	var metricsServer *metrics.Server
	if cfg.Monitoring.EnableMetrics {
		metricsServer = metrics.NewServer(cfg.Monitoring.PrometheusPort, log.Logger)
		if err := metricsServer.Start(); err != nil {
			log.Error().Err(err).Msg("failed to start metrics server")
			metricsServer = nil
		}
	}

	store := state.NewStore(state.WithDir(*dataDir))

	specs := make([]state.TokenSpec, 0, len(cfg.Tokens))
	for _, tc := range cfg.Tokens {
		specs = append(specs, toTokenSpec(tc))
	}

	venueA, venueB, _, _ := buildVenueAdapters(specs)

	breakers := risk.NewCircuitBreakerManager()
	rateResolver := rate.NewResolver(venueA, nil, decimal.NewFromFloat(cfg.Trading.UUSD))
	gate := risk.NewGate()
	if cfg.Trading.StaleWindowSeconds > 0 {
		gate.StaleWindow = time.Duration(cfg.Trading.StaleWindowSeconds) * time.Second
	}

	eval := evaluator.New(venueA, venueB, rateResolver, gate)
	coord := coordinator.New(venueA, venueB, store, breakers, buildCoordinatorConfig(cfg))
	checker := balance.NewChecker(venueA, venueB, nil, decimal.NewFromFloat(cfg.Trading.UUSD))

	evalParams := buildEvaluatorParams(cfg)
	tradingLoop := &scheduler.TradingLoop{
		Evaluator:              eval,
		Coordinator:            coord,
		Store:                  store,
		Balance:                checker,
		Tokens:                 buildTokenRuntimes(specs, evalParams),
		Interval:               cfg.Trading.CycleInterval(),
		MaxDailyTrades:         cfg.Trading.MaxDailyTrades,
		MaxNotionalPerTradeUSD: decimal.Zero, // MAX_NOTIONAL_PER_TRADE is env-sourced; zero means "no config fallback"
		OwnerA:                 cfg.VenueA.WalletAddress,
		OwnerB:                 cfg.VenueB.WalletAddress,
	}

	bridgeController := bridge.New(bridge.NewMockProtocol(), store, breakers, buildBridgeConfig(cfg))
	bridgeLoop := &scheduler.BridgeLoop{
		Controller: bridgeController,
		Tokens:     specs,
		Interval:   cfg.Bridging.BridgeInterval(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go store.RunFlushLoop(ctx)

	errCh := make(chan error, 2)
	if cfg.AutoBridge.Enabled {
		go func() { errCh <- bridgeLoop.Start(ctx) }()
	}
	go func() { errCh <- tradingLoop.Start(ctx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("scheduler loop exited with error")
		}
	}

	cancel()
	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsServer.Shutdown(shutdownCtx)
		shutdownCancel()
	}
	log.Info().Msg("arbitrage-engine shutdown complete")
}

// configureAlerts wires spec.md §6's Monitoring alert surface: always a
// log alerter, plus a webhook alerter when one is configured and enabled.
func configureAlerts(cfg *config.Config) {
	alerters := []alerts.Alerter{alerts.NewLogAlerter()}
	if cfg.Monitoring.EnableAlerts {
		url := cfg.Monitoring.AlertWebhookURL
		if url == "" {
			url = cfg.Monitoring.WebhookURL
		}
		if url != "" {
			webhook, err := alerts.NewWebhookAlerter(url)
			if err != nil {
				log.Warn().Err(err).Msg("invalid alert webhook URL, skipping")
			} else {
				alerters = append(alerters, webhook)
			}
		}
	}
	alerts.SetDefaultManager(alerts.NewManager(alerters...))
}
