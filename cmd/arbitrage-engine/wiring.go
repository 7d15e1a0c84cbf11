package main

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/xchainarb/internal/bridge"
	"github.com/ajitpratap0/xchainarb/internal/config"
	"github.com/ajitpratap0/xchainarb/internal/coordinator"
	"github.com/ajitpratap0/xchainarb/internal/edge"
	"github.com/ajitpratap0/xchainarb/internal/evaluator"
	"github.com/ajitpratap0/xchainarb/internal/scheduler"
	"github.com/ajitpratap0/xchainarb/internal/state"
	"github.com/ajitpratap0/xchainarb/internal/venue/venuea"
	"github.com/ajitpratap0/xchainarb/internal/venue/venueb"
)

// toTokenSpec converts a config.TokenConfig (the on-disk shape) into the
// immutable runtime state.TokenSpec (spec §3).
func toTokenSpec(tc config.TokenConfig) state.TokenSpec {
	spec := state.TokenSpec{
		Symbol: tc.Symbol,
		VenueAID: state.VenueATokenID{
			Collection:    tc.VenueACollection,
			Category:      tc.VenueACategory,
			Type:          tc.VenueAType,
			AdditionalKey: tc.VenueAAdditional,
		},
		VenueBID:  tc.VenueBMint,
		Decimals:  tc.Decimals,
		TradeSize: decimal.NewFromFloat(tc.TradeSize),
		Enabled:   tc.Enabled,
		QuoteViaA: tc.QuoteViaA,
		QuoteViaB: tc.QuoteViaB,
	}
	if tc.HasTarget {
		target := decimal.NewFromFloat(tc.InventoryTarget)
		spec.InventoryTarget = &target
	}
	return spec
}

// buildVenueAdapters wires venue A and venue B against in-memory mock
// transports. No production Transport implementation exists in this
// codebase (spec §1 puts wire protocols — RPC, instruction encoding,
// signing — out of core scope), so arbitrage-engine always runs in
// paper-trading mode against MockPool/MockRouter; swapping in a real
// Transport is the integration point a production deployment fills in.
func buildVenueAdapters(tokens []state.TokenSpec) (*venuea.Adapter, *venueb.Adapter, *venuea.MockPool, *venueb.MockRouter) {
	pool := venuea.NewMockPool()
	router := venueb.NewMockRouter()

	dirA := venuea.NewStaticDirectory()
	dirB := venueb.NewStaticDirectory()

	for _, t := range tokens {
		counterID := state.VenueATokenID{Collection: t.QuoteViaA}
		dirA.Register(t, counterID)
		dirB.Register(t.Symbol, t.VenueBID, t.QuoteViaB, "")

		// Seed both mock venues at a deep, roughly-balanced 1:1 reserve so
		// the configured trade size never exhausts liquidity. There is no
		// production reserve source (spec §1 keeps the wire client out of
		// scope), so this is a paper-trading default, not a modeled market.
		depth := t.TradeSize.Mul(decimal.NewFromInt(10000))
		if depth.IsZero() {
			depth = decimal.NewFromInt(1_000_000)
		}
		pool.Seed(t.VenueAID.Collection, depth, depth)
		router.SetRate(t.VenueBID, t.QuoteViaB, decimal.NewFromInt(1))
		router.SetRate(t.QuoteViaB, t.VenueBID, decimal.NewFromInt(1))
	}

	return venuea.New(pool, dirA), venueb.New(router, dirB), pool, router
}

// buildEvaluatorParams derives the shared evaluator.Params policy knobs
// from cfg.Trading (spec.md §6 "Trading"); each token reuses the same
// policy, only the TokenSpec and live EvalContext vary per call.
func buildEvaluatorParams(cfg *config.Config) evaluator.Params {
	return evaluator.Params{
		EnableReverse:      cfg.Trading.EnableReverse,
		ArbitrageDirection: evaluator.Priority(cfg.Trading.ArbitrageDirection),
		Edge: edge.Params{
			MinEdgeBps:      decimal.NewFromFloat(cfg.Trading.MinEdgeBps),
			ReverseMinEdgeBps: decimal.NewFromFloat(cfg.Trading.EffectiveReverseMinEdgeBps()),
			MaxImpactBps:    decimal.NewFromFloat(cfg.Trading.MaxPriceImpactBps),
			RiskBufferBps:   decimal.NewFromFloat(cfg.Trading.RiskBufferBps),
			BridgeCostUSD:   decimal.NewFromFloat(cfg.Bridging.BridgeCostUSD),
			TradesPerBridge: decimal.NewFromFloat(float64(cfg.Bridging.TradesPerBridge)),
			UUSD:            decimal.NewFromFloat(cfg.Trading.UUSD),
		},
	}
}

func buildCoordinatorConfig(cfg *config.Config) coordinator.Config {
	return coordinator.Config{
		BaseSlippageBps:          decimal.NewFromFloat(cfg.Trading.MaxSlippageBps),
		DynSlippageEdgeRatio:     decimal.NewFromFloat(cfg.Trading.DynamicSlippageEdgeRatio),
		DynSlippageMaxMultiplier: decimal.NewFromFloat(cfg.Trading.DynamicSlippageMaxMultiplier),
		CooldownMinutes:          cfg.Trading.CooldownMinutes,
		UUSD:                     decimal.NewFromFloat(cfg.Trading.UUSD),
		Mode:                     state.ModeLive,
	}
}

func buildBridgeConfig(cfg *config.Config) bridge.Config {
	bc := bridge.Config{
		ImbalanceThresholdPercent: decimal.NewFromFloat(cfg.AutoBridge.ImbalanceThresholdPercent),
		TargetSplitPercent:        decimal.NewFromFloat(cfg.AutoBridge.TargetSplitPercent),
		MinRebalanceAmount:        decimal.NewFromFloat(cfg.AutoBridge.MinRebalanceAmount),
		CooldownMinutes:           cfg.AutoBridge.CooldownMinutes,
		MaxBridgesPerDay:          cfg.AutoBridge.MaxBridgesPerDay,
		PollInterval:              15 * time.Second,
		TimeoutMinutes:            cfg.Monitoring.BridgeTimeoutMinutes,
	}
	if len(cfg.AutoBridge.EnabledTokens) > 0 {
		bc.EnabledTokens = make(map[string]bool, len(cfg.AutoBridge.EnabledTokens))
		for _, s := range cfg.AutoBridge.EnabledTokens {
			bc.EnabledTokens[s] = true
		}
	}
	if len(cfg.AutoBridge.SkipTokens) > 0 {
		bc.SkipTokens = make(map[string]bool, len(cfg.AutoBridge.SkipTokens))
		for _, s := range cfg.AutoBridge.SkipTokens {
			bc.SkipTokens[s] = true
		}
	}
	return bc
}

// buildTokenRuntimes pairs every configured token's spec, enabled or not,
// with the shared evaluator params (spec currently defines no per-token
// override surface beyond the TokenSpec itself); the trading loop skips
// disabled tokens.
func buildTokenRuntimes(specs []state.TokenSpec, params evaluator.Params) []scheduler.TokenRuntime {
	runtimes := make([]scheduler.TokenRuntime, 0, len(specs))
	for _, s := range specs {
		runtimes = append(runtimes, scheduler.TokenRuntime{Spec: s, Params: params})
	}
	return runtimes
}
