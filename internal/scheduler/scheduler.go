// Package scheduler runs the two cooperative tick loops spec.md §2, §5,
// and §6 describe: a trading loop (T_cycle, default 15s) that evaluates
// every enabled token and executes approved candidates, and a bridge loop
// (T_bridge, default 5min) that runs the auto-rebalance check. Both are
// plain ticker+select loops grounded on internal/market.SyncService's
// Start(ctx) pattern, run concurrently by the caller as separate
// goroutines rather than coupled into one loop, since their periods are
// unrelated and spec.md treats them as independent schedulers sharing
// only the StateStore.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/xchainarb/internal/balance"
	"github.com/ajitpratap0/xchainarb/internal/coordinator"
	"github.com/ajitpratap0/xchainarb/internal/evaluator"
	"github.com/ajitpratap0/xchainarb/internal/risk"
	"github.com/ajitpratap0/xchainarb/internal/state"
)

// TokenRuntime pairs a token's static spec with its per-token evaluation
// policy; the trading loop holds one of these per configured token.
type TokenRuntime struct {
	Spec   state.TokenSpec
	Params evaluator.Params
}

// TradingLoop runs evaluator.Evaluate and, for approved candidates,
// coordinator.Execute for every enabled token once per T_cycle tick
// (spec §2, §4.7, §4.8).
type TradingLoop struct {
	Evaluator   *evaluator.Evaluator
	Coordinator *coordinator.Coordinator
	Store       *state.Store
	Balance     *balance.Checker
	Tokens      []TokenRuntime
	Interval    time.Duration

	// MaxDailyTrades is spec.md §6's trading.max_daily_trades; 0 means
	// unlimited. state.Store already tracks DailyTradeCounts per symbol
	// on every AppendTrade, so this loop only needs to read it before
	// evaluating a token.
	MaxDailyTrades int

	MaxNotionalPerTradeUSD decimal.Decimal
	OwnerA, OwnerB         string
}

// Start runs the trading loop until ctx is canceled, ticking immediately
// on entry and then every Interval.
func (l *TradingLoop) Start(ctx context.Context) error {
	log.Info().Dur("interval", l.Interval).Int("tokens", len(l.Tokens)).Msg("scheduler: trading loop started")
	l.tick(ctx)

	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler: trading loop stopped")
			return ctx.Err()
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

// tick evaluates every token against one shared read of the environment
// interlocks and one shared balance snapshot, per spec.md §4.8's ordering
// guarantee that both are read once per tick.
func (l *TradingLoop) tick(ctx context.Context) {
	now := time.Now()
	interlocks := coordinator.ReadInterlocks(now, l.MaxNotionalPerTradeUSD)
	gateInterlocks := risk.Interlocks{GlobalPause: interlocks.GlobalPause, InTradeWindow: interlocks.InTradeWindow}

	specs := make([]state.TokenSpec, 0, len(l.Tokens))
	for _, tr := range l.Tokens {
		specs = append(specs, tr.Spec)
	}

	snapA, snapB, err := l.Balance.Refresh(ctx, specs, l.OwnerA, l.OwnerB, false)
	if err != nil {
		log.Warn().Err(err).Msg("scheduler: balance refresh failed, skipping tick")
		return
	}
	pauseFlags := balance.EvaluatePauses(specs, snapA, snapB)
	perf := l.Store.PerformanceMetrics()
	capital := snapA.ChainTotalUSDA.Add(snapB.ChainTotalUSDB)

	for _, tr := range l.Tokens {
		l.evaluateToken(ctx, tr, now, interlocks, gateInterlocks, snapA, snapB, pauseFlags, perf, capital)
	}
}

func (l *TradingLoop) evaluateToken(
	ctx context.Context,
	tr TokenRuntime,
	now time.Time,
	interlocks coordinator.Interlocks,
	gateInterlocks risk.Interlocks,
	snapA, snapB state.InventorySnapshot,
	pauseFlags map[string]balance.PauseFlag,
	perf state.PerformanceMetrics,
	capital decimal.Decimal,
) {
	spec := tr.Spec
	if !spec.Enabled {
		return
	}

	pf := pauseFlags[spec.Symbol]
	if pf.Paused {
		return
	}

	if l.MaxDailyTrades > 0 && l.Store.DailyTradeCount(spec.Symbol, now) >= l.MaxDailyTrades {
		log.Debug().Str("symbol", spec.Symbol).Msg("scheduler: max_daily_trades reached, skipping")
		return
	}

	cooldown, hasCooldown := l.Store.Cooldown(spec.Symbol)

	// "required funds (per direction) present on both chains" (spec §4.6):
	// since a token's forward/reverse candidates can sell on either venue,
	// both venues need to hold at least the trade size for this tick's
	// quotes to be actionable regardless of which direction wins.
	bv := risk.BalanceView{
		SufficientBothChains: balance.RequiredFundsSufficient(snapA, state.VenueA, spec.Symbol, spec.TradeSize) &&
			balance.RequiredFundsSufficient(snapB, state.VenueB, spec.Symbol, spec.TradeSize),
		TokenPaused: pf.Paused,
	}

	ec := evaluator.EvalContext{
		Now:         now,
		Cooldown:    cooldown,
		HasCooldown: hasCooldown,
		Balance:     bv,
		Interlocks:  gateInterlocks,
		Perf:        perf,
		Capital:     capital,
	}

	result := l.Evaluator.Evaluate(ctx, spec, tr.Params, ec)
	if !result.Approved || result.Winner == nil {
		return
	}

	outcome := l.Coordinator.Execute(ctx, *result.Winner, spec, interlocks, pf.SkipSell, now)
	log.Info().Str("symbol", spec.Symbol).Str("classification", string(outcome.Classification)).Str("reason", outcome.Reason).Msg("scheduler: trade cycle outcome")
}
