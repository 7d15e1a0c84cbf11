package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/xchainarb/internal/alerts"
	"github.com/ajitpratap0/xchainarb/internal/risk"
	"github.com/ajitpratap0/xchainarb/internal/state"
	"github.com/ajitpratap0/xchainarb/pkg/retry"
)

const defaultPollInterval = 15 * time.Second

// Config holds BridgeController's rebalancing thresholds (spec.md §6,
// "Auto-bridging") plus the poll cadence/timeout for in-flight transfers.
type Config struct {
	ImbalanceThresholdPercent decimal.Decimal // 50..100, default 80
	TargetSplitPercent        decimal.Decimal // 0..100, default 50
	MinRebalanceAmount        decimal.Decimal
	CooldownMinutes           int
	MaxBridgesPerDay          int
	PollInterval              time.Duration // default 15s
	TimeoutMinutes            int
	EnabledTokens             map[string]bool // empty: all tokens enabled
	SkipTokens                map[string]bool
}

func (c Config) pollInterval() time.Duration {
	if c.PollInterval <= 0 {
		return defaultPollInterval
	}
	return c.PollInterval
}

func (c Config) enabledFor(symbol string) bool {
	if c.SkipTokens[symbol] {
		return false
	}
	if len(c.EnabledTokens) == 0 {
		return true
	}
	return c.EnabledTokens[symbol]
}

// Controller runs the bridge rebalance cycle and the in-flight transfer
// poller.
type Controller struct {
	Protocol Protocol
	Store    *state.Store
	Breakers *risk.CircuitBreakerManager
	Config   Config
}

// New builds a Controller.
func New(protocol Protocol, store *state.Store, breakers *risk.CircuitBreakerManager, cfg Config) *Controller {
	return &Controller{Protocol: protocol, Store: store, Breakers: breakers, Config: cfg}
}

// RunRebalanceCycle evaluates every enabled token for imbalance and
// submits at most one bridge transfer per token per call (spec.md §4.9
// steps 1-7). The scheduler drives this once every T_bridge.
func (c *Controller) RunRebalanceCycle(ctx context.Context, tokens []state.TokenSpec, now time.Time) {
	snapshot := c.Store.ReadSnapshot()
	for _, spec := range tokens {
		if !spec.Enabled || !c.Config.enabledFor(spec.Symbol) {
			continue
		}
		c.evaluateToken(ctx, spec, snapshot, now)
	}
}

func (c *Controller) evaluateToken(ctx context.Context, spec state.TokenSpec, snapshot state.BotState, now time.Time) {
	balA := snapshot.Inventory[state.VenueA].VenueA[spec.Symbol].HumanBalance
	balB := snapshot.Inventory[state.VenueB].VenueB[spec.Symbol].HumanBalance
	total := balA.Add(balB)
	if total.IsZero() {
		return
	}

	hundred := decimal.NewFromInt(100)
	pctA := balA.Div(total).Mul(hundred)
	pctB := balB.Div(total).Mul(hundred)
	threshold := c.Config.ImbalanceThresholdPercent
	targetFrac := c.Config.TargetSplitPercent.Div(hundred)

	var direction state.BridgeDirection
	var amount decimal.Decimal
	switch {
	case pctA.GreaterThan(threshold) && pctB.LessThan(hundred.Sub(threshold)):
		direction = state.BridgeAToB
		amount = balA.Sub(targetFrac.Mul(total))
	case pctB.GreaterThan(threshold) && pctA.LessThan(hundred.Sub(threshold)):
		direction = state.BridgeBToA
		amount = balB.Sub(targetFrac.Mul(total))
	default:
		return
	}

	if amount.LessThan(c.Config.MinRebalanceAmount) {
		return
	}
	if c.Config.MaxBridgesPerDay > 0 && c.Store.BridgeCountToday(spec.Symbol, now) >= c.Config.MaxBridgesPerDay {
		log.Debug().Str("symbol", spec.Symbol).Msg("bridge: daily bridge cap reached, skipping")
		return
	}
	if last, ok := c.Store.LastBridgeTime(spec.Symbol); ok {
		cooldownEnd := last.Add(time.Duration(c.Config.CooldownMinutes) * time.Minute)
		if now.Before(cooldownEnd) {
			return
		}
	}

	c.submit(ctx, spec.Symbol, amount, direction, now)
}

// submit executes the bridge transfer and, on success, appends a pending
// BridgeRecord and starts polling it to a terminal state. A submission
// failure after retries leaves no record; the next rebalance cycle
// re-evaluates the imbalance and may retry (spec.md §4.9: "retryable
// failures requeue for next cycle").
func (c *Controller) submit(ctx context.Context, symbol string, amount decimal.Decimal, direction state.BridgeDirection, now time.Time) {
	var sub Submission
	op := func(opCtx context.Context) error {
		raw, err := c.Breakers.Execute(risk.ServiceBridge, nil, func() (interface{}, error) {
			return c.Protocol.SubmitBridge(opCtx, symbol, amount, direction)
		})
		if err != nil {
			return err
		}
		sub = raw.(Submission)
		return nil
	}

	if err := retry.Do(ctx, retry.DefaultConfig(), "bridge submit "+symbol, op); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("bridge: submission failed, requeued for next cycle")
		return
	}

	rec := state.BridgeRecord{
		Symbol:      symbol,
		Amount:      amount,
		Direction:   direction,
		TxHash:      sub.TxID,
		SubmittedAt: now,
		Status:      state.BridgeStatusPending,
	}
	c.Store.AppendBridge(rec)
	go c.PollUntilTerminal(context.Background(), rec)
}

// PollUntilTerminal polls rec's status every Config.pollInterval until a
// terminal status is classified, the configured timeout elapses, or ctx is
// canceled (spec.md §4.9: "status is polled every 15s for up to
// timeout_minutes").
func (c *Controller) PollUntilTerminal(ctx context.Context, rec state.BridgeRecord) {
	timeout := time.Duration(c.Config.TimeoutMinutes) * time.Minute
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	deadline := rec.SubmittedAt.Add(timeout)

	ticker := time.NewTicker(c.Config.pollInterval())
	defer ticker.Stop()

	for {
		if c.pollOnce(ctx, rec) {
			return
		}
		if time.Now().After(deadline) {
			log.Error().Str("symbol", rec.Symbol).Str("txHash", rec.TxHash).Msg("bridge: polling timed out, marking failed")
			c.Store.UpdateBridge(rec.ID, state.BridgeStatusFailed)
			alerts.AlertBridgeFailure(ctx, rec.Symbol, string(fromVenue(rec.Direction)), string(toVenue(rec.Direction)), context.DeadlineExceeded)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// pollOnce checks rec's status once, updating the store and alerting on a
// terminal outcome. It returns true once rec has reached a terminal state.
func (c *Controller) pollOnce(ctx context.Context, rec state.BridgeRecord) bool {
	status, err := c.checkStatus(ctx, rec.TxHash)
	if err != nil {
		// ErrNotYetObservable (404) and any other transport error are both
		// treated as non-terminal here; PollUntilTerminal's deadline check
		// is what eventually gives up.
		return false
	}

	switch status.Classify() {
	case LifecycleSuccess:
		c.Store.UpdateBridge(rec.ID, state.BridgeStatusConfirmed)
		return true
	case LifecycleFailure:
		c.Store.UpdateBridge(rec.ID, state.BridgeStatusFailed)
		alerts.AlertBridgeFailure(ctx, rec.Symbol, string(fromVenue(rec.Direction)), string(toVenue(rec.Direction)),
			fmt.Errorf("bridge status %d: %s", status.Code, status.Description))
		return true
	default:
		return false
	}
}

func (c *Controller) checkStatus(ctx context.Context, txID string) (Status, error) {
	var result Status
	op := func(opCtx context.Context) error {
		raw, err := c.Breakers.Execute(risk.ServiceBridge, nil, func() (interface{}, error) {
			return c.Protocol.Status(opCtx, txID)
		})
		if err != nil {
			return err
		}
		result = raw.(Status)
		return nil
	}
	err := retry.Do(ctx, retry.DefaultConfig(), "bridge status "+txID, op)
	return result, err
}

func fromVenue(dir state.BridgeDirection) state.VenueID {
	if dir == state.BridgeAToB {
		return state.VenueA
	}
	return state.VenueB
}

func toVenue(dir state.BridgeDirection) state.VenueID {
	if dir == state.BridgeAToB {
		return state.VenueB
	}
	return state.VenueA
}
