// Package coordinator executes the winning evaluation from
// internal/evaluator: interlock checks, dynamic-slippage derivation, then
// strictly sequential venue-B-then-A execution with partial-failure
// semantics (spec §4.8).
package coordinator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/xchainarb/internal/alerts"
	"github.com/ajitpratap0/xchainarb/internal/apperrors"
	"github.com/ajitpratap0/xchainarb/internal/decimalx"
	"github.com/ajitpratap0/xchainarb/internal/evaluator"
	"github.com/ajitpratap0/xchainarb/internal/risk"
	"github.com/ajitpratap0/xchainarb/internal/state"
	"github.com/ajitpratap0/xchainarb/internal/venue"
	"github.com/ajitpratap0/xchainarb/pkg/retry"
)

// Classification is the final outcome of one Execute call.
type Classification string

const (
	ClassificationSuccess        Classification = "success"
	ClassificationPartial        Classification = "partial_success"
	ClassificationOneSidedBuy    Classification = "one_sided_buy"
	ClassificationOneSidedFailed Classification = "one_sided_buy_failed"
	ClassificationAborted        Classification = "aborted"
	ClassificationNoOp           Classification = "no_op"
)

// Interlocks are the environment-sourced flags read once per tick
// (spec §4.8 steps 1-3); the scheduler reads the environment once and
// shares this value across every token's Execute call in the tick.
type Interlocks struct {
	GlobalPause            bool
	InTradeWindow          bool
	MaxNotionalPerTradeUSD decimal.Decimal // zero means uncapped
}

// Config holds the coordinator's slippage-derivation and cooldown policy
// (spec.md §6 "Trading").
type Config struct {
	BaseSlippageBps          decimal.Decimal
	DynSlippageEdgeRatio     decimal.Decimal
	DynSlippageMaxMultiplier decimal.Decimal
	CooldownMinutes          int
	UUSD                     decimal.Decimal // for notional-cap USD conversion
	Mode                     state.TradeMode
}

// Outcome is what Execute returns; Entry is populated whenever a trade log
// entry was appended.
type Outcome struct {
	Classification Classification
	Reason         string
	Entry          state.TradeLogEntry
	Legs           []state.TradeLeg
}

// Coordinator executes approved candidates against the two venues.
type Coordinator struct {
	VenueA   venue.Adapter
	VenueB   venue.Adapter
	Store    *state.Store
	Breakers *risk.CircuitBreakerManager
	Config   Config
}

// New builds a Coordinator.
func New(venueA, venueB venue.Adapter, store *state.Store, breakers *risk.CircuitBreakerManager, cfg Config) *Coordinator {
	return &Coordinator{VenueA: venueA, VenueB: venueB, Store: store, Breakers: breakers, Config: cfg}
}

// Execute runs the interlock checks, then the B-then-A execution sequence,
// for candidate (spec §4.8). skipSell is the inventory-low sell-skip flag
// the caller derived from internal/balance.EvaluatePauses for this symbol.
func (c *Coordinator) Execute(ctx context.Context, candidate evaluator.Candidate, spec state.TokenSpec, interlocks Interlocks, skipSell bool, now time.Time) Outcome {
	cycleID := uuid.NewString()

	if interlocks.GlobalPause {
		log.Info().Str("symbol", spec.Symbol).Msg("coordinator: trade aborted, global pause active")
		return Outcome{Classification: ClassificationAborted, Reason: "paused"}
	}
	if !interlocks.InTradeWindow {
		log.Info().Str("symbol", spec.Symbol).Msg("coordinator: trade aborted, outside trade window")
		return Outcome{Classification: ClassificationAborted, Reason: "outside configured trade window"}
	}
	notionalUSD := candidate.Edge.Income.Mul(c.Config.UUSD)
	if interlocks.MaxNotionalPerTradeUSD.IsPositive() && notionalUSD.GreaterThan(interlocks.MaxNotionalPerTradeUSD) {
		log.Info().Str("symbol", spec.Symbol).Str("notional_usd", notionalUSD.String()).Msg("coordinator: trade aborted, exceeds per-trade notional cap")
		return Outcome{Classification: ClassificationAborted, Reason: "exceeds per-trade notional cap"}
	}

	dyn := c.dynamicSlippageBps(candidate.Edge.NetEdgeBps)
	deadline := now.Add(60 * time.Second)
	bRole, aRole := rolesForDirection(candidate.Direction)

	var legB state.TradeLeg
	if bRole == roleSell && skipSell {
		legB = state.TradeLeg{Venue: state.VenueB, Skipped: true}
	} else {
		legB = c.executeLeg(ctx, c.VenueB, risk.ServiceVenueB, state.VenueB, bRole, spec.Symbol, candidate.QuoteB, dyn, deadline)
	}

	if !legB.Success && !legB.Skipped {
		alerts.AlertDualLegFailure(ctx, spec.Symbol, string(candidate.Direction), cycleID, apperrors.New(apperrors.CategoryExecution, legB.Error, nil))
		return Outcome{Classification: ClassificationAborted, Reason: "venue B leg failed, venue A not attempted", Legs: []state.TradeLeg{legB}}
	}

	var legA state.TradeLeg
	if aRole == roleSell && skipSell {
		legA = state.TradeLeg{Venue: state.VenueA, Skipped: true}
	} else {
		legA = c.executeLeg(ctx, c.VenueA, risk.ServiceVenueA, state.VenueA, aRole, spec.Symbol, candidate.QuoteA, dyn, deadline)
	}

	return c.classify(ctx, spec, candidate, legB, legA, now)
}

// classify maps the two leg outcomes onto spec §4.8's combined-outcome
// table, appending a trade log entry and setting a cooldown wherever the
// policy calls for it.
func (c *Coordinator) classify(ctx context.Context, spec state.TokenSpec, candidate evaluator.Candidate, legB, legA state.TradeLeg, now time.Time) Outcome {
	legs := []state.TradeLeg{legB, legA}
	entry := state.TradeLogEntry{
		Timestamp: now,
		Mode:      c.Config.Mode,
		Symbol:    spec.Symbol,
		Direction: candidate.Direction,
		Edge:      candidate.Edge.ToSnapshot(),
		Legs:      legs,
	}

	switch {
	case legB.Success && legA.Success:
		c.Store.AppendTrade(entry)
		c.setCooldown(spec.Symbol, now)
		alerts.GetDefaultManager().SendInfo(ctx, "Dual-leg trade executed",
			"both legs succeeded for "+spec.Symbol, map[string]interface{}{
				"symbol": spec.Symbol, "direction": string(candidate.Direction),
				"net_edge_bps": candidate.Edge.NetEdgeBps.String(),
			})
		return Outcome{Classification: ClassificationSuccess, Entry: entry, Legs: legs}

	case legB.Skipped && legA.Success:
		c.Store.AppendTrade(entry)
		c.setCooldown(spec.Symbol, now)
		alerts.AlertOneSidedBuy(ctx, spec.Symbol, string(legA.Venue), spec.TradeSize.InexactFloat64(), true)
		return Outcome{Classification: ClassificationOneSidedBuy, Entry: entry, Legs: legs}

	case legA.Skipped && legB.Success:
		c.Store.AppendTrade(entry)
		c.setCooldown(spec.Symbol, now)
		alerts.AlertOneSidedBuy(ctx, spec.Symbol, string(legB.Venue), spec.TradeSize.InexactFloat64(), true)
		return Outcome{Classification: ClassificationOneSidedBuy, Entry: entry, Legs: legs}

	case legB.Skipped && !legA.Success:
		c.Store.AppendTrade(entry)
		alerts.AlertOneSidedBuy(ctx, spec.Symbol, string(legA.Venue), spec.TradeSize.InexactFloat64(), false)
		return Outcome{Classification: ClassificationOneSidedFailed, Entry: entry, Legs: legs}

	case legB.Success && !legA.Success:
		c.Store.AppendTrade(entry)
		c.setCooldown(spec.Symbol, now)
		alerts.AlertPartialSuccess(ctx, spec.Symbol, string(legB.Venue), string(legA.Venue), uuid.NewString(), apperrors.New(apperrors.CategoryExecution, legA.Error, nil))
		return Outcome{Classification: ClassificationPartial, Entry: entry, Legs: legs}

	default:
		return Outcome{Classification: ClassificationNoOp, Legs: legs}
	}
}

func (c *Coordinator) setCooldown(symbol string, now time.Time) {
	minutes := c.Config.CooldownMinutes
	if minutes <= 0 {
		minutes = 5
	}
	c.Store.SetCooldown(symbol, now.Add(time.Duration(minutes)*time.Minute), "post-trade cooldown")
}

// dynamicSlippageBps implements spec §4.8's derivation:
// clamp(edge_bps * edge_ratio, base, base * max_multiplier), falling back
// to base when edge_bps is unknown or non-positive.
func (c *Coordinator) dynamicSlippageBps(edgeBps decimal.Decimal) decimal.Decimal {
	base := c.Config.BaseSlippageBps
	if !edgeBps.IsPositive() {
		return base
	}
	ratio := c.Config.DynSlippageEdgeRatio
	if ratio.IsZero() {
		ratio = decimal.NewFromFloat(0.75)
	}
	maxMult := c.Config.DynSlippageMaxMultiplier
	if maxMult.IsZero() {
		maxMult = decimal.NewFromFloat(2.0)
	}
	return decimalx.Clamp(edgeBps.Mul(ratio), base, base.Mul(maxMult))
}

type legRole string

const (
	roleSell legRole = "sell"
	roleBuy  legRole = "buy"
)

// rolesForDirection returns the roles venue B and venue A play: forward
// sells on A and buys on B; reverse is the mirror (spec intro, §3).
func rolesForDirection(dir state.Direction) (bRole, aRole legRole) {
	if dir == state.DirectionForward {
		return roleBuy, roleSell
	}
	return roleSell, roleBuy
}

// executeLeg submits one leg's swap through the named circuit breaker and
// the shared retry policy, returning its TradeLeg outcome.
func (c *Coordinator) executeLeg(ctx context.Context, adapter venue.Adapter, breakerName risk.Name, venueID state.VenueID, role legRole, symbol string, quote venue.Quote, dynSlippageBps decimal.Decimal, deadline time.Time) state.TradeLeg {
	leg := state.TradeLeg{Venue: venueID}
	var result venue.ExecResult

	op := func(opCtx context.Context) error {
		raw, err := c.Breakers.Execute(breakerName, nil, func() (interface{}, error) {
			if role == roleSell {
				minOut := minOutput(quote, dynSlippageBps)
				return adapter.SwapExactIn(opCtx, symbol, quote.TradeSize, minOut, deadline)
			}
			maxIn := maxInput(quote, dynSlippageBps)
			return adapter.SwapExactOut(opCtx, symbol, quote.TradeSize, maxIn, deadline, dynSlippageBps)
		})
		if err != nil {
			return err
		}
		result = raw.(venue.ExecResult)
		if !result.Success {
			if result.Error != nil {
				return result.Error
			}
			return apperrors.New(apperrors.CategoryExecution, "swap reported failure", nil)
		}
		return nil
	}

	if err := retry.Do(ctx, retry.DefaultConfig(), string(breakerName)+" "+string(role), op); err != nil {
		leg.Success = false
		leg.Error = err.Error()
		return leg
	}
	leg.Success = true
	leg.TxID = result.TxID
	return leg
}

// minOutput applies the slippage-protected floor for an exact-input sell
// (spec §4.2: "forward uses min_output").
func minOutput(quote venue.Quote, dynSlippageBps decimal.Decimal) decimal.Decimal {
	expected := quote.Price.Mul(quote.TradeSize)
	discount := decimalx.BpsOf(expected, dynSlippageBps)
	return expected.Sub(discount)
}

// maxInput applies the slippage-protected ceiling for an exact-output buy
// (spec §4.2: "reverse uses max_input").
func maxInput(quote venue.Quote, dynSlippageBps decimal.Decimal) decimal.Decimal {
	expected := quote.Price.Mul(quote.TradeSize)
	premium := decimalx.BpsOf(expected, dynSlippageBps)
	return expected.Add(premium)
}
