// Package venue defines the capability set both trading venues conform to
// (spec §4.2, §6): size-aware quoting in both directions and swap
// execution. Venue A and venue B's concrete adapters (the venuea and
// venueb subpackages) each implement Adapter; callers depend only on this
// interface, never on a concrete adapter type, so the evaluator and
// coordinator are venue-agnostic.
package venue

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of a quote/swap: sell the token for the
// counter-asset, or buy the token with it.
type Direction string

const (
	Sell Direction = "sell"
	Buy  Direction = "buy"
)

// Name identifies a venue for logging, metrics, and circuit-breaker keys.
type Name string

const (
	VenueA Name = "venue_a"
	VenueB Name = "venue_b"
)

// Quote is produced by a venue adapter for one symbol/size/direction.
type Quote struct {
	Symbol          string
	Venue           Name
	Direction       Direction
	Price           decimal.Decimal // counter-asset per unit of token
	Currency        string
	TradeSize       decimal.Decimal
	MinOutput       decimal.Decimal
	PriceImpactBps  decimal.Decimal
	ProviderFeeHint *decimal.Decimal
	PriorityFeeHint *decimal.Decimal
	LiquidityHint   *decimal.Decimal
	Timestamp       time.Time
	ExpiresAt       time.Time
	Valid           bool
	Error           string
}

// Validate enforces invariants Q1-Q3 (spec §3). slippageTol is the caller's
// configured slippage tolerance, used to check Q2 when the quote carries a
// MinOutput. isExactOutput/desiredOutput enable the Q3 check.
func (q Quote) Validate(slippageTol decimal.Decimal, isExactOutput bool, desiredOutput decimal.Decimal) error {
	if !q.Valid {
		if q.Error != "" {
			return errInvalidQuote(q.Error)
		}
		return errInvalidQuote("quote marked invalid")
	}
	// Q1: price > 0 and finite. decimal.Decimal cannot be NaN/Inf, so this
	// reduces to strict positivity.
	if !q.Price.IsPositive() {
		return errInvalidQuote("price must be positive")
	}
	// Q2: min_output <= price * trade_size * (1 - slippage_tol), when shipped.
	if !q.MinOutput.IsZero() {
		maxAllowed := q.Price.Mul(q.TradeSize).Mul(decimal.NewFromInt(1).Sub(slippageTol))
		if q.MinOutput.GreaterThan(maxAllowed) {
			return errInvalidQuote("min_output exceeds slippage-adjusted expected output")
		}
	}
	// Q3: for an exact-output quote, price == input_amount / desired_output.
	if isExactOutput && desiredOutput.IsPositive() {
		expectedPrice := q.TradeSize.Div(desiredOutput)
		if !q.Price.Sub(expectedPrice).Abs().LessThanOrEqual(decimal.New(1, -9)) {
			return errInvalidQuote("exact-output price does not match input/desired ratio")
		}
	}
	return nil
}

type quoteError string

func (e quoteError) Error() string { return string(e) }

func errInvalidQuote(msg string) error { return quoteError(msg) }

// ExecResult is the outcome of a swap submission. TxID is opaque to the core.
type ExecResult struct {
	Success bool
	TxID    string
	Error   error
}

// BalanceRow is one entry from Adapter.Balances.
type BalanceRow struct {
	Descriptor string
	RawAmount  decimal.Decimal
}

// Adapter is the capability set both venue adapters conform to (spec §6).
type Adapter interface {
	// Quote returns a size-aware quote for symbol in the given direction.
	Quote(ctx context.Context, symbol string, humanSize decimal.Decimal, direction Direction) (Quote, error)

	// SwapExactIn executes an exact-input swap: sell humanSize of symbol,
	// requiring at least minOutHuman of the counter-asset.
	SwapExactIn(ctx context.Context, symbol string, humanSize, minOutHuman decimal.Decimal, deadline time.Time) (ExecResult, error)

	// SwapExactOut executes an exact-output swap: buy desiredOutHuman of
	// symbol, spending at most maxInHuman of the counter-asset. slippageBps
	// is the caller's currently-derived dynamic slippage (spec §6
	// dyn_slippage_bps), which venue A uses to size its exact-output
	// precision buffer (spec §4.2).
	SwapExactOut(ctx context.Context, symbol string, desiredOutHuman, maxInHuman decimal.Decimal, deadline time.Time, slippageBps decimal.Decimal) (ExecResult, error)

	// Balances returns raw on-venue balances for owner.
	Balances(ctx context.Context, owner string) ([]BalanceRow, error)

	// Name identifies this venue for logging/metrics/breakers.
	Name() Name
}
