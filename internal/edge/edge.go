// Package edge computes net trading edge in the accounting unit U,
// direction-agnostic: the side reporting a sell is always the income side
// (spec §4.4).
package edge

import (
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/xchainarb/internal/decimalx"
	"github.com/ajitpratap0/xchainarb/internal/state"
	"github.com/ajitpratap0/xchainarb/internal/venue"
)

// Defaults for the per-trade amortized bridge cost (spec §4.4).
var (
	DefaultBridgeCostUSD   = decimal.NewFromFloat(1.25)
	DefaultTradesPerBridge = decimal.NewFromInt(100)
	DefaultUUSD            = decimal.NewFromFloat(0.01)
)

// Params bundles the calculator's thresholds and cost model (spec §4.4,
// §9 configurable-per-token fields).
type Params struct {
	MinEdgeBps        decimal.Decimal
	ReverseMinEdgeBps decimal.Decimal // zero means "use MinEdgeBps"
	MaxImpactBps      decimal.Decimal
	RiskBufferBps     decimal.Decimal
	BridgeCostUSD     decimal.Decimal // zero means DefaultBridgeCostUSD
	TradesPerBridge   decimal.Decimal // zero means DefaultTradesPerBridge
	UUSD              decimal.Decimal // zero means DefaultUUSD (degraded mode)
}

// Result is the universal, direction-agnostic accounting of one evaluated
// candidate (spec §3 EdgeResult).
type Result struct {
	Income        decimal.Decimal
	Expense       decimal.Decimal
	BridgeCost    decimal.Decimal
	RiskBuffer    decimal.Decimal
	TotalCost     decimal.Decimal
	NetEdge       decimal.Decimal
	NetEdgeBps    decimal.Decimal
	SellSide      state.VenueID
	BuySide       state.VenueID
	ImpactBpsA    decimal.Decimal
	ImpactBpsB    decimal.Decimal
	Profitable    bool
	Invalidations []string
	DegradedUUSD  bool // true when Params.UUSD was defaulted (spec §4.4 note)
}

// Calculate computes net edge for one direction. direction determines which
// venue is selling (income side): forward sells on A and buys on B;
// reverse is the mirror. sellRateToU and buyRateToU each convert that leg's
// own counter-currency into U (the RateResolver is called once per quote;
// a leg already quoted directly in U carries a rate of 1).
//
// Both quotes must already have passed Quote.Validate (Q1-Q3); this
// function re-checks positivity/finiteness defensively since a single bad
// rate or price must invalidate the whole candidate (spec §4.4 validation
// rules).
func Calculate(direction state.Direction, sellQuote, buyQuote venue.Quote, sellRateToU, buyRateToU decimal.Decimal, p Params) Result {
	r := Result{}

	if direction == state.DirectionForward {
		r.SellSide, r.BuySide = state.VenueA, state.VenueB
	} else {
		r.SellSide, r.BuySide = state.VenueB, state.VenueA
	}

	if !decimalx.IsPositiveFinite(sellQuote.Price) || !decimalx.IsPositiveFinite(buyQuote.Price) ||
		!decimalx.IsPositiveFinite(sellRateToU) || !decimalx.IsPositiveFinite(buyRateToU) {
		r.Invalidations = append(r.Invalidations, "non-finite or non-positive price or rate")
		return r
	}

	// Income: proceeds from the sell leg, converted to U.
	r.Income = sellQuote.Price.Mul(sellQuote.TradeSize).Mul(sellRateToU)
	// Expense: cost of the buy leg, converted to U.
	r.Expense = buyQuote.Price.Mul(buyQuote.TradeSize).Mul(buyRateToU)

	uUSD := p.UUSD
	if uUSD.IsZero() {
		uUSD = DefaultUUSD
		r.DegradedUUSD = true
	}
	bridgeCostUSD := p.BridgeCostUSD
	if bridgeCostUSD.IsZero() {
		bridgeCostUSD = DefaultBridgeCostUSD
	}
	tradesPerBridge := p.TradesPerBridge
	if tradesPerBridge.IsZero() {
		tradesPerBridge = DefaultTradesPerBridge
	}
	r.BridgeCost = bridgeCostUSD.Div(uUSD).Div(tradesPerBridge)

	r.RiskBuffer = decimalx.BpsOf(r.Income, p.RiskBufferBps)

	r.TotalCost = r.Expense.Add(r.BridgeCost).Add(r.RiskBuffer)
	r.NetEdge = r.Income.Sub(r.TotalCost)
	r.NetEdgeBps = decimalx.RatioBps(r.NetEdge, r.TotalCost)

	r.ImpactBpsA = sellQuote.PriceImpactBps
	r.ImpactBpsB = buyQuote.PriceImpactBps
	if direction != state.DirectionForward {
		r.ImpactBpsA, r.ImpactBpsB = buyQuote.PriceImpactBps, sellQuote.PriceImpactBps
	}

	minEdgeBps := p.MinEdgeBps
	if direction != state.DirectionForward && p.ReverseMinEdgeBps.IsPositive() {
		minEdgeBps = p.ReverseMinEdgeBps
	}

	if r.Income.IsNegative() || r.Expense.IsNegative() || r.TotalCost.IsNegative() {
		r.Invalidations = append(r.Invalidations, "negative income, expense, or total cost")
	}
	if !r.NetEdge.IsPositive() {
		r.Invalidations = append(r.Invalidations, "net edge not positive")
	}
	if r.NetEdgeBps.LessThan(minEdgeBps) {
		r.Invalidations = append(r.Invalidations, "net edge below minimum threshold")
	}
	if r.ImpactBpsA.Abs().GreaterThan(p.MaxImpactBps) || r.ImpactBpsB.Abs().GreaterThan(p.MaxImpactBps) {
		r.Invalidations = append(r.Invalidations, "price impact exceeds maximum")
	}

	r.Profitable = len(r.Invalidations) == 0
	return r
}

// ToSnapshot freezes a Result into the persisted state.EdgeSnapshot shape.
func (r Result) ToSnapshot() state.EdgeSnapshot {
	return state.EdgeSnapshot{
		Income:     r.Income,
		Expense:    r.Expense,
		BridgeCost: r.BridgeCost,
		RiskBuffer: r.RiskBuffer,
		NetEdge:    r.NetEdge,
		NetEdgeBps: r.NetEdgeBps,
		SellSide:   r.SellSide,
		BuySide:    r.BuySide,
	}
}
