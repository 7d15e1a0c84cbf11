package risk

import (
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/xchainarb/internal/state"
)

// Calculator provides Kelly-criterion position-sizing advice derived from
// the trade log, adapted from the teacher's Postgres-backed win-rate/VaR
// calculator (internal/risk/calculator.go, internal/risk/service.go) to
// read from state.Store.PerformanceMetrics() instead of a candlesticks
// table. Unlike the teacher's interactive tool-call surface (args map),
// this is consumed internally by RiskGate as a non-blocking advisory.
type Calculator struct {
	// KellyFraction scales the full Kelly stake down to a more
	// conservative fraction (teacher default: 0.25, quarter Kelly).
	KellyFraction decimal.Decimal
	// MinSampleSize is the fewest recent trades required before a Kelly
	// cap is trusted; below it the advisory abstains.
	MinSampleSize int
}

// NewCalculator returns a Calculator using the teacher's quarter-Kelly
// default and a minimum sample of 10 trades.
func NewCalculator() *Calculator {
	return &Calculator{
		KellyFraction: decimal.NewFromFloat(0.25),
		MinSampleSize: 10,
	}
}

// PositionSizeResult mirrors the teacher's service.PositionSizeResult
// shape, in decimal rather than float64.
type PositionSizeResult struct {
	KellyPercent    decimal.Decimal
	AdjustedPercent decimal.Decimal
	CapNotional     decimal.Decimal
	Sufficient      bool // false when the sample is too small to trust
}

// KellyCap computes the Kelly-implied position-size cap for capital, given
// perf's recent win/loss history. Kelly fraction: f = (p*b - q) / b, where
// p = win rate, q = 1-p, b = avg_win/avg_loss.
//
// Returns Sufficient=false (and a zero cap) when there isn't enough trade
// history, or no losing trades yet to derive b from — RiskGate treats that
// as "no opinion", not as a rejection.
func (c *Calculator) KellyCap(perf state.PerformanceMetrics, capital decimal.Decimal) PositionSizeResult {
	if perf.TotalTrades < c.MinSampleSize || perf.AvgLosingEdge.IsZero() || perf.AvgWinningEdge.IsZero() {
		return PositionSizeResult{Sufficient: false}
	}

	winRate := decimal.NewFromInt(int64(perf.SuccessfulTrades)).Div(decimal.NewFromInt(int64(perf.TotalTrades)))
	q := decimal.NewFromInt(1).Sub(winRate)
	b := perf.AvgWinningEdge.Div(perf.AvgLosingEdge)

	kellyPercent := winRate.Mul(b).Sub(q).Div(b)
	adjusted := kellyPercent.Mul(c.KellyFraction)
	if adjusted.IsNegative() {
		adjusted = decimal.Zero
	}

	cap := capital.Mul(adjusted)
	log.Debug().
		Str("win_rate", winRate.String()).
		Str("kelly_percent", kellyPercent.String()).
		Str("adjusted_percent", adjusted.String()).
		Msg("kelly position-size advisory computed")

	return PositionSizeResult{
		KellyPercent:    kellyPercent,
		AdjustedPercent: adjusted,
		CapNotional:     cap,
		Sufficient:      true,
	}
}
