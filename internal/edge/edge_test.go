package edge

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/xchainarb/internal/state"
	"github.com/ajitpratap0/xchainarb/internal/venue"
)

// TestCalculateHappyPathForwardScenario reproduces end-to-end scenario 1:
// venue A sells 1000 T for 150 U (impact 10bps); venue B buys 1000 T for
// 0.05 S (impact 5bps); S->U pool rate 2800; bridge_cost_usd=1.25,
// U_usd=0.04 over 100 trades; risk_buffer_bps=100; min_edge_bps=30.
func TestCalculateHappyPathForwardScenario(t *testing.T) {
	sellQuote := venue.Quote{
		Venue:          venue.VenueA,
		Direction:      venue.Sell,
		Price:          decimal.NewFromFloat(0.15), // 150 U / 1000 T
		TradeSize:      decimal.NewFromInt(1000),
		PriceImpactBps: decimal.NewFromInt(10),
		Valid:          true,
	}
	buyQuote := venue.Quote{
		Venue:          venue.VenueB,
		Direction:      venue.Buy,
		Price:          decimal.NewFromFloat(0.00005), // 0.05 S / 1000 T
		TradeSize:      decimal.NewFromInt(1000),
		PriceImpactBps: decimal.NewFromInt(5),
		Valid:          true,
	}
	sellRateToU := decimal.NewFromInt(1)
	buyRateToU := decimal.NewFromInt(2800)

	params := Params{
		MinEdgeBps:      decimal.NewFromInt(30),
		MaxImpactBps:    decimal.NewFromInt(50),
		RiskBufferBps:   decimal.NewFromInt(100),
		BridgeCostUSD:   decimal.NewFromFloat(1.25),
		TradesPerBridge: decimal.NewFromInt(100),
		UUSD:            decimal.NewFromFloat(0.04),
	}

	result := Calculate(state.DirectionForward, sellQuote, buyQuote, sellRateToU, buyRateToU, params)

	require.Empty(t, result.Invalidations)
	assert.True(t, result.Income.Equal(decimal.NewFromInt(150)))
	assert.True(t, result.Expense.Equal(decimal.NewFromInt(140)))
	assert.True(t, result.BridgeCost.Equal(decimal.NewFromFloat(0.3125)))
	assert.True(t, result.RiskBuffer.Equal(decimal.NewFromFloat(1.5)))
	assert.True(t, result.NetEdge.Equal(decimal.NewFromFloat(8.1875)), "net edge: got %s", result.NetEdge)

	expectedBps := decimal.NewFromFloat(8.1875).Div(decimal.NewFromFloat(141.8125)).Mul(decimal.NewFromInt(10000))
	assert.True(t, result.NetEdgeBps.Sub(expectedBps).Abs().LessThan(decimal.New(1, -6)))
	assert.True(t, result.Profitable)
	assert.Equal(t, state.VenueA, result.SellSide)
	assert.Equal(t, state.VenueB, result.BuySide)
}

func TestCalculateRejectsBelowMinEdge(t *testing.T) {
	sellQuote := venue.Quote{Price: decimal.NewFromFloat(0.1), TradeSize: decimal.NewFromInt(1000), Valid: true}
	buyQuote := venue.Quote{Price: decimal.NewFromFloat(0.0999), TradeSize: decimal.NewFromInt(1000), Valid: true}
	params := Params{MinEdgeBps: decimal.NewFromInt(30), MaxImpactBps: decimal.NewFromInt(100), UUSD: decimal.NewFromFloat(0.04)}

	result := Calculate(state.DirectionForward, sellQuote, buyQuote, decimal.NewFromInt(1), decimal.NewFromInt(1), params)
	assert.NotEmpty(t, result.Invalidations)
	assert.False(t, result.Profitable)
}

func TestCalculateReverseSwapsSellBuySides(t *testing.T) {
	sellQuote := venue.Quote{Price: decimal.NewFromFloat(1), TradeSize: decimal.NewFromInt(100), Valid: true}
	buyQuote := venue.Quote{Price: decimal.NewFromFloat(0.5), TradeSize: decimal.NewFromInt(100), Valid: true}
	params := Params{MinEdgeBps: decimal.NewFromInt(10), MaxImpactBps: decimal.NewFromInt(100), UUSD: decimal.NewFromFloat(0.04)}

	result := Calculate(state.DirectionReverse, sellQuote, buyQuote, decimal.NewFromInt(1), decimal.NewFromInt(1), params)
	assert.Equal(t, state.VenueB, result.SellSide)
	assert.Equal(t, state.VenueA, result.BuySide)
}

func TestCalculateInvalidatesNonPositiveRate(t *testing.T) {
	sellQuote := venue.Quote{Price: decimal.NewFromFloat(1), TradeSize: decimal.NewFromInt(100), Valid: true}
	buyQuote := venue.Quote{Price: decimal.NewFromFloat(0.5), TradeSize: decimal.NewFromInt(100), Valid: true}
	params := Params{MinEdgeBps: decimal.NewFromInt(10), MaxImpactBps: decimal.NewFromInt(100), UUSD: decimal.NewFromFloat(0.04)}

	result := Calculate(state.DirectionForward, sellQuote, buyQuote, decimal.Zero, decimal.NewFromInt(1), params)
	assert.Contains(t, result.Invalidations, "non-finite or non-positive price or rate")
	assert.False(t, result.Profitable)
}

func TestCalculateDegradedUUSDFlagsWhenMissing(t *testing.T) {
	sellQuote := venue.Quote{Price: decimal.NewFromFloat(1), TradeSize: decimal.NewFromInt(100), Valid: true}
	buyQuote := venue.Quote{Price: decimal.NewFromFloat(0.5), TradeSize: decimal.NewFromInt(100), Valid: true}
	params := Params{MinEdgeBps: decimal.NewFromInt(10), MaxImpactBps: decimal.NewFromInt(100)}

	result := Calculate(state.DirectionForward, sellQuote, buyQuote, decimal.NewFromInt(1), decimal.NewFromInt(1), params)
	assert.True(t, result.DegradedUUSD)
}

func TestCalculateInvalidatesExcessiveImpact(t *testing.T) {
	sellQuote := venue.Quote{Price: decimal.NewFromFloat(1), TradeSize: decimal.NewFromInt(100), PriceImpactBps: decimal.NewFromInt(200), Valid: true}
	buyQuote := venue.Quote{Price: decimal.NewFromFloat(0.5), TradeSize: decimal.NewFromInt(100), Valid: true}
	params := Params{MinEdgeBps: decimal.NewFromInt(10), MaxImpactBps: decimal.NewFromInt(50), UUSD: decimal.NewFromFloat(0.04)}

	result := Calculate(state.DirectionForward, sellQuote, buyQuote, decimal.NewFromInt(1), decimal.NewFromInt(1), params)
	assert.Contains(t, result.Invalidations, "price impact exceeds maximum")
}
