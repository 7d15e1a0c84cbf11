package evaluator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/xchainarb/internal/edge"
	"github.com/ajitpratap0/xchainarb/internal/rate"
	"github.com/ajitpratap0/xchainarb/internal/risk"
	"github.com/ajitpratap0/xchainarb/internal/state"
	"github.com/ajitpratap0/xchainarb/internal/venue"
)

type stubVenue struct {
	name   venue.Name
	quotes map[venue.Direction]venue.Quote
	errs   map[venue.Direction]error
}

func (s *stubVenue) Quote(_ context.Context, _ string, _ decimal.Decimal, dir venue.Direction) (venue.Quote, error) {
	if err, ok := s.errs[dir]; ok {
		return venue.Quote{}, err
	}
	q, ok := s.quotes[dir]
	if !ok {
		return venue.Quote{}, errors.New("stubVenue: no quote configured for direction")
	}
	return q, nil
}

func (s *stubVenue) SwapExactIn(_ context.Context, _ string, _, _ decimal.Decimal, _ time.Time) (venue.ExecResult, error) {
	return venue.ExecResult{}, nil
}

func (s *stubVenue) SwapExactOut(_ context.Context, _ string, _, _ decimal.Decimal, _ time.Time, _ decimal.Decimal) (venue.ExecResult, error) {
	return venue.ExecResult{}, nil
}

func (s *stubVenue) Balances(_ context.Context, _ string) ([]venue.BalanceRow, error) {
	return nil, nil
}

func (s *stubVenue) Name() venue.Name { return s.name }

func baseEdgeParams() edge.Params {
	return edge.Params{
		MinEdgeBps:      decimal.NewFromInt(30),
		MaxImpactBps:    decimal.NewFromInt(50),
		RiskBufferBps:   decimal.NewFromInt(100),
		BridgeCostUSD:   decimal.NewFromFloat(1.25),
		TradesPerBridge: decimal.NewFromInt(100),
		UUSD:            decimal.NewFromFloat(0.04),
	}
}

func baseEvalContext(now time.Time) EvalContext {
	return EvalContext{
		Now:         now,
		HasCooldown: false,
		Balance:     risk.BalanceView{SufficientBothChains: true},
		Interlocks:  risk.Interlocks{InTradeWindow: true},
	}
}

func tokenSpec() state.TokenSpec {
	return state.TokenSpec{Symbol: "GALA", Decimals: 8, TradeSize: decimal.NewFromInt(1000)}
}

func TestEvaluateApprovesHappyPathForward(t *testing.T) {
	now := time.Now()
	venueA := &stubVenue{
		name: venue.VenueA,
		quotes: map[venue.Direction]venue.Quote{
			venue.Sell: {Symbol: "GALA", Currency: "U", Price: decimal.NewFromFloat(0.15), TradeSize: decimal.NewFromInt(1000), PriceImpactBps: decimal.NewFromInt(10), Timestamp: now, Valid: true},
		},
	}
	venueB := &stubVenue{
		name: venue.VenueB,
		quotes: map[venue.Direction]venue.Quote{
			venue.Buy: {Symbol: "GALA", Currency: "U", Price: decimal.NewFromFloat(0.14), TradeSize: decimal.NewFromInt(1000), PriceImpactBps: decimal.NewFromInt(5), Timestamp: now, Valid: true},
		},
	}
	ev := New(venueA, venueB, rate.NewResolver(nil, nil, decimal.NewFromFloat(0.04)), risk.NewGate())

	p := Params{EnableReverse: false, ArbitrageDirection: PriorityBest, Edge: baseEdgeParams()}
	result := ev.Evaluate(context.Background(), tokenSpec(), p, baseEvalContext(now))

	require.True(t, result.Approved)
	require.NotNil(t, result.Winner)
	assert.Equal(t, state.DirectionForward, result.Winner.Direction)
	assert.True(t, result.Winner.Edge.NetEdgeBps.GreaterThan(decimal.NewFromInt(500)))
}

func TestEvaluateRejectsWhenEdgeBelowMinimum(t *testing.T) {
	now := time.Now()
	venueA := &stubVenue{
		name: venue.VenueA,
		quotes: map[venue.Direction]venue.Quote{
			venue.Sell: {Symbol: "GALA", Currency: "U", Price: decimal.NewFromFloat(0.141), TradeSize: decimal.NewFromInt(1000), Timestamp: now, Valid: true},
		},
	}
	venueB := &stubVenue{
		name: venue.VenueB,
		quotes: map[venue.Direction]venue.Quote{
			venue.Buy: {Symbol: "GALA", Currency: "U", Price: decimal.NewFromFloat(0.14), TradeSize: decimal.NewFromInt(1000), Timestamp: now, Valid: true},
		},
	}
	ev := New(venueA, venueB, rate.NewResolver(nil, nil, decimal.NewFromFloat(0.04)), risk.NewGate())

	p := Params{EnableReverse: false, ArbitrageDirection: PriorityBest, Edge: baseEdgeParams()}
	result := ev.Evaluate(context.Background(), tokenSpec(), p, baseEvalContext(now))

	assert.False(t, result.Approved)
	assert.Nil(t, result.Winner)
	assert.NotEmpty(t, result.Reasons)
}

func TestEvaluateSelectsReverseWhenForwardBelowThresholdAndBest(t *testing.T) {
	now := time.Now()
	venueA := &stubVenue{
		name: venue.VenueA,
		quotes: map[venue.Direction]venue.Quote{
			// forward sell leg: thin spread, below min_edge_bps
			venue.Sell: {Symbol: "GALA", Currency: "U", Price: decimal.NewFromFloat(0.1405), TradeSize: decimal.NewFromInt(1000), Timestamp: now, Valid: true},
			// reverse buy leg: wide spread vs venue B's sell below
			venue.Buy: {Symbol: "GALA", Currency: "U", Price: decimal.NewFromFloat(0.10), TradeSize: decimal.NewFromInt(1000), Timestamp: now, Valid: true},
		},
	}
	venueB := &stubVenue{
		name: venue.VenueB,
		quotes: map[venue.Direction]venue.Quote{
			venue.Buy:  {Symbol: "GALA", Currency: "U", Price: decimal.NewFromFloat(0.14), TradeSize: decimal.NewFromInt(1000), Timestamp: now, Valid: true},
			venue.Sell: {Symbol: "GALA", Currency: "U", Price: decimal.NewFromFloat(0.15), TradeSize: decimal.NewFromInt(1000), Timestamp: now, Valid: true},
		},
	}
	ev := New(venueA, venueB, rate.NewResolver(nil, nil, decimal.NewFromFloat(0.04)), risk.NewGate())

	p := Params{EnableReverse: true, ArbitrageDirection: PriorityBest, Edge: baseEdgeParams()}
	result := ev.Evaluate(context.Background(), tokenSpec(), p, baseEvalContext(now))

	require.True(t, result.Approved)
	require.NotNil(t, result.Winner)
	assert.Equal(t, state.DirectionReverse, result.Winner.Direction)
}

func TestEvaluateHonorsExplicitForwardPriorityEvenIfNotBest(t *testing.T) {
	now := time.Now()
	venueA := &stubVenue{
		name: venue.VenueA,
		quotes: map[venue.Direction]venue.Quote{
			venue.Sell: {Symbol: "GALA", Currency: "U", Price: decimal.NewFromFloat(0.15), TradeSize: decimal.NewFromInt(1000), Timestamp: now, Valid: true},
			venue.Buy:  {Symbol: "GALA", Currency: "U", Price: decimal.NewFromFloat(0.10), TradeSize: decimal.NewFromInt(1000), Timestamp: now, Valid: true},
		},
	}
	venueB := &stubVenue{
		name: venue.VenueB,
		quotes: map[venue.Direction]venue.Quote{
			venue.Buy:  {Symbol: "GALA", Currency: "U", Price: decimal.NewFromFloat(0.14), TradeSize: decimal.NewFromInt(1000), Timestamp: now, Valid: true},
			venue.Sell: {Symbol: "GALA", Currency: "U", Price: decimal.NewFromFloat(0.30), TradeSize: decimal.NewFromInt(1000), Timestamp: now, Valid: true},
		},
	}
	ev := New(venueA, venueB, rate.NewResolver(nil, nil, decimal.NewFromFloat(0.04)), risk.NewGate())

	p := Params{EnableReverse: true, ArbitrageDirection: PriorityForward, Edge: baseEdgeParams()}
	result := ev.Evaluate(context.Background(), tokenSpec(), p, baseEvalContext(now))

	require.True(t, result.Approved)
	require.NotNil(t, result.Winner)
	assert.Equal(t, state.DirectionForward, result.Winner.Direction)
}

func TestEvaluateRejectsOnQuoteError(t *testing.T) {
	now := time.Now()
	venueA := &stubVenue{name: venue.VenueA, errs: map[venue.Direction]error{venue.Sell: errors.New("rpc timeout")}}
	venueB := &stubVenue{
		name: venue.VenueB,
		quotes: map[venue.Direction]venue.Quote{
			venue.Buy: {Symbol: "GALA", Currency: "U", Price: decimal.NewFromFloat(0.14), TradeSize: decimal.NewFromInt(1000), Timestamp: now, Valid: true},
		},
	}
	ev := New(venueA, venueB, rate.NewResolver(nil, nil, decimal.NewFromFloat(0.04)), risk.NewGate())

	p := Params{EnableReverse: false, ArbitrageDirection: PriorityBest, Edge: baseEdgeParams()}
	result := ev.Evaluate(context.Background(), tokenSpec(), p, baseEvalContext(now))

	assert.False(t, result.Approved)
	assert.Contains(t, result.Reasons[0], "rpc timeout")
}

func TestEvaluateRejectsOnInvalidQuote(t *testing.T) {
	now := time.Now()
	venueA := &stubVenue{
		name: venue.VenueA,
		quotes: map[venue.Direction]venue.Quote{
			venue.Sell: {Symbol: "GALA", Currency: "U", Price: decimal.Zero, TradeSize: decimal.NewFromInt(1000), Timestamp: now, Valid: false, Error: "quote expired"},
		},
	}
	venueB := &stubVenue{
		name: venue.VenueB,
		quotes: map[venue.Direction]venue.Quote{
			venue.Buy: {Symbol: "GALA", Currency: "U", Price: decimal.NewFromFloat(0.14), TradeSize: decimal.NewFromInt(1000), Timestamp: now, Valid: true},
		},
	}
	ev := New(venueA, venueB, rate.NewResolver(nil, nil, decimal.NewFromFloat(0.04)), risk.NewGate())

	p := Params{EnableReverse: false, ArbitrageDirection: PriorityBest, Edge: baseEdgeParams()}
	result := ev.Evaluate(context.Background(), tokenSpec(), p, baseEvalContext(now))

	assert.False(t, result.Approved)
}

func TestEvaluateRejectsWhenGlobalPauseActive(t *testing.T) {
	now := time.Now()
	venueA := &stubVenue{
		name: venue.VenueA,
		quotes: map[venue.Direction]venue.Quote{
			venue.Sell: {Symbol: "GALA", Currency: "U", Price: decimal.NewFromFloat(0.15), TradeSize: decimal.NewFromInt(1000), Timestamp: now, Valid: true},
		},
	}
	venueB := &stubVenue{
		name: venue.VenueB,
		quotes: map[venue.Direction]venue.Quote{
			venue.Buy: {Symbol: "GALA", Currency: "U", Price: decimal.NewFromFloat(0.14), TradeSize: decimal.NewFromInt(1000), Timestamp: now, Valid: true},
		},
	}
	ev := New(venueA, venueB, rate.NewResolver(nil, nil, decimal.NewFromFloat(0.04)), risk.NewGate())

	ec := baseEvalContext(now)
	ec.Interlocks.GlobalPause = true
	p := Params{EnableReverse: false, ArbitrageDirection: PriorityBest, Edge: baseEdgeParams()}
	result := ev.Evaluate(context.Background(), tokenSpec(), p, ec)

	assert.False(t, result.Approved)
	assert.Contains(t, result.Reasons, "global pause is active")
}

func TestDirectionsToEvaluateDefaultsForwardOnlyWhenReverseDisabled(t *testing.T) {
	dirs := directionsToEvaluate(Params{EnableReverse: false})
	assert.Equal(t, []state.Direction{state.DirectionForward}, dirs)
}

func TestDirectionsToEvaluateIncludesReverseWhenEnabled(t *testing.T) {
	dirs := directionsToEvaluate(Params{EnableReverse: true})
	assert.Equal(t, []state.Direction{state.DirectionForward, state.DirectionReverse}, dirs)
}

func TestDirectionsToEvaluateUsesEnabledStrategiesOnly(t *testing.T) {
	dirs := directionsToEvaluate(Params{Strategies: []StrategyConfig{
		{ID: "a", Direction: state.DirectionForward, Enabled: true},
		{ID: "b", Direction: state.DirectionReverse, Enabled: false},
	}})
	assert.Equal(t, []state.Direction{state.DirectionForward}, dirs)
}

func TestApplySafetyRailCoercesReverseWhenDisabled(t *testing.T) {
	winner := Candidate{Direction: state.DirectionReverse}
	coerced := applySafetyRail(winner, false)
	assert.Equal(t, state.DirectionForward, coerced.Direction)
}

func TestApplySafetyRailLeavesReverseWhenEnabled(t *testing.T) {
	winner := Candidate{Direction: state.DirectionReverse}
	coerced := applySafetyRail(winner, true)
	assert.Equal(t, state.DirectionReverse, coerced.Direction)
}

func TestHighestNetEdgeTiesBreakTowardForward(t *testing.T) {
	tie := decimal.NewFromInt(100)
	approved := []Candidate{
		{Direction: state.DirectionReverse, Edge: edge.Result{NetEdgeBps: tie}},
		{Direction: state.DirectionForward, Edge: edge.Result{NetEdgeBps: tie}},
	}
	best := highestNetEdge(approved)
	assert.Equal(t, state.DirectionForward, best.Direction)
}
