// Package evaluator orchestrates one evaluation cycle for a single token:
// it fans out quotes to both venues for each candidate direction, computes
// net edge, asks RiskGate for approval, and selects a winner per the
// configured arbitrage_direction policy (spec §4.7). Concurrency here is
// ad hoc goroutines + sync.WaitGroup rather than an errgroup dependency,
// matching the teacher's style elsewhere in the codebase.
package evaluator

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/xchainarb/internal/edge"
	"github.com/ajitpratap0/xchainarb/internal/rate"
	"github.com/ajitpratap0/xchainarb/internal/risk"
	"github.com/ajitpratap0/xchainarb/internal/state"
	"github.com/ajitpratap0/xchainarb/internal/venue"
)

// cycleDuration tracks how long one full Evaluate call takes per symbol,
// following internal/risk/circuit_breaker.go's promauto-registered
// instrument pattern.
var cycleDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "evaluator_cycle_duration_seconds",
		Help:    "Duration of one token evaluation cycle (quote, score, select).",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"symbol"},
)

// Priority selects how Evaluate resolves between approved candidates.
type Priority string

const (
	PriorityForward Priority = "forward"
	PriorityReverse Priority = "reverse"
	PriorityBest    Priority = "best"
)

// StrategyConfig names an independent candidate beyond the default
// forward/reverse pair (spec §4.7 step 1). Only forward/reverse op pairs
// are supported: venue.Adapter quotes a token against the counter its
// TokenDirectory resolves, so a strategy cannot route to an arbitrary
// counter asset without changing that resolution, which is out of scope
// here (see DESIGN.md).
type StrategyConfig struct {
	ID         string
	Direction  state.Direction
	Enabled    bool
	MinEdgeBps decimal.Decimal
	Priority   Priority
}

// Params bundles the per-evaluation policy knobs (spec.md §6 "Trading").
type Params struct {
	EnableReverse      bool
	ArbitrageDirection Priority
	Strategies         []StrategyConfig // empty: evaluate {forward, reverse} per EnableReverse
	Edge               edge.Params
}

// Candidate is one evaluated direction.
type Candidate struct {
	Direction state.Direction
	QuoteA    venue.Quote
	QuoteB    venue.Quote
	Edge      edge.Result
	Decision  risk.Decision
	Err       error // set when quoting/rate resolution failed before a Decision could be formed
}

// Result is the outcome of one full token evaluation.
type Result struct {
	Approved   bool
	Winner     *Candidate
	Candidates []Candidate
	Reasons    []string // aggregated rejection reasons when nothing is approved
}

// Evaluator evaluates one token per cycle against both venues.
type Evaluator struct {
	VenueA venue.Adapter
	VenueB venue.Adapter
	Rate   *rate.Resolver
	Gate   *risk.Gate
}

// New builds an Evaluator from its collaborators.
func New(venueA, venueB venue.Adapter, rateResolver *rate.Resolver, gate *risk.Gate) *Evaluator {
	return &Evaluator{VenueA: venueA, VenueB: venueB, Rate: rateResolver, Gate: gate}
}

// EvalContext is the live state Evaluate needs beyond the token spec and
// policy params; it is assembled by the caller once per tick from
// state.Store, balance.Checker, and the environment interlocks.
type EvalContext struct {
	Now         time.Time
	Cooldown    state.Cooldown
	HasCooldown bool
	Balance     risk.BalanceView
	Interlocks  risk.Interlocks
	Perf        state.PerformanceMetrics
	// Capital is the current cross-chain USD inventory, fed to RiskGate's
	// Kelly-sizing advisory. Live balance data, so it is read fresh each
	// tick (internal/scheduler sums balance.Checker's last snapshot) rather
	// than fixed at Params construction time like the other policy knobs.
	Capital decimal.Decimal
}

// Evaluate runs the full per-token cycle (spec §4.7).
func (e *Evaluator) Evaluate(ctx context.Context, spec state.TokenSpec, p Params, ec EvalContext) Result {
	start := time.Now()
	defer func() { cycleDuration.WithLabelValues(spec.Symbol).Observe(time.Since(start).Seconds()) }()

	directions := directionsToEvaluate(p)
	if len(directions) == 0 {
		return Result{Reasons: []string{"no directions configured for evaluation"}}
	}

	candidates := e.quoteAndScore(ctx, spec, p, ec, directions)
	return e.selectWinner(candidates, p)
}

// directionsToEvaluate implements spec §4.7 step 1: strategies when
// configured, otherwise {forward, reverse-if-enabled}.
func directionsToEvaluate(p Params) []state.Direction {
	if len(p.Strategies) > 0 {
		var dirs []state.Direction
		for _, s := range p.Strategies {
			if s.Enabled {
				dirs = append(dirs, s.Direction)
			}
		}
		return dirs
	}
	dirs := []state.Direction{state.DirectionForward}
	if p.EnableReverse {
		dirs = append(dirs, state.DirectionReverse)
	}
	return dirs
}

// quoteAndScore evaluates every direction concurrently, one goroutine per
// direction (spec §4.7 step 2a); each goroutine quotes and then scores its
// own candidate.
func (e *Evaluator) quoteAndScore(ctx context.Context, spec state.TokenSpec, p Params, ec EvalContext, directions []state.Direction) []Candidate {
	candidates := make([]Candidate, len(directions))
	var wg sync.WaitGroup
	for i, dir := range directions {
		wg.Add(1)
		go func(i int, dir state.Direction) {
			defer wg.Done()
			candidates[i] = e.scoreCandidate(ctx, spec, dir, p, ec)
		}(i, dir)
	}
	wg.Wait()
	return candidates
}

// scoreCandidate quotes both venues in parallel for one direction, then
// validates, resolves rate, computes edge, and asks RiskGate (spec §4.7
// step 2b-e).
func (e *Evaluator) scoreCandidate(ctx context.Context, spec state.TokenSpec, dir state.Direction, p Params, ec EvalContext) Candidate {
	sellVenue, buyVenue := venueOrder(dir, e.VenueA, e.VenueB)

	var quoteSell, quoteBuy venue.Quote
	var errSell, errBuy error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		quoteSell, errSell = sellVenue.Quote(ctx, spec.Symbol, spec.TradeSize, venue.Sell)
	}()
	go func() {
		defer wg.Done()
		quoteBuy, errBuy = buyVenue.Quote(ctx, spec.Symbol, spec.TradeSize, venue.Buy)
	}()
	wg.Wait()

	c := Candidate{Direction: dir}
	if dir == state.DirectionForward {
		c.QuoteA, c.QuoteB = quoteSell, quoteBuy
	} else {
		c.QuoteA, c.QuoteB = quoteBuy, quoteSell
	}

	if errSell != nil {
		c.Err = errSell
		return c
	}
	if errBuy != nil {
		c.Err = errBuy
		return c
	}

	// Q3 (exact-output price == input/desired) is enforced where it's
	// actually checkable: at adapter construction, where Price is derived
	// directly as in.Div(desired). TradeSize means "amount sold" on a
	// forward quote but "desired output" on a reverse buy quote, so this
	// generic validation step only re-checks Q1/Q2 here.
	slippageTol := p.Edge.MaxImpactBps.Div(decimal.NewFromInt(10000))
	if err := quoteSell.Validate(slippageTol, false, decimal.Zero); err != nil {
		c.Err = err
		return c
	}
	if err := quoteBuy.Validate(slippageTol, false, decimal.Zero); err != nil {
		c.Err = err
		return c
	}

	sellRate, ok := e.Rate.Resolve(ctx, quoteSell.Currency, quoteSell.TradeSize)
	if !ok {
		c.Err = rate.ErrUnresolvable(quoteSell.Currency)
		return c
	}
	buyRate, ok := e.Rate.Resolve(ctx, quoteBuy.Currency, quoteBuy.TradeSize)
	if !ok {
		c.Err = rate.ErrUnresolvable(quoteBuy.Currency)
		return c
	}

	c.Edge = edge.Calculate(dir, quoteSell, quoteBuy, sellRate.Rate, buyRate.Rate, p.Edge)

	notional := c.Edge.Income
	if notional.IsZero() {
		notional = c.Edge.Expense
	}
	c.Decision = e.Gate.Evaluate(
		c.Edge,
		ec.Now,
		[]time.Time{quoteSell.Timestamp, quoteBuy.Timestamp},
		ec.Cooldown,
		ec.HasCooldown,
		ec.Balance,
		ec.Interlocks,
		ec.Perf,
		notional,
		ec.Capital,
	)
	return c
}

// venueOrder returns (sellAdapter, buyAdapter) for dir: forward sells on A
// and buys on B; reverse is the mirror (spec intro, §3 glossary).
func venueOrder(dir state.Direction, venueA, venueB venue.Adapter) (sell, buy venue.Adapter) {
	if dir == state.DirectionForward {
		return venueA, venueB
	}
	return venueB, venueA
}

// selectWinner implements spec §4.7 steps 3-4 plus the safety rail.
func (e *Evaluator) selectWinner(candidates []Candidate, p Params) Result {
	res := Result{Candidates: candidates}

	var approved []Candidate
	for _, c := range candidates {
		if c.Err != nil {
			res.Reasons = append(res.Reasons, c.Err.Error())
			continue
		}
		if c.Decision.Proceed {
			approved = append(approved, c)
		} else {
			res.Reasons = append(res.Reasons, c.Decision.Reasons...)
		}
	}

	if len(approved) == 0 {
		res.Approved = false
		return res
	}

	var winner Candidate
	switch {
	case len(p.Strategies) > 0:
		winner = highestNetEdge(approved)
	case p.ArbitrageDirection == PriorityForward:
		winner, res.Approved = pickDirection(approved, state.DirectionForward)
		if !res.Approved {
			return res
		}
	case p.ArbitrageDirection == PriorityReverse:
		winner, res.Approved = pickDirection(approved, state.DirectionReverse)
		if !res.Approved {
			return res
		}
	default: // best
		winner = highestNetEdge(approved)
	}

	winner = applySafetyRail(winner, p.EnableReverse)
	res.Approved = true
	res.Winner = &winner
	return res
}

// pickDirection returns the approved candidate matching dir, if any
// (spec §4.7 step 3, "if priority is forward/reverse, return that one
// even if only one is approved").
func pickDirection(approved []Candidate, dir state.Direction) (Candidate, bool) {
	for _, c := range approved {
		if c.Direction == dir {
			return c, true
		}
	}
	return Candidate{}, false
}

// highestNetEdge picks the approved candidate with the higher net_edge_bps,
// tie-breaking toward forward (spec §4.7 step 3).
func highestNetEdge(approved []Candidate) Candidate {
	best := approved[0]
	for _, c := range approved[1:] {
		if c.Edge.NetEdgeBps.GreaterThan(best.Edge.NetEdgeBps) {
			best = c
			continue
		}
		if c.Edge.NetEdgeBps.Equal(best.Edge.NetEdgeBps) && c.Direction == state.DirectionForward {
			best = c
		}
	}
	return best
}

// applySafetyRail coerces a reverse winner to forward when reverse is
// disabled in config, logging a critical inconsistency (spec §4.7 final
// line). This should be unreachable in practice: directionsToEvaluate
// never proposes reverse when EnableReverse is false.
func applySafetyRail(winner Candidate, enableReverse bool) Candidate {
	if winner.Direction == state.DirectionReverse && !enableReverse {
		log.Error().
			Str("symbol", winner.QuoteA.Symbol).
			Msg("evaluator: reverse candidate selected while reverse is disabled, coercing to forward")
		winner.Direction = state.DirectionForward
	}
	return winner
}
