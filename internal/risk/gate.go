package risk

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/xchainarb/internal/edge"
	"github.com/ajitpratap0/xchainarb/internal/state"
)

// kellyAdvisoryBreaches counts Kelly-sizing advisory violations, following
// circuit_breaker.go's promauto-registered instrument pattern. It is purely
// observational: the advisory never blocks a candidate (SPEC_FULL §5.5).
var kellyAdvisoryBreaches = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "risk_gate_kelly_advisory_breaches_total",
		Help: "Count of candidates whose proposed notional exceeded the Kelly-implied sizing cap.",
	},
)

// Interlocks are the environment-derived, read-once-per-tick flags that
// gate every candidate regardless of its edge (spec §4.5, §4.8).
type Interlocks struct {
	GlobalPause   bool
	InTradeWindow bool
}

// BalanceView is the slice of the last BalanceChecker snapshot RiskGate
// needs: whether required funds are present on both chains, and whether
// the token carries a per-token pause.
type BalanceView struct {
	SufficientBothChains bool
	TokenPaused          bool
}

// Decision is RiskGate's output (spec §4.5): a structured decision, not an
// error — rejections are routine and never logged as failures.
type Decision struct {
	Proceed bool
	Reasons []string
	Edge    edge.Result
	// Advisories holds non-blocking observations, such as the Kelly-sizing
	// advisory: they never affect Proceed.
	Advisories []string
}

// Gate evaluates a candidate for approval.
type Gate struct {
	StaleWindow time.Duration // default 30s
	calculator  *Calculator
}

// NewGate returns a Gate with the spec's default 30s freshness window and
// the teacher-derived Kelly advisory enabled.
func NewGate() *Gate {
	return &Gate{
		StaleWindow: 30 * time.Second,
		calculator:  NewCalculator(),
	}
}

// Evaluate applies the threshold, impact, freshness, cooldown, and balance
// checks of spec §4.5. quoteTimestamps are the timestamps of the quotes
// that fed candidate's edge result; notional and capital feed the optional
// Kelly-sizing advisory (SPEC_FULL §5.5): it never blocks on its own — a
// breach is recorded in d.Advisories and the kellyAdvisoryBreaches metric,
// never in d.Reasons, so it cannot affect Proceed.
func (g *Gate) Evaluate(
	candidate edge.Result,
	now time.Time,
	quoteTimestamps []time.Time,
	cooldown state.Cooldown,
	hasCooldown bool,
	balance BalanceView,
	interlocks Interlocks,
	perf state.PerformanceMetrics,
	notional decimal.Decimal,
	capital decimal.Decimal,
) Decision {
	d := Decision{Edge: candidate}

	if !candidate.Profitable {
		d.Reasons = append(d.Reasons, candidate.Invalidations...)
	}

	oldest := now
	for _, ts := range quoteTimestamps {
		if ts.Before(oldest) {
			oldest = ts
		}
	}
	if len(quoteTimestamps) > 0 && now.Sub(oldest) > g.StaleWindow {
		d.Reasons = append(d.Reasons, "quotes are stale")
	}

	if hasCooldown && cooldown.Active(now) {
		d.Reasons = append(d.Reasons, "symbol is in cooldown")
	}

	if balance.TokenPaused {
		d.Reasons = append(d.Reasons, "token is paused")
	}
	if !balance.SufficientBothChains {
		d.Reasons = append(d.Reasons, "insufficient balance on one or both chains")
	}

	if interlocks.GlobalPause {
		d.Reasons = append(d.Reasons, "global pause is active")
	}
	if !interlocks.InTradeWindow {
		d.Reasons = append(d.Reasons, "outside configured trade window")
	}

	if g.calculator != nil && capital.IsPositive() {
		sizing := g.calculator.KellyCap(perf, capital)
		if sizing.Sufficient && notional.GreaterThan(sizing.CapNotional) {
			kellyAdvisoryBreaches.Inc()
			d.Advisories = append(d.Advisories, "proposed notional exceeds Kelly-implied sizing cap")
		}
	}

	d.Proceed = len(d.Reasons) == 0
	return d
}
