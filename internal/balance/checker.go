// Package balance produces per-chain inventory snapshots and per-token
// pause flags, rate-limited to avoid storming the underlying RPCs
// (spec §4.6).
package balance

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	xrate "golang.org/x/time/rate"

	"github.com/ajitpratap0/xchainarb/internal/state"
	"github.com/ajitpratap0/xchainarb/internal/venue"
)

// USDPricer supplies spot USD prices for counter-assets (spec §1: USD
// price sourcing is an external collaborator, same interface shape as
// internal/rate.USDPricer).
type USDPricer interface {
	USDPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// PauseFlag is the per-token outcome of the inventory-low rule (spec §4.6).
type PauseFlag struct {
	Paused   bool   // a hard pause: do not trade this token at all
	SkipSell bool   // inventory-low: skip the sell leg, still allow the buy leg
	Reason   string
}

// Checker produces InventorySnapshots and pause flags under a cooldown
// that bounds how often it hits venue RPCs.
type Checker struct {
	VenueA venue.Adapter
	VenueB venue.Adapter
	Pricer USDPricer
	UUSD   decimal.Decimal

	mu         sync.Mutex
	limiter    *xrate.Limiter
	lastA      state.InventorySnapshot
	lastB      state.InventorySnapshot
	lastPulled time.Time
	hasCached  bool
}

// NewChecker builds a Checker with the spec's default 60s RPC cooldown.
func NewChecker(venueA, venueB venue.Adapter, pricer USDPricer, uUSD decimal.Decimal) *Checker {
	return &Checker{
		VenueA:  venueA,
		VenueB:  venueB,
		Pricer:  pricer,
		UUSD:    uUSD,
		limiter: xrate.NewLimiter(xrate.Every(60*time.Second), 1),
	}
}

// Refresh returns inventory snapshots for both chains. If a cached read is
// within the cooldown window and force is false, the cached snapshots are
// returned unchanged (spec §8: "two consecutive balance reads within
// balance_check_cooldown return identical snapshots").
func (c *Checker) Refresh(ctx context.Context, tokens []state.TokenSpec, ownerA, ownerB string, force bool) (state.InventorySnapshot, state.InventorySnapshot, error) {
	c.mu.Lock()
	if !force && c.hasCached && c.limiter.Tokens() < 1 {
		a, b := c.lastA, c.lastB
		c.mu.Unlock()
		return a, b, nil
	}
	c.mu.Unlock()

	if force {
		// A forced read skips the wait but still starts a new cooldown window.
		c.limiter.Allow()
	} else {
		_ = c.limiter.Wait(ctx)
	}

	snapA, err := c.fetchVenueSnapshot(ctx, c.VenueA, ownerA, tokens, func(t state.TokenSpec) string { return t.Symbol })
	if err != nil {
		return state.InventorySnapshot{}, state.InventorySnapshot{}, err
	}
	snapB, err := c.fetchVenueSnapshot(ctx, c.VenueB, ownerB, tokens, func(t state.TokenSpec) string { return t.Symbol })
	if err != nil {
		return state.InventorySnapshot{}, state.InventorySnapshot{}, err
	}

	c.mu.Lock()
	c.lastA, c.lastB = snapA, snapB
	c.lastPulled = time.Now()
	c.hasCached = true
	c.mu.Unlock()

	return snapA, snapB, nil
}

func (c *Checker) fetchVenueSnapshot(ctx context.Context, adapter venue.Adapter, owner string, tokens []state.TokenSpec, symbolFor func(state.TokenSpec) string) (state.InventorySnapshot, error) {
	snap := state.InventorySnapshot{
		VenueA: make(map[string]state.Balance),
		VenueB: make(map[string]state.Balance),
	}
	if adapter == nil {
		return snap, nil
	}

	rows, err := adapter.Balances(ctx, owner)
	if err != nil {
		log.Warn().Err(err).Str("venue", string(adapter.Name())).Msg("balance fetch failed")
		return snap, err
	}

	decimalsBySymbol := make(map[string]int32, len(tokens))
	for _, t := range tokens {
		decimalsBySymbol[t.Symbol] = t.Decimals
	}

	target := snap.VenueA
	if adapter.Name() == venue.VenueB {
		target = snap.VenueB
	}

	totalUSD := decimal.Zero
	now := time.Now()
	for _, row := range rows {
		decimals := decimalsBySymbol[row.Descriptor]
		human := row.RawAmount
		if decimals > 0 {
			human = row.RawAmount.Shift(-decimals)
		}
		usd := c.usdValue(ctx, row.Descriptor, human)
		totalUSD = totalUSD.Add(usd)
		target[row.Descriptor] = state.Balance{
			RawBalance:   row.RawAmount,
			HumanBalance: human,
			Decimals:     decimals,
			USDValue:     usd,
			LastUpdated:  now,
		}
	}

	snap.LastUpdated = now
	if adapter.Name() == venue.VenueA {
		snap.ChainTotalUSDA = totalUSD
	} else {
		snap.ChainTotalUSDB = totalUSD
	}
	return snap, nil
}

func (c *Checker) usdValue(ctx context.Context, symbol string, human decimal.Decimal) decimal.Decimal {
	if symbol == "U" {
		if c.UUSD.IsZero() {
			return decimal.Zero
		}
		return human.Mul(c.UUSD)
	}
	if c.Pricer == nil {
		return decimal.Zero
	}
	price, err := c.Pricer.USDPrice(ctx, symbol)
	if err != nil || !price.IsPositive() {
		return decimal.Zero
	}
	return human.Mul(price)
}

// EvaluatePauses applies the inventory-low rule (spec §4.6): when a token's
// inventory_target is set and total held across both venues is below 80%
// of target, the sell leg is marked skip rather than the token paused
// outright. Tokens with no inventory_target never trigger this rule
// (spec §8 boundary behavior).
func EvaluatePauses(tokens []state.TokenSpec, snapA, snapB state.InventorySnapshot) map[string]PauseFlag {
	flags := make(map[string]PauseFlag, len(tokens))
	combined := state.InventorySnapshot{VenueA: snapA.VenueA, VenueB: snapB.VenueB}
	threshold := decimal.NewFromFloat(0.8)

	for _, t := range tokens {
		if t.InventoryTarget == nil || t.InventoryTarget.IsZero() {
			flags[t.Symbol] = PauseFlag{}
			continue
		}
		total := combined.TotalHuman(t.Symbol)
		low := total.LessThan(t.InventoryTarget.Mul(threshold))
		if low {
			flags[t.Symbol] = PauseFlag{SkipSell: true, Reason: "inventory below 80% of target"}
		} else {
			flags[t.Symbol] = PauseFlag{}
		}
	}
	return flags
}

// RequiredFundsSufficient checks sell-side sufficiency for a candidate
// trade: the venue selling symbol must hold at least tradeSize of it.
// Buy-side sufficiency (counter-asset funding) is the caller's
// responsibility once it has resolved a live quote; this check covers
// only the balance this package owns a snapshot of.
func RequiredFundsSufficient(snap state.InventorySnapshot, venueID state.VenueID, symbol string, tradeSize decimal.Decimal) bool {
	var balances map[string]state.Balance
	if venueID == state.VenueA {
		balances = snap.VenueA
	} else {
		balances = snap.VenueB
	}
	b, ok := balances[symbol]
	if !ok {
		return false
	}
	return b.HumanBalance.GreaterThanOrEqual(tradeSize)
}
