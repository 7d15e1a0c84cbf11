// Package rate converts any quote counter-currency into the accounting
// unit U, trying a direct/pool/USD-anchor waterfall (spec §4.3).
package rate

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/xchainarb/internal/apperrors"
	"github.com/ajitpratap0/xchainarb/internal/venue"
)

// AccountingUnit is the symbol treated as the accounting unit U.
const AccountingUnit = "U"

// Source identifies how a Result's rate was derived.
type Source string

const (
	SourceDirect Source = "direct"
	SourcePool   Source = "pool"
	SourceUSD    Source = "usd"
)

// Result is a resolved conversion rate: units of U per unit of C.
type Result struct {
	Rate   decimal.Decimal
	Source Source
}

// USDPricer supplies spot USD prices for symbols outside venue A's pools
// (spec §1: "USD-price sourcing" is an external collaborator behind this
// narrow interface).
type USDPricer interface {
	USDPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Resolver implements the direct/pool/usd waterfall of spec §4.3.
type Resolver struct {
	VenueA  venue.Adapter
	Pricer  USDPricer
	UUSD    decimal.Decimal // U's own USD price, for the usd-anchor fallback
	poolRef decimal.Decimal // size used for the reference A->U pool quote
}

// NewResolver builds a Resolver. uUSD defaults to 0.01 (spec §4.4's
// documented degraded-mode default) when zero.
func NewResolver(venueA venue.Adapter, pricer USDPricer, uUSD decimal.Decimal) *Resolver {
	if uUSD.IsZero() {
		uUSD = decimal.NewFromFloat(0.01)
	}
	return &Resolver{
		VenueA:  venueA,
		Pricer:  pricer,
		UUSD:    uUSD,
		poolRef: decimal.NewFromInt(1),
	}
}

// Resolve returns units of U per unit of currency, for a quote of the given
// size. Invariant R1: never returns a zero, NaN, or negative rate on
// success — a failure returns a zero Result and false, and lets the caller
// (the edge calculator) decide how to proceed.
func (r *Resolver) Resolve(ctx context.Context, currency string, size decimal.Decimal) (Result, bool) {
	if currency == AccountingUnit {
		return Result{Rate: decimal.NewFromInt(1), Source: SourceDirect}, true
	}

	if r.VenueA != nil {
		if res, ok := r.poolRate(ctx, currency, size); ok {
			return res, true
		}
	}

	return r.usdAnchorRate(ctx, currency)
}

func (r *Resolver) poolRate(ctx context.Context, currency string, size decimal.Decimal) (Result, bool) {
	q, err := r.VenueA.Quote(ctx, currency, size, venue.Sell)
	if err != nil {
		log.Debug().Err(err).Str("currency", currency).Msg("rate resolver: pool quote failed, falling back")
		return Result{}, false
	}
	if !q.Valid || !q.Price.IsPositive() {
		return Result{}, false
	}
	return Result{Rate: q.Price, Source: SourcePool}, true
}

func (r *Resolver) usdAnchorRate(ctx context.Context, currency string) (Result, bool) {
	if r.Pricer == nil || r.UUSD.IsZero() {
		return Result{}, false
	}
	cUSD, err := r.Pricer.USDPrice(ctx, currency)
	if err != nil || !cUSD.IsPositive() {
		return Result{}, false
	}
	rate := cUSD.Div(r.UUSD)
	if !rate.IsPositive() {
		return Result{}, false
	}
	return Result{Rate: rate, Source: SourceUSD}, true
}

// ErrUnresolvable is returned by callers that need an error rather than a
// boolean when resolution fails entirely.
func ErrUnresolvable(currency string) error {
	return apperrors.New(apperrors.CategoryExternalAPI, "no rate source resolved for "+currency, nil)
}
