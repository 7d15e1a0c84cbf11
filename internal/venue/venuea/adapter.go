// Package venuea implements venue.Adapter against venue A, an AMM-style
// chain. The wire protocol (RPC transport, instruction encoding, signing)
// is out of core scope (spec §1) and abstracted behind Transport; Adapter
// owns only the quoting/execution policy spec §4.2 specifies.
package venuea

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/xchainarb/internal/apperrors"
	"github.com/ajitpratap0/xchainarb/internal/decimalx"
	"github.com/ajitpratap0/xchainarb/internal/state"
	"github.com/ajitpratap0/xchainarb/internal/venue"
)

// ErrExactOutputUnsupported signals the pool doesn't offer a native
// exact-output primitive; Adapter falls back to the estimate-then-reprice
// strategy (spec §4.2).
var ErrExactOutputUnsupported = errors.New("venuea: exact-output quoting not supported by this pool")

const minActiveLiquidity = 1000

// Transport is the narrow capability set a concrete pool client must
// implement; Adapter contains all policy, Transport only talks to the
// chain.
type Transport interface {
	// QuoteExactIn returns (amountOut, priceImpactBps, activeLiquidity) for
	// selling amountIn of tokenID's token into its counter asset.
	QuoteExactIn(ctx context.Context, tokenID state.VenueATokenID, amountIn decimal.Decimal) (amountOut, priceImpactBps, activeLiquidity decimal.Decimal, err error)

	// QuoteExactOut returns (amountIn, priceImpactBps) to buy exactly
	// desiredOut of tokenID's token. Returns ErrExactOutputUnsupported if
	// the pool has no native exact-output primitive.
	QuoteExactOut(ctx context.Context, tokenID state.VenueATokenID, desiredOut decimal.Decimal) (amountIn, priceImpactBps decimal.Decimal, err error)

	// SwapExactIn submits a sell of amountIn with a min-output floor.
	SwapExactIn(ctx context.Context, tokenID state.VenueATokenID, amountIn, minOut decimal.Decimal, deadline time.Time) (txID string, err error)

	// SwapExactOut submits a buy of exactly desiredOut with a max-input cap.
	SwapExactOut(ctx context.Context, tokenID state.VenueATokenID, desiredOut, maxIn decimal.Decimal, deadline time.Time) (txID string, err error)

	// Balances returns raw balances for owner, keyed by symbol.
	Balances(ctx context.Context, owner string) ([]venue.BalanceRow, error)

	// Canonicalize reorders (tokenID, counterID) so token0 < token1 under
	// the venue's comparator, returning whether the pair was flipped.
	Canonicalize(tokenID state.VenueATokenID, counterID state.VenueATokenID) (flipped bool)
}

// TokenDirectory resolves a symbol to its venue A descriptor and counter
// asset. Built from the live TokenSpec registry.
type TokenDirectory interface {
	Lookup(symbol string) (id state.VenueATokenID, counterSymbol string, counterID state.VenueATokenID, decimals int32, ok bool)
}

// Adapter implements venue.Adapter against venue A.
type Adapter struct {
	Transport Transport
	Directory TokenDirectory
}

func New(transport Transport, directory TokenDirectory) *Adapter {
	return &Adapter{Transport: transport, Directory: directory}
}

func (a *Adapter) Name() venue.Name { return venue.VenueA }

// Quote implements forward (exact-in sell) and reverse (exact-out buy)
// quoting per spec §4.2.
func (a *Adapter) Quote(ctx context.Context, symbol string, humanSize decimal.Decimal, direction venue.Direction) (venue.Quote, error) {
	id, counterSymbol, counterID, _, ok := a.Directory.Lookup(symbol)
	if !ok {
		return venue.Quote{}, apperrors.New(apperrors.CategoryValidation, "unknown symbol "+symbol, nil)
	}
	a.Transport.Canonicalize(id, counterID)

	now := time.Now()
	base := venue.Quote{
		Symbol:    symbol,
		Venue:     venue.VenueA,
		Direction: direction,
		Currency:  counterSymbol,
		TradeSize: humanSize,
		Timestamp: now,
		ExpiresAt: now.Add(30 * time.Second),
	}

	if direction == venue.Sell {
		out, impact, liquidity, err := a.Transport.QuoteExactIn(ctx, id, humanSize)
		if err != nil {
			return invalidQuote(base, err), err
		}
		if liquidity.IsPositive() && liquidity.LessThan(decimal.NewFromInt(minActiveLiquidity)) {
			err := apperrors.New(apperrors.CategoryBlockchain, "insufficient active liquidity", nil)
			return invalidQuote(base, err), err
		}
		base.Price = out.Div(humanSize)
		base.PriceImpactBps = impact
		if liquidity.IsPositive() {
			base.LiquidityHint = &liquidity
		}
		base.Valid = true
		return base, nil
	}

	// Reverse: exact-output buy. Try the native primitive first.
	in, impact, err := a.Transport.QuoteExactOut(ctx, id, humanSize)
	if errors.Is(err, ErrExactOutputUnsupported) {
		in, impact, err = a.estimateExactOut(ctx, id, humanSize)
	}
	if err != nil {
		return invalidQuote(base, err), err
	}
	base.Price = in.Div(humanSize)
	base.PriceImpactBps = impact
	base.Valid = true
	return base, nil
}

// estimateExactOut implements the fallback of spec §4.2: quote a small
// forward sell, scale to the desired output, add 10% input headroom, then
// re-quote exact-in with that estimated input to derive the actual price.
func (a *Adapter) estimateExactOut(ctx context.Context, id state.VenueATokenID, desired decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	probe := decimal.NewFromInt(1)
	probeOut, _, _, err := a.Transport.QuoteExactIn(ctx, id, probe)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	if !probeOut.IsPositive() {
		return decimal.Decimal{}, decimal.Decimal{}, apperrors.New(apperrors.CategoryBlockchain, "zero-output probe quote", nil)
	}
	estimatedIn := desired.Div(probeOut).Mul(probe)
	withHeadroom := estimatedIn.Mul(decimal.NewFromFloat(1.10))

	actualOut, impact, _, err := a.Transport.QuoteExactIn(ctx, id, withHeadroom)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	if !actualOut.IsPositive() {
		return decimal.Decimal{}, decimal.Decimal{}, apperrors.New(apperrors.CategoryBlockchain, "zero-output reprice quote", nil)
	}
	actualInForDesired := withHeadroom.Mul(desired).Div(actualOut)
	return actualInForDesired, impact, nil
}

// SwapExactIn executes a forward sell with a slippage-protected floor.
func (a *Adapter) SwapExactIn(ctx context.Context, symbol string, humanSize, minOutHuman decimal.Decimal, deadline time.Time) (venue.ExecResult, error) {
	id, _, _, _, ok := a.Directory.Lookup(symbol)
	if !ok {
		return venue.ExecResult{}, apperrors.New(apperrors.CategoryValidation, "unknown symbol "+symbol, nil)
	}
	txID, err := a.Transport.SwapExactIn(ctx, id, humanSize, minOutHuman, deadline)
	if err != nil {
		return venue.ExecResult{Success: false, Error: err}, err
	}
	return venue.ExecResult{Success: true, TxID: txID}, nil
}

// SwapExactOut executes a reverse buy, applying the precision buffer to
// the exact-output amount (spec §4.2): buffer = max(dyn_slippage_bps, 50
// bps), subtract one base-unit tick, round down to token decimals, clamp
// >= 0.
func (a *Adapter) SwapExactOut(ctx context.Context, symbol string, desiredOutHuman, maxInHuman decimal.Decimal, deadline time.Time, slippageBps decimal.Decimal) (venue.ExecResult, error) {
	id, _, _, decimals, ok := a.Directory.Lookup(symbol)
	if !ok {
		return venue.ExecResult{}, apperrors.New(apperrors.CategoryValidation, "unknown symbol "+symbol, nil)
	}

	bufferBps := slippageBps
	if bufferBps.LessThan(decimal.NewFromInt(50)) {
		bufferBps = decimal.NewFromInt(50)
	}
	buffer := decimalx.BpsOf(desiredOutHuman, bufferBps)
	oneTick := decimal.New(1, -decimals)
	buffered := desiredOutHuman.Sub(buffer).Sub(oneTick)
	buffered = decimalx.RoundDownExactOutputBuffer(buffered, decimals)

	txID, err := a.Transport.SwapExactOut(ctx, id, buffered, maxInHuman, deadline)
	if err != nil {
		return venue.ExecResult{Success: false, Error: err}, err
	}
	return venue.ExecResult{Success: true, TxID: txID}, nil
}

func (a *Adapter) Balances(ctx context.Context, owner string) ([]venue.BalanceRow, error) {
	return a.Transport.Balances(ctx, owner)
}

func invalidQuote(base venue.Quote, err error) venue.Quote {
	base.Valid = false
	base.Error = err.Error()
	return base
}
