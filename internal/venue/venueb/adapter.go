// Package venueb implements venue.Adapter against venue B, a router
// aggregator. As with venuea, the wire protocol is abstracted behind
// Transport (spec §1); Adapter owns only the quoting/execution policy.
package venueb

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/xchainarb/internal/apperrors"
	"github.com/ajitpratap0/xchainarb/internal/venue"
)

// Transport is the narrow capability set a concrete router client must
// implement.
type Transport interface {
	// QuoteExactIn quotes selling amountIn of inMint for outMint.
	QuoteExactIn(ctx context.Context, inMint, outMint string, amountIn decimal.Decimal) (amountOut, priceImpactBps decimal.Decimal, err error)
	// QuoteExactOut quotes buying exactly desiredOut of outMint with inMint.
	QuoteExactOut(ctx context.Context, inMint, outMint string, desiredOut decimal.Decimal) (amountIn, priceImpactBps decimal.Decimal, err error)
	SwapExactIn(ctx context.Context, inMint, outMint string, amountIn, minOut decimal.Decimal, deadline time.Time) (txID string, err error)
	SwapExactOut(ctx context.Context, inMint, outMint string, desiredOut, maxIn decimal.Decimal, deadline time.Time) (txID string, err error)
	Balances(ctx context.Context, owner string) ([]venue.BalanceRow, error)
}

// MintDirectory resolves a symbol to its venue B mint-like identifier.
type MintDirectory interface {
	MintFor(symbol string) (mint string, counterSymbol string, counterMint string, ok bool)
}

// Adapter implements venue.Adapter against venue B.
type Adapter struct {
	Transport Transport
	Directory MintDirectory
}

func New(transport Transport, directory MintDirectory) *Adapter {
	return &Adapter{Transport: transport, Directory: directory}
}

func (a *Adapter) Name() venue.Name { return venue.VenueB }

// Quote implements forward (exact-in token->U) and reverse (exact-out
// U->token) quoting, including the same-mint degenerate case (spec §4.2:
// in_mint == out_mint returns a 1:1 quote with zero impact).
func (a *Adapter) Quote(ctx context.Context, symbol string, humanSize decimal.Decimal, direction venue.Direction) (venue.Quote, error) {
	mint, counterSymbol, counterMint, ok := a.Directory.MintFor(symbol)
	if !ok {
		return venue.Quote{}, apperrors.New(apperrors.CategoryValidation, "unknown symbol "+symbol, nil)
	}

	now := time.Now()
	base := venue.Quote{
		Symbol:    symbol,
		Venue:     venue.VenueB,
		Direction: direction,
		Currency:  counterSymbol,
		TradeSize: humanSize,
		Timestamp: now,
		ExpiresAt: now.Add(30 * time.Second),
	}

	if mint == counterMint {
		base.Price = decimal.NewFromInt(1)
		base.PriceImpactBps = decimal.Zero
		base.Valid = true
		return base, nil
	}

	if direction == venue.Sell {
		out, impact, err := a.Transport.QuoteExactIn(ctx, mint, counterMint, humanSize)
		if err != nil {
			return invalidQuote(base, err), err
		}
		base.Price = out.Div(humanSize)
		base.PriceImpactBps = impact
		base.Valid = true
		return base, nil
	}

	in, impact, err := a.Transport.QuoteExactOut(ctx, counterMint, mint, humanSize)
	if err != nil {
		return invalidQuote(base, err), err
	}
	base.Price = in.Div(humanSize)
	base.PriceImpactBps = impact
	base.Valid = true
	return base, nil
}

func (a *Adapter) SwapExactIn(ctx context.Context, symbol string, humanSize, minOutHuman decimal.Decimal, deadline time.Time) (venue.ExecResult, error) {
	mint, _, counterMint, ok := a.Directory.MintFor(symbol)
	if !ok {
		return venue.ExecResult{}, apperrors.New(apperrors.CategoryValidation, "unknown symbol "+symbol, nil)
	}
	txID, err := a.Transport.SwapExactIn(ctx, mint, counterMint, humanSize, minOutHuman, deadline)
	if err != nil {
		return venue.ExecResult{Success: false, Error: err}, err
	}
	return venue.ExecResult{Success: true, TxID: txID}, nil
}

// SwapExactOut executes a reverse buy against venue B's router. Venue B's
// aggregator takes maxInHuman as its own slippage ceiling, so slippageBps
// (venue A's exact-output precision buffer input) is unused here.
func (a *Adapter) SwapExactOut(ctx context.Context, symbol string, desiredOutHuman, maxInHuman decimal.Decimal, deadline time.Time, slippageBps decimal.Decimal) (venue.ExecResult, error) {
	mint, _, counterMint, ok := a.Directory.MintFor(symbol)
	if !ok {
		return venue.ExecResult{}, apperrors.New(apperrors.CategoryValidation, "unknown symbol "+symbol, nil)
	}
	txID, err := a.Transport.SwapExactOut(ctx, counterMint, mint, desiredOutHuman, maxInHuman, deadline)
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
