package venueb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/xchainarb/internal/venue"
)

// MockRouter simulates a router aggregator with a fixed exchange rate per
// mint pair, for paper trading and tests (same spirit as venuea.MockPool
// and the teacher's MockExchange: an in-memory fill simulator standing in
// for the abstracted wire transport).
type MockRouter struct {
	mu sync.Mutex

	Rates     map[string]decimal.Decimal // "inMint|outMint" -> out per in
	ImpactBps decimal.Decimal
	Balances  map[string][]venue.BalanceRow
	txCounter int
}

func NewMockRouter() *MockRouter {
	return &MockRouter{
		Rates:     make(map[string]decimal.Decimal),
		ImpactBps: decimal.NewFromInt(5),
		Balances:  make(map[string][]venue.BalanceRow),
	}
}

func (r *MockRouter) SetRate(inMint, outMint string, rate decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Rates[inMint+"|"+outMint] = rate
}

func (r *MockRouter) QuoteExactIn(ctx context.Context, inMint, outMint string, amountIn decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	r.mu.Lock()
	rate, ok := r.Rates[inMint+"|"+outMint]
	r.mu.Unlock()
	if !ok {
		return decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("venueb mock router: no rate for %s->%s", inMint, outMint)
	}
	return amountIn.Mul(rate), r.ImpactBps, nil
}

func (r *MockRouter) QuoteExactOut(ctx context.Context, inMint, outMint string, desiredOut decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	r.mu.Lock()
	rate, ok := r.Rates[inMint+"|"+outMint]
	r.mu.Unlock()
	if !ok {
		return decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("venueb mock router: no rate for %s->%s", inMint, outMint)
	}
	return desiredOut.Div(rate), r.ImpactBps, nil
}

func (r *MockRouter) SwapExactIn(ctx context.Context, inMint, outMint string, amountIn, minOut decimal.Decimal, deadline time.Time) (string, error) {
	out, _, err := r.QuoteExactIn(ctx, inMint, outMint, amountIn)
	if err != nil {
		return "", err
	}
	if out.LessThan(minOut) {
		return "", fmt.Errorf("venueb mock router: slippage exceeded, out=%s min=%s", out, minOut)
	}
	r.mu.Lock()
	r.txCounter++
	txID := fmt.Sprintf("venueb-mock-tx-%d", r.txCounter)
	r.mu.Unlock()
	return txID, nil
}

func (r *MockRouter) SwapExactOut(ctx context.Context, inMint, outMint string, desiredOut, maxIn decimal.Decimal, deadline time.Time) (string, error) {
	in, _, err := r.QuoteExactOut(ctx, inMint, outMint, desiredOut)
	if err != nil {
		return "", err
	}
	if in.GreaterThan(maxIn) {
		return "", fmt.Errorf("venueb mock router: exceeds max input, in=%s max=%s", in, maxIn)
	}
	r.mu.Lock()
	r.txCounter++
	txID := fmt.Sprintf("venueb-mock-tx-%d", r.txCounter)
	r.mu.Unlock()
	return txID, nil
}

func (r *MockRouter) Balances(ctx context.Context, owner string) ([]venue.BalanceRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Balances[owner], nil
}

// StaticDirectory is a MintDirectory backed by an in-memory map.
type StaticDirectory struct {
	entries map[string][3]string // symbol -> [mint, counterSymbol, counterMint]
}

func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{entries: make(map[string][3]string)}
}

func (d *StaticDirectory) Register(symbol, mint, counterSymbol, counterMint string) {
	d.entries[symbol] = [3]string{mint, counterSymbol, counterMint}
}

func (d *StaticDirectory) MintFor(symbol string) (string, string, string, bool) {
	e, ok := d.entries[symbol]
	if !ok {
		return "", "", "", false
	}
	return e[0], e[1], e[2], true
}
