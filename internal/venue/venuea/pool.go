package venuea

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/xchainarb/internal/state"
	"github.com/ajitpratap0/xchainarb/internal/venue"
)

// MockPool simulates a constant-product AMM pool for paper trading and
// tests, mirroring the teacher's MockExchange simulated-fill approach
// (internal/exchange/mock.go): a configurable market-impact model instead
// of a live RPC client.
type MockPool struct {
	mu sync.Mutex

	// Reserves maps symbol -> (reserveToken, reserveCounter) in human units.
	Reserves map[string][2]decimal.Decimal
	Balances map[string][]venue.BalanceRow

	MarketImpactPerUnit decimal.Decimal // impact bps added per unit traded
	txCounter           int
}

func NewMockPool() *MockPool {
	return &MockPool{
		Reserves:            make(map[string][2]decimal.Decimal),
		Balances:            make(map[string][]venue.BalanceRow),
		MarketImpactPerUnit: decimal.NewFromFloat(0.01),
	}
}

// Seed sets a pool's reserves for symbol.
func (p *MockPool) Seed(symbol string, reserveToken, reserveCounter decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Reserves[symbol] = [2]decimal.Decimal{reserveToken, reserveCounter}
}

func (p *MockPool) QuoteExactIn(ctx context.Context, tokenID state.VenueATokenID, amountIn decimal.Decimal) (decimal.Decimal, decimal.Decimal, decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	reserves, ok := p.Reserves[tokenID.Collection]
	if !ok {
		return decimal.Decimal{}, decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("venuea mock pool: no reserves for %s", tokenID.Collection)
	}
	reserveToken, reserveCounter := reserves[0], reserves[1]
	// constant product: out = reserveCounter * in / (reserveToken + in)
	amountOut := reserveCounter.Mul(amountIn).Div(reserveToken.Add(amountIn))
	impact := p.MarketImpactPerUnit.Mul(amountIn)
	return amountOut, impact, reserveToken, nil
}

func (p *MockPool) QuoteExactOut(ctx context.Context, tokenID state.VenueATokenID, desiredOut decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	return decimal.Decimal{}, decimal.Decimal{}, ErrExactOutputUnsupported
}

func (p *MockPool) SwapExactIn(ctx context.Context, tokenID state.VenueATokenID, amountIn, minOut decimal.Decimal, deadline time.Time) (string, error) {
	out, _, _, err := p.QuoteExactIn(ctx, tokenID, amountIn)
	if err != nil {
		return "", err
	}
	if out.LessThan(minOut) {
		return "", fmt.Errorf("venuea mock pool: slippage exceeded, out=%s min=%s", out, minOut)
	}
	p.mu.Lock()
	p.txCounter++
	txID := fmt.Sprintf("venuea-mock-tx-%d", p.txCounter)
	reserves := p.Reserves[tokenID.Collection]
	reserves[0] = reserves[0].Add(amountIn)
	reserves[1] = reserves[1].Sub(out)
	p.Reserves[tokenID.Collection] = reserves
	p.mu.Unlock()
	log.Debug().Str("tx", txID).Str("in", amountIn.String()).Str("out", out.String()).Msg("venuea mock pool: exact-in swap filled")
	return txID, nil
}

func (p *MockPool) SwapExactOut(ctx context.Context, tokenID state.VenueATokenID, desiredOut, maxIn decimal.Decimal, deadline time.Time) (string, error) {
	p.mu.Lock()
	reserves, ok := p.Reserves[tokenID.Collection]
	p.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("venuea mock pool: no reserves for %s", tokenID.Collection)
	}
	reserveToken, reserveCounter := reserves[0], reserves[1]
	if desiredOut.GreaterThanOrEqual(reserveCounter) {
		return "", fmt.Errorf("venuea mock pool: insufficient liquidity for exact-out")
	}
	// in = reserveToken * desiredOut / (reserveCounter - desiredOut)
	amountIn := reserveToken.Mul(desiredOut).Div(reserveCounter.Sub(desiredOut))
	if amountIn.GreaterThan(maxIn) {
		return "", fmt.Errorf("venuea mock pool: exact-out requires more than max_input, in=%s max=%s", amountIn, maxIn)
	}
	p.mu.Lock()
	p.txCounter++
	txID := fmt.Sprintf("venuea-mock-tx-%d", p.txCounter)
	reserves[0] = reserveToken.Add(amountIn)
	reserves[1] = reserveCounter.Sub(desiredOut)
	p.Reserves[tokenID.Collection] = reserves
	p.mu.Unlock()
	return txID, nil
}

func (p *MockPool) Balances(ctx context.Context, owner string) ([]venue.BalanceRow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Balances[owner], nil
}

func (p *MockPool) Canonicalize(tokenID, counterID state.VenueATokenID) bool {
	return tokenID.Collection > counterID.Collection
}
