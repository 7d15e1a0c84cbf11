package venueb

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/xchainarb/internal/venue"
)

func setupAdapter() (*Adapter, *MockRouter) {
	router := NewMockRouter()
	router.SetRate("GALA_MINT", "U_MINT", decimal.NewFromFloat(0.00005))
	router.SetRate("U_MINT", "GALA_MINT", decimal.NewFromInt(2800))

	dir := NewStaticDirectory()
	dir.Register("GALA", "GALA_MINT", "U", "U_MINT")

	return New(router, dir), router
}

func TestQuoteForwardSell(t *testing.T) {
	adapter, _ := setupAdapter()
	q, err := adapter.Quote(context.Background(), "GALA", decimal.NewFromInt(1000), venue.Sell)
	require.NoError(t, err)
	assert.True(t, q.Valid)
	assert.True(t, q.Price.Equal(decimal.NewFromFloat(0.00005)))
}

func TestQuoteReverseBuy(t *testing.T) {
	adapter, _ := setupAdapter()
	q, err := adapter.Quote(context.Background(), "GALA", decimal.NewFromInt(1000), venue.Buy)
	require.NoError(t, err)
	assert.True(t, q.Valid)
}

func TestQuoteSameMintIsOneToOneZeroImpact(t *testing.T) {
	router := NewMockRouter()
	dir := NewStaticDirectory()
	dir.Register("U", "U_MINT", "U", "U_MINT")
	adapter := New(router, dir)

	q, err := adapter.Quote(context.Background(), "U", decimal.NewFromInt(100), venue.Sell)
	require.NoError(t, err)
	assert.True(t, q.Price.Equal(decimal.NewFromInt(1)))
	assert.True(t, q.PriceImpactBps.IsZero())
}

func TestQuoteRejectsUnknownSymbol(t *testing.T) {
	adapter, _ := setupAdapter()
	_, err := adapter.Quote(context.Background(), "NOPE", decimal.NewFromInt(1), venue.Sell)
	assert.Error(t, err)
}

func TestSwapExactInRejectsSlippage(t *testing.T) {
	adapter, _ := setupAdapter()
	deadline := time.Now().Add(time.Minute)
	_, err := adapter.SwapExactIn(context.Background(), "GALA", decimal.NewFromInt(1000), decimal.NewFromInt(1_000_000), deadline)
	assert.Error(t, err)
}

func TestSwapExactOutSucceeds(t *testing.T) {
	adapter, _ := setupAdapter()
	deadline := time.Now().Add(time.Minute)
	result, err := adapter.SwapExactOut(context.Background(), "GALA", decimal.NewFromInt(1000), decimal.NewFromInt(1), deadline, decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, result.Success)
}
