package coordinator

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func clearInterlockEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PAUSE", "TRADE_WINDOW_START", "TRADE_WINDOW_END", "MAX_NOTIONAL_PER_TRADE"} {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}

func TestReadInterlocksDefaultsUnrestricted(t *testing.T) {
	clearInterlockEnv(t)
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	got := ReadInterlocks(now, decimal.Zero)

	assert.False(t, got.GlobalPause)
	assert.True(t, got.InTradeWindow)
	assert.True(t, got.MaxNotionalPerTradeUSD.IsZero())
}

func TestReadInterlocksHonorsPause(t *testing.T) {
	clearInterlockEnv(t)
	os.Setenv("PAUSE", "true")

	got := ReadInterlocks(time.Now(), decimal.Zero)

	assert.True(t, got.GlobalPause)
}

func TestReadInterlocksEnforcesTradeWindow(t *testing.T) {
	clearInterlockEnv(t)
	os.Setenv("TRADE_WINDOW_START", "09:00")
	os.Setenv("TRADE_WINDOW_END", "17:00")

	inside := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	outside := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)

	assert.True(t, ReadInterlocks(inside, decimal.Zero).InTradeWindow)
	assert.False(t, ReadInterlocks(outside, decimal.Zero).InTradeWindow)
}

func TestReadInterlocksHandlesOvernightWindow(t *testing.T) {
	clearInterlockEnv(t)
	os.Setenv("TRADE_WINDOW_START", "22:00")
	os.Setenv("TRADE_WINDOW_END", "06:00")

	lateNight := time.Date(2026, 7, 31, 23, 0, 0, 0, time.UTC)
	earlyMorning := time.Date(2026, 7, 31, 3, 0, 0, 0, time.UTC)
	midday := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	assert.True(t, ReadInterlocks(lateNight, decimal.Zero).InTradeWindow)
	assert.True(t, ReadInterlocks(earlyMorning, decimal.Zero).InTradeWindow)
	assert.False(t, ReadInterlocks(midday, decimal.Zero).InTradeWindow)
}

func TestReadInterlocksMaxNotionalOverridesFallback(t *testing.T) {
	clearInterlockEnv(t)
	os.Setenv("MAX_NOTIONAL_PER_TRADE", "500")

	got := ReadInterlocks(time.Now(), decimal.NewFromInt(100))

	assert.True(t, got.MaxNotionalPerTradeUSD.Equal(decimal.NewFromInt(500)))
}

func TestReadInterlocksFallsBackOnInvalidMaxNotional(t *testing.T) {
	clearInterlockEnv(t)
	os.Setenv("MAX_NOTIONAL_PER_TRADE", "not-a-number")

	got := ReadInterlocks(time.Now(), decimal.NewFromInt(250))

	assert.True(t, got.MaxNotionalPerTradeUSD.Equal(decimal.NewFromInt(250)))
}
