package coordinator

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ReadInterlocks reads the process-wide environment interlocks (spec.md §6,
// "Environment interlocks") once. The scheduler calls this exactly once per
// trading tick and shares the result across every token's Execute call in
// that tick, so a mid-tick env change can't apply inconsistently within a
// single cycle.
func ReadInterlocks(now time.Time, maxNotionalPerTradeUSD decimal.Decimal) Interlocks {
	return Interlocks{
		GlobalPause:            readPause(),
		InTradeWindow:          inTradeWindow(now, os.Getenv("TRADE_WINDOW_START"), os.Getenv("TRADE_WINDOW_END")),
		MaxNotionalPerTradeUSD: readMaxNotional(maxNotionalPerTradeUSD),
	}
}

func readPause() bool {
	return strings.EqualFold(os.Getenv("PAUSE"), "true")
}

// readMaxNotional prefers an explicit MAX_NOTIONAL_PER_TRADE env override;
// falling back to the config-supplied default (0 means uncapped).
func readMaxNotional(fallback decimal.Decimal) decimal.Decimal {
	raw := os.Getenv("MAX_NOTIONAL_PER_TRADE")
	if raw == "" {
		return fallback
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		log.Warn().Str("value", raw).Msg("coordinator: invalid MAX_NOTIONAL_PER_TRADE, ignoring")
		return fallback
	}
	return v
}

// inTradeWindow reports whether now (in UTC) falls within [start, end)
// expressed as "HH:MM" UTC clock times. Empty bounds mean no restriction.
// A window that wraps midnight (end < start) is treated as overnight.
func inTradeWindow(now time.Time, start, end string) bool {
	if start == "" && end == "" {
		return true
	}
	startMin, okStart := parseClockMinutes(start)
	endMin, okEnd := parseClockMinutes(end)
	if !okStart || !okEnd {
		log.Warn().Str("start", start).Str("end", end).Msg("coordinator: invalid trade window bounds, treating as unrestricted")
		return true
	}

	nowUTC := now.UTC()
	nowMin := nowUTC.Hour()*60 + nowUTC.Minute()

	if startMin <= endMin {
		return nowMin >= startMin && nowMin < endMin
	}
	// overnight window, e.g. 22:00-06:00
	return nowMin >= startMin || nowMin < endMin
}

func parseClockMinutes(hhmm string) (int, bool) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
