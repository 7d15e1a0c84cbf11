package venuea

import "github.com/ajitpratap0/xchainarb/internal/state"

// tokenEntry is one TokenDirectory row.
type tokenEntry struct {
	id            state.VenueATokenID
	counterSymbol string
	counterID     state.VenueATokenID
	decimals      int32
}

// StaticDirectory is a TokenDirectory backed by an in-memory map, built
// once from the loaded TokenSpec config.
type StaticDirectory struct {
	entries map[string]tokenEntry
}

func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{entries: make(map[string]tokenEntry)}
}

// Register adds symbol's venue A descriptor and counter-asset to the
// directory, keyed off TokenSpec.QuoteViaA.
func (d *StaticDirectory) Register(spec state.TokenSpec, counterID state.VenueATokenID) {
	d.entries[spec.Symbol] = tokenEntry{
		id:            spec.VenueAID,
		counterSymbol: spec.QuoteViaA,
		counterID:     counterID,
		decimals:      spec.Decimals,
	}
}

func (d *StaticDirectory) Lookup(symbol string) (state.VenueATokenID, string, state.VenueATokenID, int32, bool) {
	e, ok := d.entries[symbol]
	if !ok {
		return state.VenueATokenID{}, "", state.VenueATokenID{}, 0, false
	}
	return e.id, e.counterSymbol, e.counterID, e.decimals, true
}
