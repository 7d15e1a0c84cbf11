// Package state owns all persistent process state: token inventories,
// per-symbol cooldowns, the bridge ledger, and the trade log. It is the
// single mutable shared resource in the engine (spec §5) — every other
// component reads a cloned snapshot or mutates through one of the
// StateStore's serialized methods, never the underlying maps directly.
package state

import (
	"time"

	"github.com/shopspring/decimal"
)

// VenueID identifies one of the two trading venues this engine arbitrages
// between.
type VenueID string

const (
	VenueA VenueID = "A"
	VenueB VenueID = "B"
)

// Direction is the arrangement of buy/sell legs across the two venues.
type Direction string

const (
	DirectionForward Direction = "forward"
	DirectionReverse Direction = "reverse"
)

// VenueATokenID is the opaque 4-tuple descriptor venue A uses to address a
// token (spec §3: "collection|category|type|additionalKey").
type VenueATokenID struct {
	Collection    string `json:"collection"`
	Category      string `json:"category"`
	Type          string `json:"type"`
	AdditionalKey string `json:"additionalKey"`
}

// TokenSpec is immutable per token between config reloads.
type TokenSpec struct {
	Symbol           string          `json:"symbol"`
	VenueAID         VenueATokenID   `json:"venueAId"`
	VenueBID         string          `json:"venueBId"` // base58 mint-like string
	Decimals         int32           `json:"decimals"` // 0..18
	TradeSize        decimal.Decimal `json:"tradeSize"`
	Enabled          bool            `json:"enabled"`
	QuoteViaA        string          `json:"quoteViaA"`
	QuoteViaB        string          `json:"quoteViaB"`
	InventoryTarget  *decimal.Decimal `json:"inventoryTarget,omitempty"`
	ConfigVersion    string          `json:"configVersion"`
}

// Balance is one row of an InventorySnapshot.
type Balance struct {
	RawBalance   decimal.Decimal `json:"rawBalance"`
	HumanBalance decimal.Decimal `json:"humanBalance"`
	Decimals     int32           `json:"decimals"`
	USDValue     decimal.Decimal `json:"usdValue"`
	LastUpdated  time.Time       `json:"lastUpdated"`
}

// InventorySnapshot is a per-venue view of token balances, optimistically
// versioned so a stale writer (one racing against a newer snapshot) is
// rejected rather than silently clobbering newer data.
type InventorySnapshot struct {
	VenueA          map[string]Balance `json:"venueA"`
	VenueB          map[string]Balance `json:"venueB"`
	NativeBalanceA  decimal.Decimal    `json:"nativeBalanceA"`
	NativeBalanceB  decimal.Decimal    `json:"nativeBalanceB"`
	ChainTotalUSDA  decimal.Decimal    `json:"chainTotalUsdA"`
	ChainTotalUSDB  decimal.Decimal    `json:"chainTotalUsdB"`
	LastUpdated     time.Time          `json:"lastUpdated"`
	Version         uint64             `json:"version"`
}

// CloneInventorySnapshot deep-copies an InventorySnapshot so callers can
// hold onto it across a tick without racing the store's writer.
func CloneInventorySnapshot(s InventorySnapshot) InventorySnapshot {
	cp := s
	cp.VenueA = make(map[string]Balance, len(s.VenueA))
	for k, v := range s.VenueA {
		cp.VenueA[k] = v
	}
	cp.VenueB = make(map[string]Balance, len(s.VenueB))
	for k, v := range s.VenueB {
		cp.VenueB[k] = v
	}
	return cp
}

// TotalHuman returns the total human-unit balance of symbol across both venues.
func (s InventorySnapshot) TotalHuman(symbol string) decimal.Decimal {
	total := decimal.Zero
	if b, ok := s.VenueA[symbol]; ok {
		total = total.Add(b.HumanBalance)
	}
	if b, ok := s.VenueB[symbol]; ok {
		total = total.Add(b.HumanBalance)
	}
	return total
}

// Cooldown marks a symbol ineligible for trading until EndsAt.
type Cooldown struct {
	EndsAt time.Time `json:"endsAt"`
	Reason string    `json:"reason"`
}

// Active reports whether the cooldown is still in effect at now.
func (c Cooldown) Active(now time.Time) bool {
	return now.Before(c.EndsAt)
}

// BridgeStatus is the lifecycle state of a bridge transfer.
type BridgeStatus string

const (
	BridgeStatusPending   BridgeStatus = "pending"
	BridgeStatusConfirmed BridgeStatus = "confirmed"
	BridgeStatusFailed    BridgeStatus = "failed"
)

// BridgeDirection is the transfer direction of a bridge operation.
type BridgeDirection string

const (
	BridgeAToB BridgeDirection = "A->B"
	BridgeBToA BridgeDirection = "B->A"
)

// BridgeRecord is a persisted, append-only record of one bridge transfer.
type BridgeRecord struct {
	ID           string          `json:"id"`
	Symbol       string          `json:"symbol"`
	Amount       decimal.Decimal `json:"amount"`
	Direction    BridgeDirection `json:"direction"`
	TxHash       string          `json:"txHash"`
	SubmittedAt  time.Time       `json:"submittedAt"`
	Status       BridgeStatus    `json:"status"`
	RetryCount   int             `json:"retryCount"`
}

// TradeMode distinguishes live execution from a dry-run evaluation.
type TradeMode string

const (
	ModeLive TradeMode = "live"
	ModeDry  TradeMode = "dry"
)

// TradeLeg records the outcome of one executed leg (a venue swap).
type TradeLeg struct {
	Venue    VenueID   `json:"venue"`
	TxID     string    `json:"txId,omitempty"`
	Success  bool      `json:"success"`
	Skipped  bool      `json:"skipped"`
	Error    string    `json:"error,omitempty"`
}

// EdgeSnapshot is the frozen EdgeResult accounting recorded with a trade,
// decoupled from the edge package's live type so state doesn't import it
// (avoids an import cycle: edge will depend on state's TokenSpec).
type EdgeSnapshot struct {
	Income      decimal.Decimal `json:"income"`
	Expense     decimal.Decimal `json:"expense"`
	BridgeCost  decimal.Decimal `json:"bridgeCost"`
	RiskBuffer  decimal.Decimal `json:"riskBuffer"`
	NetEdge     decimal.Decimal `json:"netEdge"`
	NetEdgeBps  decimal.Decimal `json:"netEdgeBps"`
	SellSide    VenueID         `json:"sellSide"`
	BuySide     VenueID         `json:"buySide"`
}

// TradeLogEntry is one append-only row of the trade log.
type TradeLogEntry struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Mode      TradeMode     `json:"mode"`
	Symbol    string        `json:"symbol"`
	Direction Direction     `json:"direction"`
	Edge      EdgeSnapshot  `json:"edge"`
	Legs      []TradeLeg    `json:"legs"`
	Duration  time.Duration `json:"durationNs"`
}

// PerformanceMetrics is derived from recent trade-log entries.
type PerformanceMetrics struct {
	TotalTrades      int             `json:"totalTrades"`
	SuccessfulTrades int             `json:"successfulTrades"`
	PartialTrades    int             `json:"partialTrades"`
	FailedTrades     int             `json:"failedTrades"`
	TotalNetEdge     decimal.Decimal `json:"totalNetEdge"`
	AvgNetEdgeBps    decimal.Decimal `json:"avgNetEdgeBps"`
	// AvgWinningEdge/AvgLosingEdge split recent trades by the sign of their
	// realized net edge, feeding the Kelly-sizing advisory in internal/risk.
	AvgWinningEdge decimal.Decimal `json:"avgWinningEdge"`
	AvgLosingEdge  decimal.Decimal `json:"avgLosingEdge"` // stored as a positive magnitude
}

// BotState is the full cloned view returned by ReadSnapshot.
type BotState struct {
	Inventory         map[VenueID]InventorySnapshot `json:"inventory"`
	PendingBridges    []BridgeRecord                `json:"pendingBridges"`
	RecentTrades      []TradeLogEntry                `json:"recentTrades"`
	TokenCooldowns    map[string]Cooldown             `json:"tokenCooldowns"`
	DailyTradeCounts  map[string]int                  `json:"dailyTradeCounts"` // keyed by "SYMBOL|YYYY-MM-DD"
	LastBridgeTimes   map[string]time.Time             `json:"lastBridgeTimes"`
	Status            string                           `json:"status"`
	LastHeartbeat     time.Time                         `json:"lastHeartbeat"`
	Version           uint64                            `json:"version"`
	LastSaved         time.Time                         `json:"lastSaved"`
}
