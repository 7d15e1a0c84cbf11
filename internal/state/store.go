package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ajitpratap0/xchainarb/internal/apperrors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	maxRecentTrades = 100
	flushInterval   = 30 * time.Second
)

// Store is the single owner of persistent engine state. All methods are
// safe for concurrent use; mutations are serialized under one mutex
// (spec §5: "the StateStore is the single mutable shared resource;
// access is serialized via a single-writer discipline").
type Store struct {
	mu    sync.Mutex
	state BotState
	dirty bool

	dir string // directory holding state.json and logs/trades-YYYY-MM-DD.jsonl
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithDir overrides the persistence directory (default "./data").
func WithDir(dir string) Option {
	return func(s *Store) { s.dir = dir }
}

// NewStore loads (or initializes) a Store backed by dir. Read failures
// produce a default empty state and log a warning rather than failing
// startup (spec §4.1).
func NewStore(opts ...Option) *Store {
	s := &Store{dir: "./data"}
	for _, opt := range opts {
		opt(s)
	}
	s.state = defaultState()
	if err := s.load(); err != nil {
		log.Warn().Err(err).Msg("state store: failed to load persisted state, starting from default")
	}
	return s
}

func defaultState() BotState {
	return BotState{
		Inventory: map[VenueID]InventorySnapshot{
			VenueA: {VenueA: map[string]Balance{}, VenueB: map[string]Balance{}},
			VenueB: {VenueA: map[string]Balance{}, VenueB: map[string]Balance{}},
		},
		PendingBridges:   nil,
		RecentTrades:     nil,
		TokenCooldowns:   map[string]Cooldown{},
		DailyTradeCounts: map[string]int{},
		LastBridgeTimes:  map[string]time.Time{},
		Status:           "initialized",
		LastHeartbeat:    time.Now(),
		Version:          0,
		LastSaved:        time.Time{},
	}
}

func (s *Store) statePath() string       { return filepath.Join(s.dir, "state.json") }
func (s *Store) bridgeStatePath() string { return filepath.Join(s.dir, "bridge-state.json") }
func (s *Store) logsDir() string         { return filepath.Join(s.dir, "logs") }
func (s *Store) tradesLogPath() string   { return filepath.Join(s.logsDir(), "trades.json") }

// load reads state.json from disk into s.state. Corruption is recovered by
// backing up the bad file and falling back to the default state; unknown
// or truncated fields are simply absent from the unmarshaled struct
// (encoding/json repairs them to their zero value automatically).
func (s *Store) load() error {
	data, err := os.ReadFile(s.statePath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return apperrors.New(apperrors.CategoryState, "read state file", err)
	}

	var loaded BotState
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.backupCorrupt(s.statePath(), err)
		return apperrors.New(apperrors.CategoryState, "unmarshal state file, using default", err)
	}
	if loaded.Inventory == nil {
		loaded.Inventory = defaultState().Inventory
	}
	if loaded.TokenCooldowns == nil {
		loaded.TokenCooldowns = map[string]Cooldown{}
	}
	if loaded.DailyTradeCounts == nil {
		loaded.DailyTradeCounts = map[string]int{}
	}
	if loaded.LastBridgeTimes == nil {
		loaded.LastBridgeTimes = map[string]time.Time{}
	}
	s.state = loaded
	return nil
}

// backupCorrupt renames a corrupt state file aside so a human can inspect
// it later, then lets the caller continue with a fresh default state.
func (s *Store) backupCorrupt(path string, cause error) {
	backup := fmt.Sprintf("%s.corrupt.%d", path, time.Now().Unix())
	if err := os.Rename(path, backup); err != nil {
		log.Error().Err(err).Str("path", path).Msg("state store: failed to back up corrupt state file")
		return
	}
	log.Error().Err(cause).Str("path", path).Str("backup", backup).Msg("state store: corrupt state file backed up, starting from default")
}

// flush serializes the current state to disk. Write failures are logged
// and left for the next scheduled flush to retry (spec §4.1).
func (s *Store) flush() {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	s.state.LastSaved = time.Now()
	snapshot := s.state
	s.dirty = false
	s.mu.Unlock()

	written := false
	defer func() {
		if !written {
			s.mu.Lock()
			s.dirty = true
			s.mu.Unlock()
		}
	}()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		log.Error().Err(err).Msg("state store: failed to create data directory")
		return
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("state store: failed to marshal state")
		return
	}
	if err := writeFileAtomic(s.statePath(), data); err != nil {
		log.Error().Err(err).Msg("state store: failed to write state file")
		return
	}
	written = true
	log.Debug().Msg("state store: flushed")
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// RunFlushLoop flushes dirty state every 30s until ctx is canceled, and
// performs one final flush on shutdown.
func (s *Store) RunFlushLoop(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.flush()
			return
		case <-ticker.C:
			s.flush()
		}
	}
}

func (s *Store) markDirty() {
	s.dirty = true
	s.state.Version++
}

// ReadSnapshot returns a deep-cloned view of the current state, cheap
// enough to call once per tick (spec §4.1).
func (s *Store) ReadSnapshot() BotState {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := s.state
	cp.Inventory = map[VenueID]InventorySnapshot{
		VenueA: CloneInventorySnapshot(s.state.Inventory[VenueA]),
		VenueB: CloneInventorySnapshot(s.state.Inventory[VenueB]),
	}
	cp.PendingBridges = append([]BridgeRecord(nil), s.state.PendingBridges...)
	cp.RecentTrades = append([]TradeLogEntry(nil), s.state.RecentTrades...)
	cp.TokenCooldowns = make(map[string]Cooldown, len(s.state.TokenCooldowns))
	for k, v := range s.state.TokenCooldowns {
		cp.TokenCooldowns[k] = v
	}
	cp.DailyTradeCounts = make(map[string]int, len(s.state.DailyTradeCounts))
	for k, v := range s.state.DailyTradeCounts {
		cp.DailyTradeCounts[k] = v
	}
	cp.LastBridgeTimes = make(map[string]time.Time, len(s.state.LastBridgeTimes))
	for k, v := range s.state.LastBridgeTimes {
		cp.LastBridgeTimes[k] = v
	}
	return cp
}

// ErrStaleVersion is returned when UpdateInventory is called with a
// snapshot whose Version does not match the store's current version for
// that venue (optimistic concurrency, spec §3).
var ErrStaleVersion = fmt.Errorf("stale inventory version")

// UpdateInventory replaces the inventory snapshot for venue, provided
// snapshot.Version matches the currently stored version for that venue
// (preventing a stale writer from clobbering a newer read). The stored
// version is then incremented.
func (s *Store) UpdateInventory(venue VenueID, snapshot InventorySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.state.Inventory[venue]
	if snapshot.Version != current.Version {
		return ErrStaleVersion
	}
	snapshot.Version = current.Version + 1
	snapshot.LastUpdated = time.Now()
	s.state.Inventory[venue] = snapshot
	s.markDirty()
	return nil
}

// SetCooldown sets (or extends) a cooldown for symbol. Per the strictly
// monotonic ordering guarantee, the stored EndsAt is max(existing, proposed)
// — a new cooldown never shortens an existing one.
func (s *Store) SetCooldown(symbol string, endsAt time.Time, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.state.TokenCooldowns[symbol]
	if ok && existing.EndsAt.After(endsAt) {
		endsAt = existing.EndsAt
	}
	s.state.TokenCooldowns[symbol] = Cooldown{EndsAt: endsAt, Reason: reason}
	s.markDirty()
}

// ClearCooldown removes any cooldown on symbol.
func (s *Store) ClearCooldown(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.TokenCooldowns, symbol)
	s.markDirty()
}

// Cooldown returns the current cooldown for symbol, if any.
func (s *Store) Cooldown(symbol string) (Cooldown, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.TokenCooldowns[symbol]
	return c, ok
}

// AppendTrade appends entry to the trade log, trimming to the most recent
// maxRecentTrades entries (spec §6: recentTrades retains "last 100"). It
// also increments the day-bucketed trade count for symbol.
func (s *Store) AppendTrade(entry TradeLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	s.state.RecentTrades = append(s.state.RecentTrades, entry)
	if len(s.state.RecentTrades) > maxRecentTrades {
		s.state.RecentTrades = s.state.RecentTrades[len(s.state.RecentTrades)-maxRecentTrades:]
	}

	dateKey := dailyCountKey(entry.Symbol, entry.Timestamp)
	s.state.DailyTradeCounts[dateKey]++
	s.markDirty()

	if err := s.appendTradeLogLine(entry); err != nil {
		log.Error().Err(err).Msg("state store: failed to append daily trade log line")
	}
}

func dailyCountKey(symbol string, t time.Time) string {
	return fmt.Sprintf("%s|%s", symbol, t.UTC().Format("2006-01-02"))
}

// DailyTradeCount returns how many trades symbol has executed on the
// current UTC day.
func (s *Store) DailyTradeCount(symbol string, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DailyTradeCounts[dailyCountKey(symbol, now)]
}

func (s *Store) appendTradeLogLine(entry TradeLogEntry) error {
	if err := os.MkdirAll(s.logsDir(), 0o755); err != nil {
		return err
	}
	dailyPath := filepath.Join(s.logsDir(), fmt.Sprintf("trades-%s.jsonl", entry.Timestamp.UTC().Format("2006-01-02")))
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(dailyPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(line, '\n'))
	return err
}

// AppendBridge appends a new BridgeRecord to the pending-bridges ledger.
func (s *Store) AppendBridge(rec BridgeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	s.state.PendingBridges = append(s.state.PendingBridges, rec)
	s.state.LastBridgeTimes[rec.Symbol] = rec.SubmittedAt
	s.markDirty()
}

// UpdateBridge updates the status (and retry count, on failure) of the
// bridge record identified by id.
func (s *Store) UpdateBridge(id string, status BridgeStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.PendingBridges {
		if s.state.PendingBridges[i].ID == id {
			if status == BridgeStatusFailed {
				s.state.PendingBridges[i].RetryCount++
			}
			s.state.PendingBridges[i].Status = status
			s.markDirty()
			return
		}
	}
}

// LastBridgeTime returns the last time symbol was bridged, if ever.
func (s *Store) LastBridgeTime(symbol string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.state.LastBridgeTimes[symbol]
	return t, ok
}

// BridgeCountToday returns how many bridge records were submitted for
// symbol on the current UTC day (spec §8: daily count never exceeds
// max_bridges_per_day per token within one UTC day).
func (s *Store) BridgeCountToday(symbol string, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	day := now.UTC().Format("2006-01-02")
	for _, rec := range s.state.PendingBridges {
		if rec.Symbol == symbol && rec.SubmittedAt.UTC().Format("2006-01-02") == day {
			count++
		}
	}
	return count
}

// PerformanceMetrics derives aggregate stats from the recent trade log.
func (s *Store) PerformanceMetrics() PerformanceMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	var m PerformanceMetrics
	totalBps := decimal.Zero
	winSum, winCount := decimal.Zero, 0
	lossSum, lossCount := decimal.Zero, 0
	for _, t := range s.state.RecentTrades {
		m.TotalTrades++
		switch classifyOutcome(t.Legs) {
		case outcomeSuccess:
			m.SuccessfulTrades++
		case outcomePartial:
			m.PartialTrades++
		default:
			m.FailedTrades++
		}
		m.TotalNetEdge = m.TotalNetEdge.Add(t.Edge.NetEdge)
		totalBps = totalBps.Add(t.Edge.NetEdgeBps)
		if t.Edge.NetEdge.IsPositive() {
			winSum = winSum.Add(t.Edge.NetEdge)
			winCount++
		} else if t.Edge.NetEdge.IsNegative() {
			lossSum = lossSum.Add(t.Edge.NetEdge.Abs())
			lossCount++
		}
	}
	if m.TotalTrades > 0 {
		m.AvgNetEdgeBps = totalBps.Div(decimal.NewFromInt(int64(m.TotalTrades)))
	}
	if winCount > 0 {
		m.AvgWinningEdge = winSum.Div(decimal.NewFromInt(int64(winCount)))
	}
	if lossCount > 0 {
		m.AvgLosingEdge = lossSum.Div(decimal.NewFromInt(int64(lossCount)))
	}
	return m
}

type tradeOutcome int

const (
	outcomeFailed tradeOutcome = iota
	outcomePartial
	outcomeSuccess
)

func classifyOutcome(legs []TradeLeg) tradeOutcome {
	successCount := 0
	for _, l := range legs {
		if l.Success {
			successCount++
		}
	}
	switch {
	case successCount == len(legs) && len(legs) > 0:
		return outcomeSuccess
	case successCount > 0:
		return outcomePartial
	default:
		return outcomeFailed
	}
}
