package bridge

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/xchainarb/internal/risk"
	"github.com/ajitpratap0/xchainarb/internal/state"
)

type statusResponse struct {
	status Status
	err    error
}

type sequencedProtocol struct {
	responses   []statusResponse
	idx         int
	submitCalls int
}

func (p *sequencedProtocol) SubmitBridge(_ context.Context, _ string, _ decimal.Decimal, _ state.BridgeDirection) (Submission, error) {
	p.submitCalls++
	return Submission{TxID: "tx-1"}, nil
}

func (p *sequencedProtocol) Status(_ context.Context, _ string) (Status, error) {
	r := p.responses[p.idx]
	if p.idx < len(p.responses)-1 {
		p.idx++
	}
	return r.status, r.err
}

func testStore(t *testing.T) *state.Store {
	dir, err := os.MkdirTemp("", "bridge-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return state.NewStore(state.WithDir(dir))
}

func seedInventory(t *testing.T, store *state.Store, symbol string, balA, balB decimal.Decimal) {
	t.Helper()
	err := store.UpdateInventory(state.VenueA, state.InventorySnapshot{
		VenueA: map[string]state.Balance{symbol: {HumanBalance: balA}},
		VenueB: map[string]state.Balance{},
	})
	require.NoError(t, err)
	err = store.UpdateInventory(state.VenueB, state.InventorySnapshot{
		VenueA: map[string]state.Balance{},
		VenueB: map[string]state.Balance{symbol: {HumanBalance: balB}},
	})
	require.NoError(t, err)
}

func testConfig() Config {
	return Config{
		ImbalanceThresholdPercent: decimal.NewFromInt(80),
		TargetSplitPercent:        decimal.NewFromInt(50),
		MinRebalanceAmount:        decimal.NewFromInt(100),
		CooldownMinutes:           30,
		MaxBridgesPerDay:          10,
		PollInterval:              time.Millisecond,
		TimeoutMinutes:            30,
	}
}

func TestRunRebalanceCycleSubmitsOnImbalance(t *testing.T) {
	store := testStore(t)
	seedInventory(t, store, "GALA", decimal.NewFromInt(9000), decimal.NewFromInt(1000))
	proto := &sequencedProtocol{responses: []statusResponse{{status: Status{Code: successCode}}}}
	c := New(proto, store, risk.NewPassthroughCircuitBreakerManager(), testConfig())

	tokens := []state.TokenSpec{{Symbol: "GALA", Enabled: true}}
	c.RunRebalanceCycle(context.Background(), tokens, time.Now())

	time.Sleep(10 * time.Millisecond) // let the spawned poll goroutine settle
	assert.Equal(t, 1, proto.submitCalls)

	snapshot := store.ReadSnapshot()
	require.Len(t, snapshot.PendingBridges, 1)
	assert.Equal(t, state.BridgeAToB, snapshot.PendingBridges[0].Direction)
	assert.True(t, snapshot.PendingBridges[0].Amount.Equal(decimal.NewFromInt(4000)))
}

func TestRunRebalanceCycleSkipsWhenBalanced(t *testing.T) {
	store := testStore(t)
	seedInventory(t, store, "GALA", decimal.NewFromInt(5000), decimal.NewFromInt(5000))
	proto := &sequencedProtocol{}
	c := New(proto, store, risk.NewPassthroughCircuitBreakerManager(), testConfig())

	tokens := []state.TokenSpec{{Symbol: "GALA", Enabled: true}}
	c.RunRebalanceCycle(context.Background(), tokens, time.Now())

	assert.Equal(t, 0, proto.submitCalls)
}

func TestRunRebalanceCycleSkipsBelowMinRebalanceAmount(t *testing.T) {
	store := testStore(t)
	// pct_A = 81, amount = 8100 - 0.5*10000 = 3100 ... use tighter numbers
	// so amount falls under MinRebalanceAmount (100): total 100, balA=82.
	seedInventory(t, store, "GALA", decimal.NewFromInt(82), decimal.NewFromInt(18))
	proto := &sequencedProtocol{}
	c := New(proto, store, risk.NewPassthroughCircuitBreakerManager(), testConfig())

	tokens := []state.TokenSpec{{Symbol: "GALA", Enabled: true}}
	c.RunRebalanceCycle(context.Background(), tokens, time.Now())

	assert.Equal(t, 0, proto.submitCalls)
}

func TestRunRebalanceCycleSkipsWhenDailyCapReached(t *testing.T) {
	store := testStore(t)
	seedInventory(t, store, "GALA", decimal.NewFromInt(9000), decimal.NewFromInt(1000))
	now := time.Now()
	for i := 0; i < 10; i++ {
		store.AppendBridge(state.BridgeRecord{Symbol: "GALA", SubmittedAt: now, Status: state.BridgeStatusConfirmed})
	}
	proto := &sequencedProtocol{}
	c := New(proto, store, risk.NewPassthroughCircuitBreakerManager(), testConfig())

	tokens := []state.TokenSpec{{Symbol: "GALA", Enabled: true}}
	c.RunRebalanceCycle(context.Background(), tokens, now)

	assert.Equal(t, 0, proto.submitCalls)
}

func TestRunRebalanceCycleSkipsDuringCooldown(t *testing.T) {
	store := testStore(t)
	seedInventory(t, store, "GALA", decimal.NewFromInt(9000), decimal.NewFromInt(1000))
	now := time.Now()
	store.AppendBridge(state.BridgeRecord{Symbol: "GALA", SubmittedAt: now.Add(-5 * time.Minute), Status: state.BridgeStatusConfirmed})
	proto := &sequencedProtocol{}
	c := New(proto, store, risk.NewPassthroughCircuitBreakerManager(), testConfig())

	tokens := []state.TokenSpec{{Symbol: "GALA", Enabled: true}}
	c.RunRebalanceCycle(context.Background(), tokens, now)

	assert.Equal(t, 0, proto.submitCalls)
}

func TestRunRebalanceCycleSkipsDisabledToken(t *testing.T) {
	store := testStore(t)
	seedInventory(t, store, "GALA", decimal.NewFromInt(9000), decimal.NewFromInt(1000))
	proto := &sequencedProtocol{}
	c := New(proto, store, risk.NewPassthroughCircuitBreakerManager(), testConfig())

	tokens := []state.TokenSpec{{Symbol: "GALA", Enabled: false}}
	c.RunRebalanceCycle(context.Background(), tokens, time.Now())

	assert.Equal(t, 0, proto.submitCalls)
}

func TestConfigEnabledForRespectsSkipAndAllowList(t *testing.T) {
	cfg := Config{SkipTokens: map[string]bool{"BAD": true}}
	assert.True(t, cfg.enabledFor("GALA"))
	assert.False(t, cfg.enabledFor("BAD"))

	cfg2 := Config{EnabledTokens: map[string]bool{"GALA": true}}
	assert.True(t, cfg2.enabledFor("GALA"))
	assert.False(t, cfg2.enabledFor("OTHER"))
}

func TestPollUntilTerminalMarksConfirmedOnSuccess(t *testing.T) {
	store := testStore(t)
	proto := &sequencedProtocol{responses: []statusResponse{{status: Status{Code: successCode}}}}
	cfg := testConfig()
	c := New(proto, store, risk.NewPassthroughCircuitBreakerManager(), cfg)

	rec := state.BridgeRecord{ID: "r1", Symbol: "GALA", SubmittedAt: time.Now(), Status: state.BridgeStatusPending}
	store.AppendBridge(rec)

	c.PollUntilTerminal(context.Background(), rec)

	snapshot := store.ReadSnapshot()
	require.Len(t, snapshot.PendingBridges, 1)
	assert.Equal(t, state.BridgeStatusConfirmed, snapshot.PendingBridges[0].Status)
}

func TestPollUntilTerminalMarksFailedOnFailureCode(t *testing.T) {
	store := testStore(t)
	proto := &sequencedProtocol{responses: []statusResponse{{status: Status{Code: 9}}}}
	cfg := testConfig()
	c := New(proto, store, risk.NewPassthroughCircuitBreakerManager(), cfg)

	rec := state.BridgeRecord{ID: "r2", Symbol: "GALA", SubmittedAt: time.Now(), Status: state.BridgeStatusPending}
	store.AppendBridge(rec)

	c.PollUntilTerminal(context.Background(), rec)

	snapshot := store.ReadSnapshot()
	require.Len(t, snapshot.PendingBridges, 1)
	assert.Equal(t, state.BridgeStatusFailed, snapshot.PendingBridges[0].Status)
}

func TestPollUntilTerminalTreats404AsNonTerminal(t *testing.T) {
	store := testStore(t)
	proto := &sequencedProtocol{responses: []statusResponse{
		{err: ErrNotYetObservable},
		{status: Status{Code: successCode}},
	}}
	cfg := testConfig()
	c := New(proto, store, risk.NewPassthroughCircuitBreakerManager(), cfg)

	rec := state.BridgeRecord{ID: "r3", Symbol: "GALA", SubmittedAt: time.Now(), Status: state.BridgeStatusPending}
	store.AppendBridge(rec)

	c.PollUntilTerminal(context.Background(), rec)

	snapshot := store.ReadSnapshot()
	require.Len(t, snapshot.PendingBridges, 1)
	assert.Equal(t, state.BridgeStatusConfirmed, snapshot.PendingBridges[0].Status)
}

func TestPollUntilTerminalTimesOutAndMarksFailed(t *testing.T) {
	store := testStore(t)
	proto := &sequencedProtocol{responses: []statusResponse{{status: Status{Code: 1}}}} // always in-flight
	cfg := testConfig()
	cfg.TimeoutMinutes = 1
	c := New(proto, store, risk.NewPassthroughCircuitBreakerManager(), cfg)

	rec := state.BridgeRecord{ID: "r4", Symbol: "GALA", SubmittedAt: time.Now().Add(-2 * time.Minute), Status: state.BridgeStatusPending}
	store.AppendBridge(rec)

	c.PollUntilTerminal(context.Background(), rec)

	snapshot := store.ReadSnapshot()
	require.Len(t, snapshot.PendingBridges, 1)
	assert.Equal(t, state.BridgeStatusFailed, snapshot.PendingBridges[0].Status)
}

func TestStatusClassify(t *testing.T) {
	assert.Equal(t, LifecycleInFlight, Status{Code: 1}.Classify())
	assert.Equal(t, LifecycleSuccess, Status{Code: 5}.Classify())
	assert.Equal(t, LifecycleFailure, Status{Code: 6}.Classify())
}
