package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/xchainarb/internal/state"
)

// MockProtocol simulates a cross-chain bridge for paper trading and tests
// (same spirit as venuea.MockPool and venueb.MockRouter: an in-memory fill
// simulator standing in for the abstracted wire transport). Each submitted
// transfer is assigned a deterministic status sequence configured via
// StatusSequence, defaulting to immediate success.
type MockProtocol struct {
	mu sync.Mutex

	// StatusSequence, if set, is consulted on each Status call for txID:
	// the slice is popped front-to-back, with the last entry repeating
	// once exhausted. Absent an entry, Status reports immediate success.
	StatusSequence map[string][]Status

	txCounter int
}

func NewMockProtocol() *MockProtocol {
	return &MockProtocol{StatusSequence: make(map[string][]Status)}
}

func (m *MockProtocol) SubmitBridge(_ context.Context, symbol string, humanAmount decimal.Decimal, direction state.BridgeDirection) (Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCounter++
	txID := fmt.Sprintf("bridge-tx-%s-%d", symbol, m.txCounter)
	return Submission{TxID: txID}, nil
}

func (m *MockProtocol) Status(_ context.Context, txID string) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seq, ok := m.StatusSequence[txID]
	if !ok || len(seq) == 0 {
		return Status{Code: successCode, Description: "confirmed"}, nil
	}
	next := seq[0]
	if len(seq) > 1 {
		m.StatusSequence[txID] = seq[1:]
	}
	return next, nil
}
