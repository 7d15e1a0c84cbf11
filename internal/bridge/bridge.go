// Package bridge implements BridgeController: imbalance detection between
// the two venues' inventories, rate-limited cross-chain rebalancing, and
// status polling of in-flight transfers (spec.md §4.9). The wire protocol
// talking to the chain's native bridge is abstracted behind Protocol, the
// same Transport-behind-policy shape internal/venue/venuea and
// internal/venue/venueb use.
package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/xchainarb/internal/state"
)

// Submission is the result of successfully submitting a bridge transfer.
type Submission struct {
	TxID string
}

// Status is a bridge network's raw status response for a submitted
// transfer.
type Status struct {
	Code        int
	Description string
}

// Lifecycle classifies a Status per spec.md §4.9's literal resolution of
// the status-code ambiguity (see status.go).
type Lifecycle int

const (
	LifecycleInFlight Lifecycle = iota
	LifecycleSuccess
	LifecycleFailure
)

// ErrNotYetObservable is returned by Protocol.Status when the bridge
// network has not yet indexed the transfer (an HTTP 404 at the transport
// level). The poller treats this identically to an in-flight status:
// continue polling, don't count it as a failure.
var ErrNotYetObservable = errors.New("bridge: transfer not yet observable")

// Protocol is the narrow capability set a concrete chain bridge client
// implements; Controller owns all scheduling, rate-limit, and
// classification policy.
type Protocol interface {
	// SubmitBridge submits a transfer of humanAmount of symbol in
	// direction, returning the submission's transaction ID.
	SubmitBridge(ctx context.Context, symbol string, humanAmount decimal.Decimal, direction state.BridgeDirection) (Submission, error)

	// Status returns the current status of a previously submitted
	// transfer. Returns ErrNotYetObservable if the network hasn't
	// indexed txID yet.
	Status(ctx context.Context, txID string) (Status, error)
}
