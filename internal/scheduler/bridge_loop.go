package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/xchainarb/internal/bridge"
	"github.com/ajitpratap0/xchainarb/internal/state"
)

// BridgeLoop runs bridge.Controller.RunRebalanceCycle once per T_bridge
// tick (spec §2, §4.9). It shares the same StateStore as the TradingLoop
// but ticks on a completely different, much coarser cadence, so it is its
// own goroutine rather than folded into TradingLoop.
type BridgeLoop struct {
	Controller *bridge.Controller
	Tokens     []state.TokenSpec
	Interval   time.Duration
}

// Start runs the bridge loop until ctx is canceled, ticking immediately
// on entry and then every Interval.
func (l *BridgeLoop) Start(ctx context.Context) error {
	log.Info().Dur("interval", l.Interval).Msg("scheduler: bridge loop started")
	l.Controller.RunRebalanceCycle(ctx, l.Tokens, time.Now())

	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler: bridge loop stopped")
			return ctx.Err()
		case <-ticker.C:
			l.Controller.RunRebalanceCycle(ctx, l.Tokens, time.Now())
		}
	}
}
