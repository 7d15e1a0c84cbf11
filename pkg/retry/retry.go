// Package retry implements the exponential-backoff retry policy shared by
// the coordinator's venue swaps and the bridge controller's submit and
// status calls. Venue quotes are not routed through it.
// It is deliberately classification-driven: only errors the apperrors
// taxonomy marks retryable are retried, rather than pattern-matching on
// error text the way the teacher's exchange package used to.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/ajitpratap0/xchainarb/internal/apperrors"
	"github.com/rs/zerolog/log"
)

// Config configures exponential-backoff retry behavior.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// DefaultConfig matches spec §4.10: max_retries=3, initial 1s, multiplier 2, max 30s.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

// Operation is a unit of work that may fail with a retryable or terminal error.
type Operation func(ctx context.Context) error

// Do executes operation with exponential-backoff retry. Only errors that
// apperrors.IsRetryable classifies as retryable are retried; everything
// else (including a circuit-open error, which is intrinsically
// non-retryable) is returned immediately.
func Do(ctx context.Context, cfg Config, name string, op Operation) error {
	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return apperrors.Aborted(fmt.Sprintf("%s: cancelled: %v", name, ctx.Err()))
		default:
		}

		err := op(ctx)
		if err == nil {
			if attempt > 0 {
				log.Info().Str("operation", name).Int("attempt", attempt+1).Msg("operation succeeded after retry")
			}
			return nil
		}

		lastErr = err

		if !apperrors.IsRetryable(err) {
			log.Debug().Str("operation", name).Err(err).Msg("error is not retryable, aborting")
			return err
		}

		if attempt == cfg.MaxRetries {
			break
		}

		log.Warn().
			Str("operation", name).
			Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", cfg.MaxRetries+1).
			Dur("backoff", backoff).
			Msg("operation failed, retrying with backoff")

		select {
		case <-ctx.Done():
			return apperrors.Aborted(fmt.Sprintf("%s: cancelled during backoff: %v", name, ctx.Err()))
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffFactor)
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	return apperrors.New(apperrors.CategoryExternalAPI,
		fmt.Sprintf("%s: failed after %d attempts", name, cfg.MaxRetries+1), lastErr)
}
