package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// ReconnectConfig controls exponential backoff after pipeline failures.
type ReconnectConfig struct {
	MaxRetries    int           // Consecutive failures before giving up (default: 5)
	RetryDelay    time.Duration // Delay before the first retry (default: 1s)
	MaxRetryDelay time.Duration // Cap on any single delay (default: 30s)
}

// DefaultReconnectConfig returns 5 retries from 1s, capped at 30s.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:    5,
		RetryDelay:    1 * time.Second,
		MaxRetryDelay: 30 * time.Second,
	}
}

// reconnectState tracks attempts. current is owned by the monitor
// goroutine; total is read by Stats.
type reconnectState struct {
	current int
	total   atomic.Uint32
}

func (r *reconnectState) reset() { r.current = 0 }

// runWithReconnect keeps a pipeline alive across failures.
//
// Each iteration:
//  1. Calls run, which blocks while the pipeline is healthy
//  2. Returns nil when run returns nil or ctx was cancelled
//  3. Counts the failure and gives up past cfg.MaxRetries
//  4. Sleeps the backoff delay (or returns on cancellation)
//  5. Calls rebuild to prepare a fresh pipeline for the next run
//
// Backoff schedule with the default config:
//   - Retry 1: 1s
//   - Retry 2: 2s
//   - Retry 3: 4s
//   - Retry 4: 8s
//   - Retry 5: 16s
//   - 6th consecutive failure: error (max retries exceeded)
//
// The failure count only covers consecutive failures: run calls state.reset
// once the pipeline reaches PLAYING. A failed rebuild is logged and the next
// run reports it as a failure of its own.
func runWithReconnect(
	ctx context.Context,
	cfg ReconnectConfig,
	state *reconnectState,
	logger *slog.Logger,
	run func(ctx context.Context) error,
	rebuild func() error,
) error {
	for {
		err := run(ctx)
		if err == nil || ctx.Err() != nil {
			return nil
		}

		state.current++
		state.total.Add(1)
		if state.current > cfg.MaxRetries {
			return fmt.Errorf("capture: max retries exceeded (%d attempts): %w", cfg.MaxRetries, err)
		}

		delay := calculateBackoff(state.current, cfg)
		logger.Warn("capture: retrying pipeline",
			"error", err,
			"attempt", state.current,
			"max_retries", cfg.MaxRetries,
			"delay", delay,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}

		if err := rebuild(); err != nil {
			logger.Error("capture: failed to rebuild pipeline", "error", err)
		}
	}
}

// calculateBackoff returns the delay before retry number attempt.
//
// Formula: delay = RetryDelay * 2^(attempt-1), capped at MaxRetryDelay.
// Attempts below 1 are treated as 1; an overflowed shift also yields the cap.
func calculateBackoff(attempt int, cfg ReconnectConfig) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := cfg.RetryDelay * time.Duration(1<<uint(attempt-1))
	if delay > cfg.MaxRetryDelay || delay <= 0 {
		return cfg.MaxRetryDelay
	}
	return delay
}
