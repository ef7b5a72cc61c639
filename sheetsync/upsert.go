package sheetsync

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TransientUpsertError marks a store failure worth retrying: network
// errors, timeouts, lock contention.
type TransientUpsertError struct {
	Err error
}

func (e *TransientUpsertError) Error() string { return "transient upsert failure: " + e.Err.Error() }
func (e *TransientUpsertError) Unwrap() error { return e.Err }

// RejectedUpsertError marks a failure that retrying cannot fix: the store
// rejected the batch outright.
type RejectedUpsertError struct {
	Err error
}

func (e *RejectedUpsertError) Error() string { return "upsert rejected: " + e.Err.Error() }
func (e *RejectedUpsertError) Unwrap() error { return e.Err }

const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Outcome is the per-fact result of a batch upsert. Row carries the source
// row index so failures map back to the sheet.
type Outcome struct {
	Row       int
	Status    string
	Reason    string
	Retryable bool
}

type BatchConfig struct {
	BatchSize   int
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Sleep is swappable so tests can run retries against a fake clock.
	Sleep func(time.Duration)
}

func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		BatchSize:   100,
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
		Sleep:       time.Sleep,
	}
}

func (cfg *BatchConfig) normalize() {
	def := DefaultBatchConfig()
	if cfg.BatchSize <= 0 || cfg.BatchSize > def.BatchSize {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
}

// backoffDelay doubles the base delay per attempt (0-based), capped.
func backoffDelay(cfg BatchConfig, attempt int) time.Duration {
	delay := cfg.BaseDelay << attempt
	if delay > cfg.MaxDelay || delay <= 0 {
		delay = cfg.MaxDelay
	}
	return delay
}

// UpsertBatches partitions facts into bounded batches preserving input
// order and writes each batch through write, retrying transient failures
// with exponential backoff. Every input fact gets exactly one Outcome.
//
// Partial success across batches is the normal case, not an error; the
// returned error is non-nil only when the run is cancelled, and even then
// the outcomes collected so far are returned. Cancellation is cooperative:
// it is honored between batches, never mid-batch.
func UpsertBatches[T any](ctx context.Context, facts []T, rowIndexes []int, write func(context.Context, []T) error, cfg BatchConfig) ([]Outcome, error) {
	if len(facts) != len(rowIndexes) {
		return nil, fmt.Errorf("facts/rowIndexes length mismatch: %d vs %d", len(facts), len(rowIndexes))
	}
	cfg.normalize()

	outcomes := make([]Outcome, 0, len(facts))

	for start := 0; start < len(facts); start += cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		end := start + cfg.BatchSize
		if end > len(facts) {
			end = len(facts)
		}
		batch := facts[start:end]

		err := writeWithRetry(ctx, batch, write, cfg)
		var transient *TransientUpsertError
		retryable := errors.As(err, &transient)
		for i := start; i < end; i++ {
			outcome := Outcome{Row: rowIndexes[i], Status: OutcomeSucceeded}
			if err != nil {
				outcome.Status = OutcomeFailed
				outcome.Reason = err.Error()
				outcome.Retryable = retryable
			}
			outcomes = append(outcomes, outcome)
		}
	}

	return outcomes, nil
}

func writeWithRetry[T any](ctx context.Context, batch []T, write func(context.Context, []T) error, cfg BatchConfig) error {
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			cfg.Sleep(backoffDelay(cfg, attempt-1))
		}

		err := write(ctx, batch)
		if err == nil {
			return nil
		}

		var rejected *RejectedUpsertError
		if errors.As(err, &rejected) {
			return err
		}
		lastErr = err
	}
	return lastErr
}
