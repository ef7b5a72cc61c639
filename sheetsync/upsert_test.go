package sheetsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	calls   int
	batches [][]int
	// fail returns the error for a given call number (1-based), nil to succeed.
	fail func(call int) error
}

func (w *fakeWriter) write(_ context.Context, batch []int) error {
	w.calls++
	w.batches = append(w.batches, batch)
	if w.fail != nil {
		return w.fail(w.calls)
	}
	return nil
}

func testBatchConfig(sleeps *[]time.Duration) BatchConfig {
	cfg := DefaultBatchConfig()
	cfg.Sleep = func(d time.Duration) {
		if sleeps != nil {
			*sleeps = append(*sleeps, d)
		}
	}
	return cfg
}

func rowRange(n int) ([]int, []int) {
	facts := make([]int, n)
	rows := make([]int, n)
	for i := 0; i < n; i++ {
		facts[i] = i
		rows[i] = i + 1
	}
	return facts, rows
}

func TestUpsertBatchesAllSucceed(t *testing.T) {
	facts, rows := rowRange(5)
	w := &fakeWriter{}

	outcomes, err := UpsertBatches(context.Background(), facts, rows, w.write, testBatchConfig(nil))
	require.NoError(t, err)
	require.Len(t, outcomes, 5)
	for i, out := range outcomes {
		assert.Equal(t, i+1, out.Row)
		assert.Equal(t, OutcomeSucceeded, out.Status)
	}
	assert.Equal(t, 1, w.calls)
}

func TestUpsertBatchesPartitionPreservesOrder(t *testing.T) {
	facts, rows := rowRange(250)
	w := &fakeWriter{}

	outcomes, err := UpsertBatches(context.Background(), facts, rows, w.write, testBatchConfig(nil))
	require.NoError(t, err)
	require.Len(t, outcomes, 250)

	// 250 facts at batch size 100 is three writes: 100, 100, 50.
	require.Len(t, w.batches, 3)
	assert.Len(t, w.batches[0], 100)
	assert.Len(t, w.batches[1], 100)
	assert.Len(t, w.batches[2], 50)
	assert.Equal(t, 0, w.batches[0][0])
	assert.Equal(t, 100, w.batches[1][0])
	assert.Equal(t, 249, w.batches[2][49])

	for i, out := range outcomes {
		assert.Equal(t, i+1, out.Row)
	}
}

func TestUpsertBatchesTransientRetriedThenSucceeds(t *testing.T) {
	facts, rows := rowRange(3)
	var sleeps []time.Duration
	w := &fakeWriter{fail: func(call int) error {
		if call <= 2 {
			return &TransientUpsertError{Err: errors.New("i/o timeout")}
		}
		return nil
	}}

	outcomes, err := UpsertBatches(context.Background(), facts, rows, w.write, testBatchConfig(&sleeps))
	require.NoError(t, err)
	assert.Equal(t, 3, w.calls)
	for _, out := range outcomes {
		assert.Equal(t, OutcomeSucceeded, out.Status)
	}
	// Backoff doubles from the base delay.
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, sleeps)
}

func TestUpsertBatchesTransientExhaustsAttempts(t *testing.T) {
	facts, rows := rowRange(2)
	var sleeps []time.Duration
	w := &fakeWriter{fail: func(int) error {
		return &TransientUpsertError{Err: errors.New("deadlock")}
	}}

	outcomes, err := UpsertBatches(context.Background(), facts, rows, w.write, testBatchConfig(&sleeps))
	require.NoError(t, err)
	assert.Equal(t, 4, w.calls)
	require.Len(t, sleeps, 3)
	for _, out := range outcomes {
		assert.Equal(t, OutcomeFailed, out.Status)
		assert.True(t, out.Retryable)
	}
}

func TestUpsertBatchesRejectedNotRetried(t *testing.T) {
	facts, rows := rowRange(2)
	w := &fakeWriter{fail: func(int) error {
		return &RejectedUpsertError{Err: errors.New("data too long for column")}
	}}

	outcomes, err := UpsertBatches(context.Background(), facts, rows, w.write, testBatchConfig(nil))
	require.NoError(t, err)
	assert.Equal(t, 1, w.calls)
	for _, out := range outcomes {
		assert.Equal(t, OutcomeFailed, out.Status)
		assert.False(t, out.Retryable)
	}
}

func TestUpsertBatchesBackoffCapped(t *testing.T) {
	cfg := DefaultBatchConfig()
	assert.Equal(t, 500*time.Millisecond, backoffDelay(cfg, 0))
	assert.Equal(t, time.Second, backoffDelay(cfg, 1))
	assert.Equal(t, 2*time.Second, backoffDelay(cfg, 2))
	assert.Equal(t, 8*time.Second, backoffDelay(cfg, 5))
	assert.Equal(t, 8*time.Second, backoffDelay(cfg, 40))
}

func TestUpsertBatchesCancelledBetweenBatches(t *testing.T) {
	facts, rows := rowRange(150)
	ctx, cancel := context.WithCancel(context.Background())
	w := &fakeWriter{fail: func(int) error {
		// Cancel while the first batch is in flight; the second batch must
		// not start.
		cancel()
		return nil
	}}

	outcomes, err := UpsertBatches(ctx, facts, rows, w.write, testBatchConfig(nil))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, w.calls)
	// The first batch completed and is reported; rows 101-150 have no outcome.
	require.Len(t, outcomes, 100)
	for _, out := range outcomes {
		assert.Equal(t, OutcomeSucceeded, out.Status)
	}
}

func TestUpsertBatchesLengthMismatch(t *testing.T) {
	_, err := UpsertBatches(context.Background(), []int{1, 2}, []int{1}, (&fakeWriter{}).write, testBatchConfig(nil))
	assert.Error(t, err)
}
