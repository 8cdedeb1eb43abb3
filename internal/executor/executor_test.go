// internal/executor/executor_test.go
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_EmptyInput(t *testing.T) {
	res := Execute[int](context.Background(), nil, Config{Concurrency: 3})

	assert.Empty(t, res.Results)
	assert.Zero(t, res.Completed)
	assert.Zero(t, res.Failed)
	assert.Empty(t, res.Errors)
}

func TestExecute_ResultsAreIndexAligned(t *testing.T) {
	// Later operations finish first; results must still match input order.
	ops := make([]Operation[string], 5)
	for i := range ops {
		i := i
		ops[i] = func(ctx context.Context) (string, error) {
			time.Sleep(time.Duration(5-i) * 10 * time.Millisecond)
			return fmt.Sprintf("op-%d", i), nil
		}
	}

	res := Execute(context.Background(), ops, Config{Concurrency: 5})

	require.Len(t, res.Results, 5)
	for i, got := range res.Results {
		assert.Equal(t, fmt.Sprintf("op-%d", i), got)
	}
	assert.Equal(t, 5, res.Completed)
	assert.Zero(t, res.Failed)
}

func TestExecute_ConcurrencyCap(t *testing.T) {
	const n = 20
	const limit = 3

	var active, highWater int64
	ops := make([]Operation[int], n)
	for i := range ops {
		ops[i] = func(ctx context.Context) (int, error) {
			cur := atomic.AddInt64(&active, 1)
			for {
				hw := atomic.LoadInt64(&highWater)
				if cur <= hw || atomic.CompareAndSwapInt64(&highWater, hw, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&active, -1)
			return 0, nil
		}
	}

	res := Execute(context.Background(), ops, Config{Concurrency: limit})

	assert.Equal(t, n, res.Completed)
	// With 20 held ops and no start delay the pool saturates: the high-water
	// mark must reach the cap exactly, never exceed it.
	assert.Equal(t, int64(limit), atomic.LoadInt64(&highWater))
}

func TestExecute_ConcurrencyCappedByInputSize(t *testing.T) {
	var active, highWater int64
	ops := make([]Operation[int], 2)
	for i := range ops {
		ops[i] = func(ctx context.Context) (int, error) {
			cur := atomic.AddInt64(&active, 1)
			for {
				hw := atomic.LoadInt64(&highWater)
				if cur <= hw || atomic.CompareAndSwapInt64(&highWater, hw, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&active, -1)
			return 0, nil
		}
	}

	Execute(context.Background(), ops, Config{Concurrency: 5})

	assert.Equal(t, int64(2), atomic.LoadInt64(&highWater))
}

func TestExecute_FailureDoesNotAbortSiblings(t *testing.T) {
	boom := errors.New("boom")
	ops := []Operation[int]{
		func(ctx context.Context) (int, error) { return 1, nil },
		func(ctx context.Context) (int, error) { return 0, boom },
		func(ctx context.Context) (int, error) { return 3, nil },
	}

	res := Execute(context.Background(), ops, Config{Concurrency: 2})

	assert.Equal(t, 2, res.Completed)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []int{1, 0, 3}, res.Results)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 1, res.Errors[0].Index)
	assert.ErrorIs(t, res.Errors[0].Err, boom)
}

func TestExecute_RetrySucceedsOnFinalAttempt(t *testing.T) {
	const maxRetries = 2

	var attempts int32
	ops := []Operation[string]{
		func(ctx context.Context) (string, error) {
			if atomic.AddInt32(&attempts, 1) <= maxRetries {
				return "", errors.New("transient")
			}
			return "ok", nil
		},
	}

	res := Execute(context.Background(), ops, Config{
		Concurrency:        1,
		Retry:              true,
		MaxRetries:         maxRetries,
		DelayBetweenStarts: time.Millisecond,
	})

	assert.Equal(t, 1, res.Completed)
	assert.Zero(t, res.Failed)
	assert.Equal(t, "ok", res.Results[0])
	assert.Equal(t, int32(maxRetries+1), atomic.LoadInt32(&attempts))
}

func TestExecute_RetryExhausted(t *testing.T) {
	var attempts int32
	ops := []Operation[int]{
		func(ctx context.Context) (int, error) {
			atomic.AddInt32(&attempts, 1)
			return 0, errors.New("persistent")
		},
	}

	res := Execute(context.Background(), ops, Config{
		Concurrency:        1,
		Retry:              true,
		MaxRetries:         2,
		DelayBetweenStarts: time.Millisecond,
	})

	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestExecute_NoRetryWhenDisabled(t *testing.T) {
	var attempts int32
	ops := []Operation[int]{
		func(ctx context.Context) (int, error) {
			atomic.AddInt32(&attempts, 1)
			return 0, errors.New("boom")
		},
	}

	Execute(context.Background(), ops, Config{Concurrency: 1, MaxRetries: 5})

	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestExecute_ProgressIsMonotonicAndComplete(t *testing.T) {
	const n = 7
	ops := make([]Operation[int], n)
	for i := range ops {
		i := i
		ops[i] = func(ctx context.Context) (int, error) {
			if i%3 == 0 {
				return 0, errors.New("boom")
			}
			return i, nil
		}
	}

	progress := make(chan Progress, n)
	var events []Progress
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for p := range progress {
			events = append(events, p)
		}
	}()

	Execute(context.Background(), ops, Config{Concurrency: 3, Progress: progress})
	close(progress)
	wg.Wait()

	// One event per settled op, success or exhausted failure.
	require.Len(t, events, n)
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i].Completed, events[i-1].Completed)
	}
	assert.Equal(t, n, events[n-1].Completed)
	assert.Equal(t, n, events[n-1].Total)
}

func TestExecute_DelayBetweenStarts(t *testing.T) {
	const n = 4
	const delay = 30 * time.Millisecond

	var mu sync.Mutex
	var starts []time.Time
	ops := make([]Operation[int], n)
	for i := range ops {
		ops[i] = func(ctx context.Context) (int, error) {
			mu.Lock()
			starts = append(starts, time.Now())
			mu.Unlock()
			return 0, nil
		}
	}

	begin := time.Now()
	Execute(context.Background(), ops, Config{Concurrency: n, DelayBetweenStarts: delay})

	// n starts spaced by delay need at least (n-1)*delay overall.
	assert.GreaterOrEqual(t, time.Since(begin), (n-1)*delay)
	assert.Len(t, starts, n)
}
