// internal/executor/executor.go

// Package executor runs batches of homogeneous operations with a bounded
// number in flight, spacing successive starts to smooth bursts against an
// upstream rate budget. It is domain-agnostic; the sync services use it for
// per-record enrichment fetches.
package executor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Operation is one unit of work, typically wrapping a remote fetch.
type Operation[T any] func(ctx context.Context) (T, error)

// Progress is emitted after every operation settles (success or exhausted
// retries). Completed is monotonically increasing; the final event has
// Completed == Total.
type Progress struct {
	Completed int
	Total     int
}

// IndexedError pairs a failed operation's input index with its final error.
type IndexedError struct {
	Index int
	Err   error
}

// Config controls batch execution.
type Config struct {
	// Concurrency caps the number of operations in flight. Zero or negative
	// means run sequentially.
	Concurrency int
	// DelayBetweenStarts spaces successive operation starts. This shapes the
	// request rate independently of the concurrency cap.
	DelayBetweenStarts time.Duration
	// Retry re-invokes a failed operation up to MaxRetries additional times.
	Retry      bool
	MaxRetries int
	// Progress, if set, receives one event per settled operation. The caller
	// owns the channel and must drain it (or buffer it to at least len(ops)).
	Progress chan<- Progress
}

// Result aggregates a batch. Results is index-aligned with the input
// operations; a failed slot holds the zero value and has a matching entry
// in Errors.
type Result[T any] struct {
	Results   []T
	Completed int
	Failed    int
	Errors    []IndexedError
	Duration  time.Duration
}

// Execute runs ops under cfg and blocks until every operation has settled.
// A failing operation never aborts its siblings.
func Execute[T any](ctx context.Context, ops []Operation[T], cfg Config) Result[T] {
	start := time.Now()
	res := Result[T]{Results: make([]T, len(ops))}
	if len(ops) == 0 {
		res.Duration = time.Since(start)
		return res
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var starts *rate.Limiter
	if cfg.DelayBetweenStarts > 0 {
		starts = rate.NewLimiter(rate.Every(cfg.DelayBetweenStarts), 1)
	}

	var (
		mu        sync.Mutex
		completed int
	)
	settle := func(index int, value T, err error) {
		mu.Lock()
		res.Results[index] = value
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, IndexedError{Index: index, Err: err})
		} else {
			res.Completed++
		}
		completed++
		// Sent under the lock so events arrive in Completed order.
		if cfg.Progress != nil {
			cfg.Progress <- Progress{Completed: completed, Total: len(ops)}
		}
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, op := range ops {
		if starts != nil {
			if err := starts.Wait(ctx); err != nil {
				settle(i, *new(T), err)
				continue
			}
		}
		i, op := i, op
		g.Go(func() error {
			value, err := runWithRetry(ctx, op, cfg)
			settle(i, value, err)
			return nil
		})
	}

	g.Wait() //nolint:errcheck // workers always return nil; failures land in res.Errors
	res.Duration = time.Since(start)
	return res
}

// runWithRetry invokes op, re-trying transient failures with spacing scaled
// off the inter-start delay.
func runWithRetry[T any](ctx context.Context, op Operation[T], cfg Config) (T, error) {
	attempts := 1
	if cfg.Retry && cfg.MaxRetries > 0 {
		attempts += cfg.MaxRetries
	}

	var (
		value T
		err   error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		value, err = op(ctx)
		if err == nil {
			return value, nil
		}
		if attempt == attempts {
			break
		}
		if werr := waitBeforeRetry(ctx, cfg.DelayBetweenStarts, attempt); werr != nil {
			return *new(T), err
		}
	}
	return *new(T), err
}

func waitBeforeRetry(ctx context.Context, base time.Duration, attempt int) error {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	backoff := base * time.Duration(attempt)
	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
