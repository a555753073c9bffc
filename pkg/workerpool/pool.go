// Package workerpool provides a bounded fan-out/fan-in executor with
// per-item result pairing. A batch never aborts because one item failed:
// every input gets a result slot, and failures stay in their slot.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrPoolTimeout marks result slots whose task had not finished when
	// the pool's total deadline elapsed.
	ErrPoolTimeout = errors.New("workerpool: pool timeout elapsed")

	// ErrTaskTimeout marks a single task that exceeded its own deadline.
	ErrTaskTimeout = errors.New("workerpool: task timeout elapsed")
)

// Result pairs one input item with its output or failure.
type Result[T, R any] struct {
	Input  T
	Output R
	Err    error
}

// OK reports whether the task completed successfully.
func (r Result[T, R]) OK() bool { return r.Err == nil }

// Options bounds a Run call.
type Options struct {
	// MaxConcurrency caps in-flight tasks. Defaults to 5.
	MaxConcurrency int
	// PoolTimeout bounds the whole batch; on expiry Run returns partial
	// results. Defaults to one hour.
	PoolTimeout time.Duration
	// TaskTimeout bounds a single task; zero means no per-task deadline.
	TaskTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = 5
	}
	if o.PoolTimeout <= 0 {
		o.PoolTimeout = time.Hour
	}
	return o
}

// Run applies fn to every item with at most MaxConcurrency in flight and
// returns one result per item, in input order. Completion order does not
// matter; slot i always belongs to items[i]. Panics inside fn are captured
// as that item's failure.
func Run[T, R any](ctx context.Context, items []T, fn func(context.Context, T) (R, error), opts Options) []Result[T, R] {
	results := make([]Result[T, R], len(items))
	for i := range items {
		results[i] = Result[T, R]{Input: items[i], Err: ErrPoolTimeout}
	}
	if len(items) == 0 {
		return results
	}
	opts = opts.withDefaults()

	poolCtx, cancel := context.WithTimeout(ctx, opts.PoolTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		sealed bool // once true, stragglers may no longer touch results
		wg     sync.WaitGroup
	)
	sem := make(chan struct{}, opts.MaxConcurrency)

	for i := range items {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-poolCtx.Done():
				return
			}
			defer func() { <-sem }()

			out, err := runTask(poolCtx, items[i], fn, opts.TaskTimeout)

			mu.Lock()
			if !sealed {
				results[i] = Result[T, R]{Input: items[i], Output: out, Err: err}
			}
			mu.Unlock()
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-poolCtx.Done():
	}

	mu.Lock()
	sealed = true
	mu.Unlock()
	return results
}

// runTask executes fn under an optional per-task deadline. An expired task
// is reported failed immediately; the in-flight call is abandoned to its
// (now cancelled) context rather than interrupted.
func runTask[T, R any](ctx context.Context, item T, fn func(context.Context, T) (R, error), timeout time.Duration) (out R, err error) {
	taskCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		out R
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero R
				ch <- outcome{zero, fmt.Errorf("workerpool: task panic: %v", r)}
			}
		}()
		o, e := fn(taskCtx, item)
		ch <- outcome{o, e}
	}()

	select {
	case o := <-ch:
		return o.out, o.err
	case <-taskCtx.Done():
		var zero R
		if ctx.Err() == nil {
			return zero, ErrTaskTimeout
		}
		return zero, taskCtx.Err()
	}
}
