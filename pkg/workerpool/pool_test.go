package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunPairsEveryInput(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	results := Run(context.Background(), items, func(_ context.Context, n int) (string, error) {
		if n == 3 {
			return "", errors.New("boom")
		}
		return fmt.Sprintf("item-%d", n), nil
	}, Options{MaxConcurrency: 2})

	if len(results) != len(items) {
		t.Fatalf("got %d results, want %d", len(results), len(items))
	}
	var ok int
	for i, r := range results {
		if r.Input != items[i] {
			t.Errorf("slot %d holds input %d, want %d", i, r.Input, items[i])
		}
		if r.OK() {
			ok++
			if want := fmt.Sprintf("item-%d", items[i]); r.Output != want {
				t.Errorf("slot %d output = %q, want %q", i, r.Output, want)
			}
		}
	}
	if ok != 4 {
		t.Errorf("ok = %d, want 4", ok)
	}
	if results[2].Err == nil {
		t.Error("item 3 should carry its error")
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	const limit = 3
	var inFlight, peak int32
	items := make([]int, 20)

	Run(context.Background(), items, func(_ context.Context, _ int) (struct{}, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return struct{}{}, nil
	}, Options{MaxConcurrency: limit})

	if p := atomic.LoadInt32(&peak); p > limit {
		t.Errorf("peak concurrency = %d, want <= %d", p, limit)
	}
}

func TestRunTaskTimeout(t *testing.T) {
	items := []string{"fast", "slow"}
	results := Run(context.Background(), items, func(ctx context.Context, s string) (string, error) {
		if s == "slow" {
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			}
			return "", ctx.Err()
		}
		return "done", nil
	}, Options{TaskTimeout: 20 * time.Millisecond})

	if !results[0].OK() || results[0].Output != "done" {
		t.Errorf("fast task: %+v", results[0])
	}
	if !errors.Is(results[1].Err, ErrTaskTimeout) {
		t.Errorf("slow task err = %v, want ErrTaskTimeout", results[1].Err)
	}
}

func TestRunPoolTimeoutKeepsPartialResults(t *testing.T) {
	var mu sync.Mutex
	started := map[int]bool{}
	items := []int{0, 1, 2, 3}

	results := Run(context.Background(), items, func(ctx context.Context, n int) (int, error) {
		mu.Lock()
		started[n] = true
		mu.Unlock()
		if n >= 2 {
			<-ctx.Done()
			return 0, ctx.Err()
		}
		return n * 10, nil
	}, Options{MaxConcurrency: 4, PoolTimeout: 50 * time.Millisecond})

	for i := 0; i < 2; i++ {
		if !results[i].OK() || results[i].Output != i*10 {
			t.Errorf("result %d = %+v, want %d", i, results[i], i*10)
		}
	}
	for i := 2; i < 4; i++ {
		if results[i].Err == nil {
			t.Errorf("result %d should carry a timeout error", i)
		}
	}
}

func TestRunRecoversPanics(t *testing.T) {
	results := Run(context.Background(), []int{1}, func(_ context.Context, _ int) (int, error) {
		panic("bad item")
	}, Options{})
	if results[0].Err == nil {
		t.Fatal("panic should surface as the item's error")
	}
}

func TestRunEmptyInput(t *testing.T) {
	results := Run(context.Background(), nil, func(_ context.Context, _ int) (int, error) {
		t.Fatal("fn must not run")
		return 0, nil
	}, Options{})
	if len(results) != 0 {
		t.Fatalf("results = %v, want empty", results)
	}
}
