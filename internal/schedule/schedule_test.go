package schedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestRunOnceContinuesAfterFailure(t *testing.T) {
	s := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	var order []string
	s.Add(Job{Name: "collect", Fn: func(context.Context) error {
		order = append(order, "collect")
		return errors.New("upstream down")
	}})
	s.Add(Job{Name: "aggregate", Fn: func(context.Context) error {
		order = append(order, "aggregate")
		return nil
	}})

	err := s.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected first job's error")
	}
	if len(order) != 2 || order[1] != "aggregate" {
		t.Errorf("order = %v, later jobs must still run", order)
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	s := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	runs := 0
	s.Add(Job{Name: "noop", Fn: func(context.Context) error {
		runs++
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Start(ctx, time.Hour) // immediate run, then the cancelled context wins

	if runs < 1 {
		t.Errorf("runs = %d, want at least the immediate run", runs)
	}
}
