package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type countingReloader struct {
	calls atomic.Int32
	err   error
}

func (c *countingReloader) Refresh(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestSettingsRefresherLoadsImmediately(t *testing.T) {
	reloader := &countingReloader{}
	r := NewSettingsRefresher(reloader, time.Hour, zap.NewNop())

	r.Start(context.Background())
	r.Stop()

	if got := reloader.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestSettingsRefresherTicks(t *testing.T) {
	reloader := &countingReloader{err: errors.New("db down")}
	r := NewSettingsRefresher(reloader, 5*time.Millisecond, zap.NewNop())

	r.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for reloader.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	r.Stop()

	if got := reloader.calls.Load(); got < 3 {
		t.Errorf("calls = %d, want at least 3", got)
	}
}

func TestSettingsRefresherStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewSettingsRefresher(&countingReloader{}, time.Hour, zap.NewNop())

	r.Start(ctx)
	cancel()

	select {
	case <-r.done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop after context cancellation")
	}
}
