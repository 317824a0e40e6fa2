package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClearer is a simple test double for notificationClearer.
type fakeClearer struct {
	mu      sync.Mutex
	cleared []int64
	err     error
	calls   int
}

func (f *fakeClearer) ClearExpiredNotifications(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	if len(f.cleared) == 0 {
		return 0, nil
	}
	n := f.cleared[0]
	f.cleared = f.cleared[1:]
	return n, nil
}

func (f *fakeClearer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestSweeper_SweepAccumulatesClearedFlags(t *testing.T) {
	ctx := context.Background()

	clearer := &fakeClearer{cleared: []int64{3, 0, 2}}
	s := NewSweeper(clearer, time.Minute)

	s.sweep(ctx)
	s.sweep(ctx)
	s.sweep(ctx)

	status := s.GetStatus()
	if status.FlagsCleared != 5 {
		t.Errorf("expected FlagsCleared=5, got %d", status.FlagsCleared)
	}
	if status.RunsCount != 3 {
		t.Errorf("expected RunsCount=3, got %d", status.RunsCount)
	}
	if status.FailedRuns != 0 {
		t.Errorf("expected FailedRuns=0, got %d", status.FailedRuns)
	}
}

func TestSweeper_FailuresAreCountedAndReset(t *testing.T) {
	ctx := context.Background()

	clearer := &fakeClearer{err: errors.New("db down")}
	s := NewSweeper(clearer, time.Minute)

	s.sweep(ctx)
	s.sweep(ctx)

	status := s.GetStatus()
	if status.ConsecutiveFailures != 2 || status.FailedRuns != 2 {
		t.Fatalf("expected 2 failures, got %+v", status)
	}
	if status.LastError != "db down" {
		t.Errorf("expected last error recorded, got %q", status.LastError)
	}

	clearer.err = nil
	s.sweep(ctx)

	status = s.GetStatus()
	if status.ConsecutiveFailures != 0 || status.LastError != "" {
		t.Errorf("expected failure streak reset, got %+v", status)
	}
	if status.FailedRuns != 2 {
		t.Errorf("expected FailedRuns to stay at 2, got %d", status.FailedRuns)
	}
}

func TestSweeper_StartAndStopToggleRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clearer := &fakeClearer{}
	s := NewSweeper(clearer, 10*time.Millisecond)

	if s.IsRunning() {
		t.Fatalf("expected sweeper to be not running initially")
	}

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if !s.IsRunning() {
		t.Fatalf("expected sweeper to be running after Start")
	}

	deadline := time.Now().Add(time.Second)
	for clearer.callCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if clearer.callCount() < 2 {
		t.Fatalf("expected at least 2 sweeps, got %d", clearer.callCount())
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if s.IsRunning() {
		t.Fatalf("expected sweeper to be not running after Stop")
	}
}

func TestSweeper_StartWithParamsSetsInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewSweeper(&fakeClearer{}, time.Minute)

	if err := s.StartWithParams(ctx, 30); err != nil {
		t.Fatalf("StartWithParams returned error: %v", err)
	}
	defer func() { _ = s.Stop() }()

	status := s.GetStatus()
	if status.IntervalSeconds != 30 {
		t.Errorf("expected 30s interval, got %d", status.IntervalSeconds)
	}
}
