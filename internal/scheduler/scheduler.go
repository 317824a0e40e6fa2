// Package scheduler runs the background sweep that clears threshold notification
// flags whose cool-down has elapsed.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/onurcolak/whatsapp-copilot/internal/metrics"
	"github.com/onurcolak/whatsapp-copilot/pkg/logger"
)

// notificationClearer matches UsageService.ClearExpiredNotifications.
type notificationClearer interface {
	ClearExpiredNotifications(ctx context.Context) (int64, error)
}

type Sweeper struct {
	usage    notificationClearer
	interval time.Duration

	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.RWMutex

	lastRunAt           time.Time
	lastError           string
	flagsCleared        int64
	runsCount           int64
	failedRuns          int64
	consecutiveFailures int
}

func NewSweeper(usage notificationClearer, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		usage:    usage,
		interval: interval,
	}
}

// StartWithParams restarts the sweep loop with a new interval in seconds.
func (s *Sweeper) StartWithParams(ctx context.Context, intervalSeconds int) error {
	if intervalSeconds <= 0 {
		intervalSeconds = 60
	}

	s.mu.Lock()
	s.interval = time.Duration(intervalSeconds) * time.Second
	s.mu.Unlock()

	return s.Start(ctx)
}

func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.running {
		s.mu.Unlock()
		logger.Warnf("Notification sweeper is already running")
		return nil
	}

	s.running = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	interval := s.interval
	stopChan, doneChan := s.stopChan, s.doneChan
	s.mu.Unlock()

	logger.Infof("Starting notification sweeper with interval: %v", interval)

	go s.run(ctx, interval, stopChan, doneChan)

	return nil
}

func (s *Sweeper) run(ctx context.Context, interval time.Duration, stopChan, doneChan chan struct{}) {
	defer close(doneChan)

	s.sweep(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)

		case <-stopChan:
			logger.Warnf("Notification sweeper received stop signal")
			return

		case <-ctx.Done():
			logger.Warnf("Notification sweeper context cancelled")
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	s.mu.Lock()
	s.lastRunAt = time.Now()
	s.runsCount++
	runNumber := s.runsCount
	s.mu.Unlock()

	cleared, err := s.usage.ClearExpiredNotifications(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.failedRuns++
		s.consecutiveFailures++
		s.lastError = err.Error()
		logger.Errorf("[Sweep #%d] Failed to clear expired notifications: %v", runNumber, err)
		return
	}

	s.consecutiveFailures = 0
	s.lastError = ""
	s.flagsCleared += cleared
	metrics.NotificationsCleared.Add(float64(cleared))

	if cleared > 0 {
		logger.Infof("[Sweep #%d] Cleared %d expired notification flags", runNumber, cleared)
	} else {
		logger.Debugf("[Sweep #%d] No expired notification flags", runNumber)
	}
}

func (s *Sweeper) Stop() error {
	s.mu.Lock()

	if !s.running {
		s.mu.Unlock()
		logger.Warnf("Notification sweeper is not running")
		return nil
	}

	s.running = false
	stopChan := s.stopChan
	doneChan := s.doneChan
	s.mu.Unlock()

	close(stopChan)
	<-doneChan

	logger.Infof("Notification sweeper stopped")
	return nil
}

func (s *Sweeper) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Sweeper) GetStatus() SweeperStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := SweeperStatus{
		Running:             s.running,
		LastRunAt:           s.lastRunAt,
		FlagsCleared:        s.flagsCleared,
		RunsCount:           s.runsCount,
		FailedRuns:          s.failedRuns,
		ConsecutiveFailures: s.consecutiveFailures,
		LastError:           s.lastError,
		Interval:            s.interval,
		IntervalSeconds:     int(s.interval.Seconds()),
	}

	if s.running && !s.lastRunAt.IsZero() {
		status.NextRunAt = s.lastRunAt.Add(s.interval)
	}

	return status
}

type SweeperStatus struct {
	Running             bool          `json:"running"`
	LastRunAt           time.Time     `json:"lastRunAt,omitempty"`
	NextRunAt           time.Time     `json:"nextRunAt,omitempty"`
	FlagsCleared        int64         `json:"flagsCleared"`
	RunsCount           int64         `json:"runsCount"`
	FailedRuns          int64         `json:"failedRuns"`
	ConsecutiveFailures int           `json:"consecutiveFailures"`
	LastError           string        `json:"lastError,omitempty"`
	Interval            time.Duration `json:"interval"`
	IntervalSeconds     int           `json:"intervalSeconds"`
}
