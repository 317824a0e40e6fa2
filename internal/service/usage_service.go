package service

import (
	"context"
	"fmt"
	"time"

	"github.com/onurcolak/whatsapp-copilot/internal/domain"
	"github.com/onurcolak/whatsapp-copilot/pkg/logger"
)

// Small internal interface so we can test without touching a real DB.
type usageRepository interface {
	Get(ctx context.Context, phone string) (*domain.UsageRecord, error)
	IncrementCount(ctx context.Context, phone string) error
	SetCount(ctx context.Context, phone string, count int) error
	ResetCount(ctx context.Context, phone string) error
	SetNotification(ctx context.Context, phone string, sent bool, expiresAt *time.Time) error
	ClaimNotification(ctx context.Context, phone string, now, expiresAt time.Time) (bool, error)
	ClearExpiredNotifications(ctx context.Context, now time.Time) (int64, error)
	List(ctx context.Context, page, pageSize int) ([]domain.UsageRecord, int64, error)
	GetStats(ctx context.Context, now time.Time) (*domain.UsageStats, error)
}

// UsageService is the usage counter store. Reads degrade to zero values when the
// database misbehaves so a flaky store never blocks a reply.
type UsageService struct {
	repo     usageRepository
	cooldown time.Duration
	now      func() time.Time
}

func NewUsageService(repo usageRepository, cooldown time.Duration) *UsageService {
	return &UsageService{
		repo:     repo,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Snapshot reads count and effective notification flag in one query.
func (s *UsageService) Snapshot(ctx context.Context, phone string) domain.UsageSnapshot {
	record, err := s.repo.Get(ctx, phone)
	if err != nil {
		logger.Errorf("Failed to read usage for %s: %v", phone, err)
		return domain.UsageSnapshot{}
	}
	if record == nil {
		return domain.UsageSnapshot{}
	}

	return domain.UsageSnapshot{
		Count:            record.MessageCount,
		NotificationSent: record.NotificationActive(s.now().UTC()),
	}
}

func (s *UsageService) GetCount(ctx context.Context, phone string) int {
	return s.Snapshot(ctx, phone).Count
}

func (s *UsageService) IncrementCount(ctx context.Context, phone string) {
	if err := s.repo.IncrementCount(ctx, phone); err != nil {
		logger.Errorf("Failed to increment count for %s: %v", phone, err)
		return
	}
	logger.Debugf("Incremented message count for %s", phone)
}

func (s *UsageService) SetCount(ctx context.Context, phone string, count int) error {
	return s.repo.SetCount(ctx, phone, count)
}

// ResetCount zeroes the counter and reports whether it worked.
func (s *UsageService) ResetCount(ctx context.Context, phone string) bool {
	if err := s.repo.ResetCount(ctx, phone); err != nil {
		logger.Errorf("Failed to reset count for %s: %v", phone, err)
		return false
	}
	logger.Infof("Reset message count for %s", phone)
	return true
}

func (s *UsageService) IsNotificationSent(ctx context.Context, phone string) bool {
	return s.Snapshot(ctx, phone).NotificationSent
}

// SetNotificationSent arms the cool-down when sent is true (replacing any earlier expiry)
// and clears flag and expiry when false.
func (s *UsageService) SetNotificationSent(ctx context.Context, phone string, sent bool) {
	var expiresAt *time.Time
	if sent {
		t := s.now().UTC().Add(s.cooldown)
		expiresAt = &t
	}

	if err := s.repo.SetNotification(ctx, phone, sent, expiresAt); err != nil {
		logger.Errorf("Failed to set notification flag for %s: %v", phone, err)
	}
}

// ClaimNotification arms the cool-down and reports true only for the one caller
// that found no notification running. A store error also reports true so the
// sender still learns why the reply was held back.
func (s *UsageService) ClaimNotification(ctx context.Context, phone string) bool {
	now := s.now().UTC()
	claimed, err := s.repo.ClaimNotification(ctx, phone, now, now.Add(s.cooldown))
	if err != nil {
		logger.Errorf("Failed to claim notification for %s: %v", phone, err)
		return true
	}
	return claimed
}

func (s *UsageService) ClearExpiredNotifications(ctx context.Context) (int64, error) {
	return s.repo.ClearExpiredNotifications(ctx, s.now().UTC())
}

func (s *UsageService) GetRecord(ctx context.Context, phone string) (*domain.UsageRecord, error) {
	return s.repo.Get(ctx, phone)
}

func (s *UsageService) ListRecords(ctx context.Context, page, pageSize int) ([]domain.UsageRecord, int64, error) {
	return s.repo.List(ctx, page, pageSize)
}

func (s *UsageService) GetStats(ctx context.Context) (*domain.UsageStats, error) {
	return s.repo.GetStats(ctx, s.now().UTC())
}

// ClearNotification is the admin variant of SetNotificationSent(false) that surfaces errors.
func (s *UsageService) ClearNotification(ctx context.Context, phone string) error {
	if err := s.repo.SetNotification(ctx, phone, false, nil); err != nil {
		return fmt.Errorf("failed to clear notification: %w", err)
	}
	return nil
}
