package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/whatsapp-copilot/internal/domain"
)

const usageColumns = `phone_number, message_count, notification_sent, notification_expires_at, created_at, updated_at`

// UsageRepository persists per-sender message counters and notification flags.
// Every mutation is a single upsert so concurrent requests never lose an update.
type UsageRepository struct {
	db *sqlx.DB
}

func NewUsageRepository(db *sqlx.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Get returns nil, nil for a sender that has never been recorded.
func (r *UsageRepository) Get(ctx context.Context, phone string) (*domain.UsageRecord, error) {
	query := `SELECT ` + usageColumns + ` FROM usage_records WHERE phone_number = ?`

	var record domain.UsageRecord
	if err := r.db.GetContext(ctx, &record, query, phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get usage record: %w", err)
	}

	return &record, nil
}

func (r *UsageRepository) IncrementCount(ctx context.Context, phone string) error {
	query := `
		INSERT INTO usage_records (phone_number, message_count)
		VALUES (?, 1)
		ON DUPLICATE KEY UPDATE message_count = message_count + 1, updated_at = CURRENT_TIMESTAMP
	`

	if _, err := r.db.ExecContext(ctx, query, phone); err != nil {
		return fmt.Errorf("failed to increment message count: %w", err)
	}

	return nil
}

func (r *UsageRepository) SetCount(ctx context.Context, phone string, count int) error {
	if count < 0 {
		return fmt.Errorf("message count must not be negative, got %d", count)
	}

	query := `
		INSERT INTO usage_records (phone_number, message_count)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE message_count = VALUES(message_count), updated_at = CURRENT_TIMESTAMP
	`

	if _, err := r.db.ExecContext(ctx, query, phone, count); err != nil {
		return fmt.Errorf("failed to set message count: %w", err)
	}

	return nil
}

func (r *UsageRepository) ResetCount(ctx context.Context, phone string) error {
	return r.SetCount(ctx, phone, 0)
}

// SetNotification stores the flag together with its expiry; sent=false clears both.
func (r *UsageRepository) SetNotification(ctx context.Context, phone string, sent bool, expiresAt *time.Time) error {
	if !sent {
		expiresAt = nil
	}

	query := `
		INSERT INTO usage_records (phone_number, notification_sent, notification_expires_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE
			notification_sent = VALUES(notification_sent),
			notification_expires_at = VALUES(notification_expires_at),
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := r.db.ExecContext(ctx, query, phone, sent, expiresAt); err != nil {
		return fmt.Errorf("failed to set notification flag: %w", err)
	}

	return nil
}

// ClaimNotification arms the flag only if no cool-down is running at now and
// reports whether this caller won it. The conditional UPDATE takes the row lock,
// so of two concurrent claims exactly one sees a changed row.
func (r *UsageRepository) ClaimNotification(ctx context.Context, phone string, now, expiresAt time.Time) (bool, error) {
	ensure := `INSERT IGNORE INTO usage_records (phone_number) VALUES (?)`
	if _, err := r.db.ExecContext(ctx, ensure, phone); err != nil {
		return false, fmt.Errorf("failed to ensure usage record: %w", err)
	}

	query := `
		UPDATE usage_records
		SET notification_sent = 1,
		    notification_expires_at = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE phone_number = ?
		  AND (notification_sent = 0
		       OR (notification_expires_at IS NOT NULL AND notification_expires_at <= ?))
	`

	result, err := r.db.ExecContext(ctx, query, expiresAt, phone, now)
	if err != nil {
		return false, fmt.Errorf("failed to claim notification: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows == 1, nil
}

// ClearExpiredNotifications flips flags whose cool-down ended at or before now.
func (r *UsageRepository) ClearExpiredNotifications(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE usage_records
		SET notification_sent = 0,
		    notification_expires_at = NULL,
		    updated_at = CURRENT_TIMESTAMP
		WHERE notification_sent = 1
		  AND notification_expires_at IS NOT NULL
		  AND notification_expires_at <= ?
	`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired notifications: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows, nil
}

func (r *UsageRepository) List(ctx context.Context, page, pageSize int) ([]domain.UsageRecord, int64, error) {
	offset := (page - 1) * pageSize

	var totalCount int64
	if err := r.db.GetContext(ctx, &totalCount, "SELECT COUNT(*) FROM usage_records"); err != nil {
		return nil, 0, fmt.Errorf("failed to count usage records: %w", err)
	}

	query := `SELECT ` + usageColumns + `
		FROM usage_records
		ORDER BY updated_at DESC
		LIMIT ? OFFSET ?
	`

	records := []domain.UsageRecord{}
	if err := r.db.SelectContext(ctx, &records, query, pageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list usage records: %w", err)
	}

	return records, totalCount, nil
}

// GetStats counts a notification as sent only while its cool-down is running at now.
func (r *UsageRepository) GetStats(ctx context.Context, now time.Time) (*domain.UsageStats, error) {
	query := `
		SELECT
			COUNT(*) AS users,
			COALESCE(SUM(message_count), 0) AS total_messages,
			COALESCE(SUM(CASE
				WHEN notification_sent = 1 AND (notification_expires_at IS NULL OR notification_expires_at > ?)
				THEN 1 ELSE 0 END), 0) AS notifications_sent
		FROM usage_records
	`

	var stats domain.UsageStats
	if err := r.db.GetContext(ctx, &stats, query, now); err != nil {
		return nil, fmt.Errorf("failed to get usage stats: %w", err)
	}

	return &stats, nil
}
