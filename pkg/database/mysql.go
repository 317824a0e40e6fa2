package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/whatsapp-copilot/environments"
	"github.com/onurcolak/whatsapp-copilot/pkg/logger"
)

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to MySQL database")
	return db, nil
}

const usageSchema = `
	CREATE TABLE IF NOT EXISTS usage_records (
		phone_number VARCHAR(20) NOT NULL PRIMARY KEY,
		message_count INT NOT NULL DEFAULT 0,
		notification_sent TINYINT(1) NOT NULL DEFAULT 0,
		notification_expires_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_usage_notification_expiry (notification_sent, notification_expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
	`

func RunMigrations(db *sqlx.DB) error {
	if _, err := db.Exec(usageSchema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Infof("Database migrations completed")

	return nil
}

// SeedTestData inserts demo senders at different points of the threshold ladder.
func SeedTestData(db *sqlx.DB) error {
	var count int

	err := db.Get(&count, "SELECT COUNT(*) FROM usage_records")
	if err != nil {
		return err
	}

	if count > 0 {
		logger.Infof("Database already has %d usage records, skipping seed", count)
		return nil
	}

	testRecords := []struct {
		phoneNumber  string
		messageCount int
	}{
		{"254712345678", 0},
		{"254712345679", 3},
		{"254712345680", 6},
		{"254712345681", 7},
	}

	for _, rec := range testRecords {
		_, err := db.Exec(
			"INSERT INTO usage_records (phone_number, message_count) VALUES (?, ?)",
			rec.phoneNumber, rec.messageCount,
		)
		if err != nil {
			return fmt.Errorf("failed to seed test data: %w", err)
		}
	}

	logger.Infof("Seeded %d usage records", len(testRecords))
	return nil
}
