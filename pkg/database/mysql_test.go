package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = raw.Close() })

	return sqlx.NewDb(raw, "sqlmock"), mock
}

func TestRunMigrations_CreatesUsageTable(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS usage_records").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSeedTestData_SkipsWhenRowsExist(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM usage_records").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	if err := SeedTestData(db); err != nil {
		t.Fatalf("SeedTestData() error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSeedTestData_InsertsDemoRows(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM usage_records").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	for i := 0; i < 4; i++ {
		mock.ExpectExec("INSERT INTO usage_records").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	if err := SeedTestData(db); err != nil {
		t.Fatalf("SeedTestData() error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
