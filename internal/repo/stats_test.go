package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-phishing-sim/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestAttemptsStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	_, _, err := AttemptsStats(context.Background(), db)
	if err == nil {
		t.Fatalf("expected error due to missing table")
	}
}

func TestAttemptsStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.PhishingAttempt{})
	count, maxAt, err := AttemptsStats(context.Background(), db)
	if err != nil {
		t.Fatalf("AttemptsStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestAttemptsStats_CountAndMax(t *testing.T) {
	db := newTestDB(t, &domain.PhishingAttempt{})

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // max
	t3 := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

	for i, ts := range []time.Time{t1, t2, t3} {
		row := &domain.PhishingAttempt{
			ID:             fmt.Sprintf("a%d", i),
			RecipientEmail: "x@example.com",
			EmailContent:   "c",
			Status:         domain.StatusSent,
			CreatedAt:      ts,
			UpdatedAt:      ts,
		}
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	count, maxAt, err := AttemptsStats(context.Background(), db)
	if err != nil {
		t.Fatalf("AttemptsStats error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}
	if maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("expected max %v, got %v", t2, maxAt)
	}
}
