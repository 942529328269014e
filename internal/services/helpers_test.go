package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-phishing-sim/internal/domain"
	"github.com/tbourn/go-phishing-sim/internal/mail"
	"github.com/tbourn/go-phishing-sim/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// storeRepo binds AttemptRepo to the real repository functions.
type storeRepo struct{}

func (storeRepo) CreateAttempt(ctx context.Context, db *gorm.DB, email, content string) (*domain.PhishingAttempt, error) {
	return repo.CreateAttempt(ctx, db, email, content)
}
func (storeRepo) GetAttempt(ctx context.Context, db *gorm.DB, id string) (*domain.PhishingAttempt, error) {
	return repo.GetAttempt(ctx, db, id)
}
func (storeRepo) SetAttemptStatus(ctx context.Context, db *gorm.DB, id string, st domain.Status) (*domain.PhishingAttempt, error) {
	return repo.SetAttemptStatus(ctx, db, id, st)
}
func (storeRepo) ListAttempts(ctx context.Context, db *gorm.DB) ([]domain.PhishingAttempt, error) {
	return repo.ListAttempts(ctx, db)
}
func (storeRepo) CountAttempts(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountAttempts(ctx, db)
}
func (storeRepo) ListAttemptsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.PhishingAttempt, error) {
	return repo.ListAttemptsPage(ctx, db, offset, limit)
}
func (storeRepo) DeleteAttempt(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteAttempt(ctx, db, id)
}

// recordingMailer captures messages and optionally fails.
type recordingMailer struct {
	mu   sync.Mutex
	err  error
	sent []mail.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	if m.err != nil {
		return &mail.DispatchError{To: msg.To, Err: m.err}
	}
	return nil
}

func (m *recordingMailer) messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}
