// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// PhishingAttempt model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: input validation for new rows
// and CRUD persistence, no orchestration.
//
// Error semantics:
//   - When an attempt is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - CreateAttempt returns a *domain.ValidationError for malformed input and
//     writes nothing in that case.
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Concurrency:
//   - Status changes are a single UPDATE keyed by id. Writers to the same row
//     are serialized by SQLite's write lock; the last status write wins, which
//     is harmless because the only transition is idempotent.
//   - A SetAttemptStatus racing DeleteAttempt either updates the row before it
//     is removed or matches zero rows and returns ErrNotFound.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-phishing-sim/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateAttempt validates the input and inserts a new attempt with status
// "sent". The ID is a random UUID and CreatedAt is set to the current UTC time.
//
// On success, it returns the persisted attempt.
func CreateAttempt(ctx context.Context, db *gorm.DB, recipientEmail, emailContent string) (*domain.PhishingAttempt, error) {
	if err := domain.ValidateNewAttempt(recipientEmail, emailContent); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	a := &domain.PhishingAttempt{
		ID:             uuid.NewString(),
		RecipientEmail: domain.NormalizeEmail(recipientEmail),
		EmailContent:   emailContent,
		Status:         domain.StatusSent,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// GetAttempt fetches a single attempt by ID. If the record does not exist,
// it returns ErrNotFound.
func GetAttempt(ctx context.Context, db *gorm.DB, id string) (*domain.PhishingAttempt, error) {
	var a domain.PhishingAttempt
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// SetAttemptStatus overwrites the status of the attempt identified by id,
// regardless of its prior status, and returns the updated record. It returns
// ErrNotFound when no row matches.
func SetAttemptStatus(ctx context.Context, db *gorm.DB, id string, status domain.Status) (*domain.PhishingAttempt, error) {
	var out domain.PhishingAttempt
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.PhishingAttempt{}).
			Where("id = ?", id).
			Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("id = ?", id).First(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAttempts returns all attempts, most recent first. Callers must not
// depend on the order.
func ListAttempts(ctx context.Context, db *gorm.DB) ([]domain.PhishingAttempt, error) {
	var out []domain.PhishingAttempt
	err := db.WithContext(ctx).
		Order("created_at desc, id desc").
		Find(&out).Error
	return out, err
}

// CountAttempts returns the total number of attempts.
func CountAttempts(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.PhishingAttempt{}).
		Count(&total).Error
	return total, err
}

// ListAttemptsPage returns a page of attempts, most recent first. Use
// CountAttempts to obtain the total for pagination metadata.
func ListAttemptsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.PhishingAttempt, error) {
	var out []domain.PhishingAttempt
	err := db.WithContext(ctx).
		Order("created_at desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// DeleteAttempt permanently removes the attempt identified by id. It returns
// ErrNotFound when no row matches.
func DeleteAttempt(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.PhishingAttempt{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
