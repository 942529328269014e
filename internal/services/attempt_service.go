// Package services – AttemptService
//
// This file implements the management API's record keeping over its own
// attempt store: create, list (with pagination), read, status update and
// delete. Status updates are monotonic; an attempt that was clicked can never
// go back to sent.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-phishing-sim/internal/domain"
	"github.com/tbourn/go-phishing-sim/internal/utils"
)

// AttemptService provides CRUD operations over stored attempts.
type AttemptService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the attempt repository used by this service.
	Repo AttemptRepo
}

// NewAttemptService constructs an AttemptService.
func NewAttemptService(db *gorm.DB, r AttemptRepo) *AttemptService {
	return &AttemptService{DB: db, Repo: r}
}

// Create validates and stores a new attempt in status "sent". No email is sent.
func (s *AttemptService) Create(ctx context.Context, recipientEmail, emailContent string) (*domain.PhishingAttempt, error) {
	return s.Repo.CreateAttempt(ctx, s.DB, recipientEmail, emailContent)
}

// List returns all attempts (non-paginated).
func (s *AttemptService) List(ctx context.Context) ([]domain.PhishingAttempt, error) {
	return s.Repo.ListAttempts(ctx, s.DB)
}

// ListPage returns a page of attempts and the total count.
// It applies defaults for invalid page/pageSize.
func (s *AttemptService) ListPage(ctx context.Context, page, pageSize int) ([]domain.PhishingAttempt, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = utils.DefaultPageSize
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountAttempts(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.PhishingAttempt{}, 0, nil
	}

	items, err := s.Repo.ListAttemptsPage(ctx, s.DB, offset, pageSize)
	return items, total, err
}

// Get returns the attempt identified by id or ErrAttemptNotFound.
func (s *AttemptService) Get(ctx context.Context, id string) (*domain.PhishingAttempt, error) {
	a, err := s.Repo.GetAttempt(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	return a, nil
}

// UpdateStatus moves the attempt to status. Unknown statuses and backwards
// moves yield ErrInvalidTransition; re-applying the current status succeeds.
func (s *AttemptService) UpdateStatus(ctx context.Context, id string, status domain.Status) (*domain.PhishingAttempt, error) {
	if !status.Valid() {
		return nil, ErrInvalidTransition
	}
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cur.Status.CanTransitionTo(status) {
		return nil, ErrInvalidTransition
	}
	if cur.Status == status {
		return cur, nil
	}

	out, err := s.Repo.SetAttemptStatus(ctx, s.DB, id, status)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	return out, nil
}

// MarkClicked is the management-side click route: it sets the attempt to
// clicked in this service's own store.
func (s *AttemptService) MarkClicked(ctx context.Context, id string) (*domain.PhishingAttempt, error) {
	return s.UpdateStatus(ctx, id, domain.StatusClicked)
}

// Delete removes the attempt identified by id or returns ErrAttemptNotFound.
func (s *AttemptService) Delete(ctx context.Context, id string) error {
	if err := s.Repo.DeleteAttempt(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAttemptNotFound
		}
		return err
	}
	return nil
}
