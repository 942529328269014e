// Package services – SimulationService
//
// This file implements the worker side of the simulation: it records an
// attempt, mails the phishing message carrying the attempt's tracking link,
// and marks attempts as clicked when that link is followed.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-phishing-sim/internal/domain"
	"github.com/tbourn/go-phishing-sim/internal/mail"
)

// ClickedMessage is the fixed acknowledgement returned by TrackClick.
const ClickedMessage = "Phishing link clicked successfully"

// DefaultSubject is used when SimulationService.Subject is empty.
const DefaultSubject = "Phishing Test"

// AttemptRepo defines the repository contract required by the services.
// Implementations are responsible for persistence of attempts.
type AttemptRepo interface {
	// CreateAttempt validates and inserts a new attempt in status "sent".
	CreateAttempt(ctx context.Context, db *gorm.DB, recipientEmail, emailContent string) (*domain.PhishingAttempt, error)

	// GetAttempt fetches an attempt by id.
	GetAttempt(ctx context.Context, db *gorm.DB, id string) (*domain.PhishingAttempt, error)

	// SetAttemptStatus overwrites an attempt's status.
	SetAttemptStatus(ctx context.Context, db *gorm.DB, id string, status domain.Status) (*domain.PhishingAttempt, error)

	// ListAttempts returns every attempt (non-paginated).
	ListAttempts(ctx context.Context, db *gorm.DB) ([]domain.PhishingAttempt, error)

	// CountAttempts returns the total number of attempts for pagination.
	CountAttempts(ctx context.Context, db *gorm.DB) (int64, error)

	// ListAttemptsPage returns a page of attempts.
	ListAttemptsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.PhishingAttempt, error)

	// DeleteAttempt removes an attempt permanently.
	DeleteAttempt(ctx context.Context, db *gorm.DB, id string) error
}

// TrackResult is the outcome of a recorded click. It deliberately carries no
// attempt data so the tracking endpoint leaks nothing about the recipient.
type TrackResult struct {
	Message string `json:"message"`
}

// SimulationService sends phishing emails and records clicks.
type SimulationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the attempt repository.
	Repo AttemptRepo
	// Mailer delivers the rendered message.
	Mailer mail.Dispatcher

	// BaseURL is the public origin tracking links point at, without a trailing slash.
	BaseURL string
	// From is the sender address.
	From string
	// Subject is the subject line of every phishing email.
	Subject string

	Log zerolog.Logger
}

// SendPhishingEmail validates the request, persists a new attempt with status
// "sent" and mails the phishing message to recipientEmail.
//
// The attempt is stored before delivery so the tracking link is valid the
// moment the email arrives. A delivery failure leaves the stored attempt in
// place (status "sent") and is returned as a *mail.DispatchError; the attempt
// itself is not returned in that case. On success the returned record is the
// one that was stored before sending, so its status is always "sent".
func (s *SimulationService) SendPhishingEmail(ctx context.Context, recipientEmail, emailContent string) (*domain.PhishingAttempt, error) {
	a, err := s.Repo.CreateAttempt(ctx, s.DB, recipientEmail, emailContent)
	if err != nil {
		return nil, err
	}

	msg := mail.Message{
		From:    s.From,
		To:      a.RecipientEmail,
		Subject: s.subject(),
		HTML:    RenderBody(a.EmailContent, s.TrackingLink(a.ID)),
	}
	if err := s.Mailer.Send(ctx, msg); err != nil {
		s.Log.Warn().Err(err).Str("attempt_id", a.ID).Msg("phishing email not delivered")
		return nil, err
	}

	s.Log.Info().Str("attempt_id", a.ID).Msg("phishing email sent")
	return a, nil
}

// TrackClick marks the attempt identified by id as clicked. Repeated clicks
// succeed and leave the status unchanged. Unknown ids yield ErrAttemptNotFound
// and never create a record.
func (s *SimulationService) TrackClick(ctx context.Context, id string) (*TrackResult, error) {
	if _, err := s.Repo.SetAttemptStatus(ctx, s.DB, id, domain.StatusClicked); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	return &TrackResult{Message: ClickedMessage}, nil
}

// TrackingLink returns the public URL that records a click for id.
func (s *SimulationService) TrackingLink(id string) string {
	return s.BaseURL + "/phishing/track/" + url.PathEscape(id)
}

func (s *SimulationService) subject() string {
	if s.Subject == "" {
		return DefaultSubject
	}
	return s.Subject
}

// RenderBody builds the HTML body: the operator's content followed by the
// tracking anchor. The content is inserted verbatim.
func RenderBody(content, link string) string {
	return fmt.Sprintf(`%s <br><br> <a href="%s">Click here</a>`, content, link)
}
