// Package domain defines the persistence model for phishing attempts and the
// small set of rules that govern it. The types are mapped with GORM and are
// shared by both the simulation worker and the management service.
package domain

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a phishing attempt.
type Status string

const (
	// StatusSent is the initial state of every attempt.
	StatusSent Status = "sent"
	// StatusClicked is terminal: the recipient followed the tracking link.
	StatusClicked Status = "clicked"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusSent || s == StatusClicked
}

// CanTransitionTo reports whether an attempt in state s may be moved to next.
// Status only ever moves forward; re-applying the current state is allowed so
// that repeated clicks stay harmless.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusSent:
		return next == StatusSent || next == StatusClicked
	case StatusClicked:
		return next == StatusClicked
	default:
		return false
	}
}

// PhishingAttempt records a single simulated phishing email sent to one
// recipient, and whether the recipient activated its tracking link.
//
// Fields:
//   - ID: UUID primary key (char(36)), assigned by the store.
//   - RecipientEmail: validated address the message was sent to.
//   - EmailContent: operator-supplied body, stored verbatim.
//   - Status: "sent" or "clicked" (enforced by DB constraint).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//
// Attempts are hard-deleted; there is no soft delete column.
type PhishingAttempt struct {
	ID             string    `json:"id"             gorm:"type:char(36);primaryKey"`
	RecipientEmail string    `json:"recipientEmail" gorm:"type:varchar(320);not null;index"`
	EmailContent   string    `json:"emailContent"   gorm:"type:text;not null"`
	Status         Status    `json:"status"         gorm:"type:varchar(16);not null;default:'sent';check:status IN ('sent','clicked')"`
	CreatedAt      time.Time `json:"createdAt"      gorm:"index"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TableName returns the database table name for PhishingAttempt.
func (PhishingAttempt) TableName() string { return "phishing_attempts" }

// ForwardedAttempt is an attempt created by the simulation worker, kept
// together with the JSON body the worker returned for it. It encodes as
// that body, byte for byte, so the management API relays the worker's
// record without dropping fields it does not know about.
type ForwardedAttempt struct {
	PhishingAttempt
	Raw json.RawMessage `json:"-"`
}

// MarshalJSON returns Raw when present and the decoded attempt otherwise.
func (f ForwardedAttempt) MarshalJSON() ([]byte, error) {
	if len(f.Raw) > 0 {
		return f.Raw, nil
	}
	return json.Marshal(f.PhishingAttempt)
}
