// Package services defines the business logic of the phishing simulation:
// sending and tracking attempts on the worker, forwarding and CRUD on the
// management side. This file centralizes service-level error values so that
// they can be consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer. Validation failures are reported as *domain.ValidationError
// and delivery failures as *mail.DispatchError; both pass through unchanged.
package services

import "errors"

var (
	// ErrAttemptNotFound indicates that no attempt exists with the given id.
	ErrAttemptNotFound = errors.New("attempt not found")

	// ErrInvalidTransition is returned when a status update would move an
	// attempt backwards (clicked -> sent) or to an unknown status.
	ErrInvalidTransition = errors.New("invalid status transition")
)
