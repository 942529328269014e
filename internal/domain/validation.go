package domain

import (
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

// ErrValidation is matched (via errors.Is) by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError describes malformed or missing input. Fields maps the JSON
// field name to a short reason and is safe to return to clients.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is(err, ErrValidation) succeed.
func (e *ValidationError) Unwrap() error { return ErrValidation }

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateNewAttempt checks the inputs of a new attempt: recipientEmail must be
// a syntactically valid address and emailContent must not be blank.
// It returns nil or a *ValidationError.
func ValidateNewAttempt(recipientEmail, emailContent string) error {
	fields := map[string]string{}

	switch {
	case strings.TrimSpace(recipientEmail) == "":
		fields["recipientEmail"] = "is required"
	case validate.Var(recipientEmail, "email") != nil:
		fields["recipientEmail"] = "must be a valid email address"
	}
	if strings.TrimSpace(emailContent) == "" {
		fields["emailContent"] = "is required"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// NormalizeEmail trims the address, applies Unicode NFC and lower-cases the
// domain part. The local part is left as-is since it may be case sensitive.
func NormalizeEmail(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	at := strings.LastIndex(s, "@")
	if at < 0 {
		return s
	}
	return s[:at+1] + strings.ToLower(s[at+1:])
}

// SendRequest is the body of a send request, accepted by both services and
// forwarded unchanged from the management API to the worker.
type SendRequest struct {
	RecipientEmail string `json:"recipientEmail" example:"alice@example.com"`
	EmailContent   string `json:"emailContent"   example:"Please reset your password"`
}

// Validate applies ValidateNewAttempt to the request.
func (r SendRequest) Validate() error {
	return ValidateNewAttempt(r.RecipientEmail, r.EmailContent)
}
