// Package mail delivers simulated phishing emails.
//
// A Dispatcher hands one HTML message to a transport and reports the outcome.
// Dispatchers never retry: a failed delivery is returned to the caller as a
// *DispatchError and the decision to resend is left to whoever issued the
// request. All implementations are safe for concurrent use.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// ErrDispatch is matched by every *DispatchError.
var ErrDispatch = errors.New("mail dispatch failed")

// DispatchError reports that the transport rejected or could not deliver a
// message to To. Err is the underlying transport error.
type DispatchError struct {
	To  string
	Err error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch to %s: %v", e.To, e.Err)
}

func (e *DispatchError) Unwrap() []error { return []error{ErrDispatch, e.Err} }

// Message is a single outbound HTML email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Dispatcher sends one message. Implementations must not retry.
type Dispatcher interface {
	Send(ctx context.Context, m Message) error
}

var dispatchTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "phishing_mail_dispatch_total",
		Help: "Phishing emails handed to a mail transport, by transport and result.",
	},
	[]string{"transport", "result"},
)

func init() {
	prometheus.MustRegister(dispatchTotal)
}

func observe(transport string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	dispatchTotal.WithLabelValues(transport, result).Inc()
}

// SMTPConfig configures an SMTPDispatcher.
type SMTPConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	InsecureSkipVerify bool
}

// sender is the part of *gomail.Dialer the dispatcher uses.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPDispatcher delivers messages over SMTP, opening one connection per send.
type SMTPDispatcher struct {
	host   string
	dialer sender
	log    zerolog.Logger
}

// NewSMTPDispatcher builds an SMTP dispatcher. STARTTLS is negotiated when the
// server offers it; InsecureSkipVerify disables certificate checks.
func NewSMTPDispatcher(cfg SMTPConfig, log zerolog.Logger) *SMTPDispatcher {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.InsecureSkipVerify {
		log.Warn().Str("host", cfg.Host).Msg("smtp tls verification disabled")
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true, ServerName: cfg.Host} // #nosec G402 -- opt-in for local relays
	}
	return &SMTPDispatcher{host: cfg.Host, dialer: d, log: log}
}

// Send implements Dispatcher.
func (s *SMTPDispatcher) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		observe("smtp", err)
		return &DispatchError{To: m.To, Err: err}
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/html", m.HTML)

	err := s.dialer.DialAndSend(msg)
	observe("smtp", err)
	if err != nil {
		s.log.Error().Err(err).Str("host", s.host).Msg("smtp send failed")
		return &DispatchError{To: m.To, Err: err}
	}
	s.log.Debug().Str("host", s.host).Msg("smtp send ok")
	return nil
}

// LogDispatcher writes messages to the logger instead of sending them.
// Intended for local development.
type LogDispatcher struct {
	log zerolog.Logger
}

func NewLogDispatcher(log zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

// Send implements Dispatcher.
func (d *LogDispatcher) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		observe("log", err)
		return &DispatchError{To: m.To, Err: err}
	}
	d.log.Info().
		Str("from", m.From).
		Str("to", m.To).
		Str("subject", m.Subject).
		Int("html_bytes", len(m.HTML)).
		Msg("mail (log transport)")
	observe("log", nil)
	return nil
}

// NopDispatcher accepts and discards every message.
type NopDispatcher struct{}

func (NopDispatcher) Send(context.Context, Message) error { return nil }

// New picks a dispatcher by transport name ("smtp" or "log").
func New(transport string, cfg SMTPConfig, log zerolog.Logger) (Dispatcher, error) {
	switch transport {
	case "smtp":
		return NewSMTPDispatcher(cfg, log), nil
	case "log":
		return NewLogDispatcher(log), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", transport)
	}
}
