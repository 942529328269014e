// Package simclient is the management API's HTTP client for the simulation
// worker.
//
// The client performs exactly one request per call; it never retries. Errors
// are classified so the caller can tell "nobody is listening at the configured
// address" (ErrUpstreamUnavailable) apart from "the worker answered, or took
// too long to answer" (ErrUpstream). W3C trace context and X-Request-ID are
// forwarded so a request can be followed across both processes.
package simclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/tbourn/go-phishing-sim/internal/domain"
	"github.com/tbourn/go-phishing-sim/internal/sysutil"
)

// DefaultTimeout bounds a single forwarded request.
const DefaultTimeout = 10 * time.Second

// SendPath is the worker route that sends a phishing email.
const SendPath = "/phishing/send"

// maxResponseBytes caps how much of a worker response is read.
const maxResponseBytes = 1 << 20

var (
	// ErrUpstreamUnavailable is matched by *UpstreamUnavailableError.
	ErrUpstreamUnavailable = errors.New("simulation service unavailable")
	// ErrUpstream is matched by *UpstreamError.
	ErrUpstream = errors.New("simulation service error")
)

// UpstreamUnavailableError means no connection could be made to Addr
// (refused, DNS failure, unreachable host, dial timeout).
type UpstreamUnavailableError struct {
	Addr string
	Err  error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("could not connect to simulation service at %s: %v", e.Addr, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() []error { return []error{ErrUpstreamUnavailable, e.Err} }

// UpstreamError means the worker was reached but the exchange failed: it
// answered with a non-2xx status, sent an unreadable body, or accepted the
// connection but did not answer within the timeout. StatusCode is 0 when no response was received. Code,
// Message and Fields are copied from the worker's error envelope when present.
type UpstreamError struct {
	StatusCode int
	Code       string
	Message    string
	Fields     map[string]string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return "simulation service: " + e.Message
	}
	return fmt.Sprintf("simulation service returned %d: %s", e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

var upstreamTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "phishing_upstream_requests_total",
		Help: "Requests forwarded to the simulation service, by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(upstreamTotal)
}

// Client forwards send requests to the simulation worker.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// New returns a Client for the worker at baseURL (scheme://host[:port] plus
// the worker's API base path, if any; no trailing slash). SendPath is
// appended to it. A non-positive timeout selects DefaultTimeout.
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Addr is the configured worker address.
func (c *Client) Addr() string { return c.baseURL }

// workerError mirrors the worker's error envelope.
type workerError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

// Send posts req to the worker and returns the attempt it created, along
// with the worker's response body unchanged.
func (c *Client) Send(ctx context.Context, req domain.SendRequest) (*domain.ForwardedAttempt, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	// connected flips once a TCP connection to the worker exists; failures
	// before that point mean the configured address is not serving.
	var connected atomic.Bool
	trace := &httptrace.ClientTrace{
		GotConn: func(httptrace.GotConnInfo) { connected.Store(true) },
	}
	hreq, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace),
		http.MethodPost, c.baseURL+SendPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "application/json")
	if rid := sysutil.RequestIDFrom(ctx); rid != "" {
		hreq.Header.Set("X-Request-ID", rid)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(hreq.Header))

	resp, err := c.http.Do(hreq)
	if err != nil {
		out := c.classify(ctx, err, connected.Load())
		c.log.Warn().Err(out).Str("addr", c.baseURL).Msg("simulation request failed")
		return nil, out
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		upstreamTotal.WithLabelValues("error").Inc()
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: "reading response: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var we workerError
		_ = json.Unmarshal(raw, &we)
		if we.Message == "" {
			we.Message = http.StatusText(resp.StatusCode)
		}
		outcome := "error"
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			outcome = "rejected"
		}
		upstreamTotal.WithLabelValues(outcome).Inc()
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Code: we.Code, Message: we.Message, Fields: we.Fields}
	}

	out := &domain.ForwardedAttempt{Raw: json.RawMessage(raw)}
	if err := json.Unmarshal(raw, &out.PhishingAttempt); err != nil || out.ID == "" {
		upstreamTotal.WithLabelValues("error").Inc()
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: "undecodable response body"}
	}
	upstreamTotal.WithLabelValues("ok").Inc()
	return out, nil
}

// classify maps a transport error from http.Client.Do. Anything that fails
// before a connection is established is an UpstreamUnavailableError, dial
// timeouts included. Once connected, timeouts and other failures are
// UpstreamErrors. A caller that cancels its own context gets an UpstreamError.
func (c *Client) classify(ctx context.Context, err error, connected bool) error {
	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		upstreamTotal.WithLabelValues("error").Inc()
		return &UpstreamError{Message: "request canceled"}
	case !connected || isConnectError(err):
		upstreamTotal.WithLabelValues("unavailable").Inc()
		return &UpstreamUnavailableError{Addr: c.baseURL, Err: err}
	case errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()):
		upstreamTotal.WithLabelValues("timeout").Inc()
		return &UpstreamError{Message: fmt.Sprintf("no response within %s", c.http.Timeout)}
	default:
		upstreamTotal.WithLabelValues("error").Inc()
		return &UpstreamError{Message: err.Error()}
	}
}

func isConnectError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
