// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// SecurityHeaders hardens every response of both services. Most callers are
// API clients, but the tracking link is opened by phishing recipients in a
// real browser, and attempt bodies name those recipients. Responses are
// therefore never cacheable (NoStore) and never frameable.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// defaultHSTSMaxAge applies when SecurityOptions.HSTSMaxAge is not positive.
const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions selects the optional header groups.
type SecurityOptions struct {
	// EnableHSTS sends Strict-Transport-Security on HTTPS requests only
	// (direct TLS or X-Forwarded-Proto: https).
	EnableHSTS bool
	HSTSMaxAge time.Duration

	// NoStore marks responses uncacheable: Cache-Control, Pragma, Expires.
	NoStore bool

	// EnablePolicy adds Permissions-Policy and X-Permitted-Cross-Domain-Policies.
	EnablePolicy bool
}

type header struct{ key, value string }

// securityHeaders is the fixed part of the header set for opt, in write order.
func securityHeaders(opt SecurityOptions) []header {
	hs := []header{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		// The tracking URL carries the attempt id; don't leak it onward.
		{"Referrer-Policy", "no-referrer"},
	}
	if opt.EnablePolicy {
		hs = append(hs,
			header{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()"},
			header{"X-Permitted-Cross-Domain-Policies", "none"},
		)
	}
	if opt.NoStore {
		hs = append(hs,
			header{"Cache-Control", "no-store"},
			header{"Pragma", "no-cache"},
			header{"Expires", "0"},
		)
	}
	return hs
}

// hstsValue renders the Strict-Transport-Security value for maxAge.
func hstsValue(maxAge time.Duration) string {
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	return "max-age=" + strconv.Itoa(int(maxAge.Seconds())) + "; includeSubDomains; preload"
}

// SecurityHeaders returns middleware that writes the header set selected by
// opt before the handler runs. When a request id is already on the response
// it is added to Access-Control-Expose-Headers so browser callers can quote
// it in bug reports.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	fixed := securityHeaders(opt)
	hsts := hstsValue(opt.HSTSMaxAge)

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, kv := range fixed {
			h.Set(kv.key, kv.value)
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		if h.Get(requestIDHeader) != "" {
			exposeHeader(h, requestIDHeader)
		}
		c.Next()
	}
}

// exposeHeader appends name to Access-Control-Expose-Headers unless listed.
func exposeHeader(h http.Header, name string) {
	const key = "Access-Control-Expose-Headers"
	cur := h.Get(key)
	switch {
	case cur == "":
		h.Set(key, name)
	case !strings.Contains(cur, name):
		h.Set(key, cur+", "+name)
	}
}

// isHTTPS reports whether r arrived over TLS, directly or behind a proxy that
// set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
