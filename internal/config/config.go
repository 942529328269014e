// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for both
// processes (the management API and the simulation worker) such as server
// timeouts, logging, database paths, mail transport, the worker address and
// observability.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Service identifies which process the configuration is loaded for. It only
// affects defaults (port, database file, service name) and which settings are
// validated.
type Service string

const (
	ServiceManagement Service = "management"
	ServiceSimulation Service = "simulation"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "phishing-simulation")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// MailConfig defines the outbound mail transport used by the simulation worker.
type MailConfig struct {
	Transport          string // MAIL_TRANSPORT: smtp|log
	Host               string // SMTP_HOST
	Port               int    // SMTP_PORT
	Username           string // EMAIL_USER
	Password           string // EMAIL_PASSWORD
	From               string // EMAIL_FROM, defaults to EMAIL_USER
	InsecureSkipVerify bool   // SMTP_INSECURE_SKIP_VERIFY
	Subject            string // PHISHING_SUBJECT
}

// SimulationConfig tells the management API where the worker lives.
type SimulationConfig struct {
	APIURL  string        // SIMULATION_API_URL, including the worker's API_BASE_PATH if it has one
	Timeout time.Duration // SIMULATION_API_TIMEOUT
}

// Config holds all configuration values for the application.
type Config struct {
	Service Service

	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBPath        string // SQLite path
	PublicBaseURL string // SERVER_URL: public origin of the worker (scheme://host[:port]); see TrackingBaseURL

	Mail       MailConfig
	Simulation SimulationConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// TrackingBaseURL is the prefix of emailed tracking links: the public origin
// followed by the API base path the routes are mounted under.
func (c Config) TrackingBaseURL() string {
	if c.APIBasePath == "" || c.APIBasePath == "/" {
		return c.PublicBaseURL
	}
	return c.PublicBaseURL + c.APIBasePath
}

// MustLoad loads the management configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the management API configuration. See LoadFor.
func Load() (Config, error) {
	return LoadFor(ServiceManagement)
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. An empty path means
// "./.env"; a missing default file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	return godotenv.Load(path)
}

// LoadFor reads configuration for svc from environment variables,
// applies defaults, normalizes values, and validates the result.
func LoadFor(svc Service) (Config, error) {
	defPort, defDB, defName := "5000", "management.db", "phishing-management"
	if svc == ServiceSimulation {
		defPort, defDB, defName = "5001", "simulation.db", "phishing-simulation"
	}

	cfg := Config{
		Service: svc,

		// Server
		Port:              getenv("PORT", defPort),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/")),

		// App
		DBPath:        getenv("DB_PATH", defDB),
		PublicBaseURL: strings.TrimRight(getenv("SERVER_URL", "http://localhost:5001"), "/"),

		Mail: MailConfig{
			Transport:          strings.ToLower(getenv("MAIL_TRANSPORT", "smtp")),
			Host:               getenv("SMTP_HOST", "smtp.gmail.com"),
			Port:               getint("SMTP_PORT", 587),
			Username:           getenv("EMAIL_USER", ""),
			Password:           getenv("EMAIL_PASSWORD", ""),
			From:               getenv("EMAIL_FROM", getenv("EMAIL_USER", "")),
			InsecureSkipVerify: getbool("SMTP_INSECURE_SKIP_VERIFY", false),
			Subject:            getenv("PHISHING_SUBJECT", "Phishing Test"),
		},
		Simulation: SimulationConfig{
			APIURL:  strings.TrimRight(getenv("SIMULATION_API_URL", "http://localhost:5001"), "/"),
			Timeout: getdur("SIMULATION_API_TIMEOUT", 10*time.Second),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ORIGIN", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", defName),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch svc {
	case ServiceManagement, ServiceSimulation:
	default:
		return cfg, fmt.Errorf("unknown service %q", svc)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	switch svc {
	case ServiceSimulation:
		if !isHTTPURL(cfg.PublicBaseURL) {
			return cfg, errors.New("SERVER_URL must be an absolute http(s) URL")
		}
		switch cfg.Mail.Transport {
		case "smtp":
			if strings.TrimSpace(cfg.Mail.Host) == "" || cfg.Mail.Port <= 0 {
				return cfg, errors.New("SMTP_HOST and SMTP_PORT are required for MAIL_TRANSPORT=smtp")
			}
			if strings.TrimSpace(cfg.Mail.From) == "" {
				return cfg, errors.New("EMAIL_FROM or EMAIL_USER is required for MAIL_TRANSPORT=smtp")
			}
		case "log":
		default:
			return cfg, errors.New("MAIL_TRANSPORT must be one of: smtp, log")
		}
		if strings.TrimSpace(cfg.Mail.Subject) == "" {
			return cfg, errors.New("PHISHING_SUBJECT must not be empty")
		}
	case ServiceManagement:
		if !isHTTPURL(cfg.Simulation.APIURL) {
			return cfg, errors.New("SIMULATION_API_URL must be an absolute http(s) URL")
		}
		if cfg.Simulation.Timeout <= 0 {
			return cfg, errors.New("SIMULATION_API_TIMEOUT must be > 0")
		}
	}

	return cfg, nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// isHTTPURL reports whether s parses as an absolute http or https URL with a host.
func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
