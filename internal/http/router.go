// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, and rate limiting.
//
// Two route sets are exposed, one per process:
//   - RegisterSimulationRoutes: the worker (send + tracking link)
//   - RegisterManagementRoutes: the management API (CRUD + forwarding)
//
// Both share the same middleware stack so the services behave identically at
// the edge.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-phishing-sim/docs"
	"github.com/tbourn/go-phishing-sim/internal/config"
	"github.com/tbourn/go-phishing-sim/internal/domain"
	"github.com/tbourn/go-phishing-sim/internal/http/handlers"
	"github.com/tbourn/go-phishing-sim/internal/http/middleware"
	"github.com/tbourn/go-phishing-sim/internal/mail"
	"github.com/tbourn/go-phishing-sim/internal/repo"
	"github.com/tbourn/go-phishing-sim/internal/services"
)

// attemptRepoShim adapts the repository free functions to the
// services.AttemptRepo interface expected by the services. This keeps
// services decoupled from the concrete repo package.
type attemptRepoShim struct{}

// CreateAttempt proxies repo.CreateAttempt.
func (attemptRepoShim) CreateAttempt(ctx context.Context, db *gorm.DB, recipientEmail, emailContent string) (*domain.PhishingAttempt, error) {
	return repo.CreateAttempt(ctx, db, recipientEmail, emailContent)
}

// GetAttempt proxies repo.GetAttempt.
func (attemptRepoShim) GetAttempt(ctx context.Context, db *gorm.DB, id string) (*domain.PhishingAttempt, error) {
	return repo.GetAttempt(ctx, db, id)
}

// SetAttemptStatus proxies repo.SetAttemptStatus.
func (attemptRepoShim) SetAttemptStatus(ctx context.Context, db *gorm.DB, id string, status domain.Status) (*domain.PhishingAttempt, error) {
	return repo.SetAttemptStatus(ctx, db, id, status)
}

// ListAttempts proxies repo.ListAttempts.
func (attemptRepoShim) ListAttempts(ctx context.Context, db *gorm.DB) ([]domain.PhishingAttempt, error) {
	return repo.ListAttempts(ctx, db)
}

// CountAttempts proxies repo.CountAttempts (pagination support).
func (attemptRepoShim) CountAttempts(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountAttempts(ctx, db)
}

// ListAttemptsPage proxies repo.ListAttemptsPage (pagination support).
func (attemptRepoShim) ListAttemptsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.PhishingAttempt, error) {
	return repo.ListAttemptsPage(ctx, db, offset, limit)
}

// DeleteAttempt proxies repo.DeleteAttempt.
func (attemptRepoShim) DeleteAttempt(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteAttempt(ctx, db, id)
}

// RegisterSimulationRoutes attaches the shared middleware stack and the
// worker's endpoints to r. mailer delivers the phishing emails; tracking
// links are built from cfg.TrackingBaseURL so they hit the mounted route.
func RegisterSimulationRoutes(r *gin.Engine, db *gorm.DB, mailer mail.Dispatcher, cfg config.Config) {
	registerCommon(r, cfg)

	svc := &services.SimulationService{
		DB:      db,
		Repo:    attemptRepoShim{},
		Mailer:  mailer,
		BaseURL: cfg.TrackingBaseURL(),
		From:    cfg.Mail.From,
		Subject: cfg.Mail.Subject,
		Log:     log.With().Str("component", "simulation").Logger(),
	}
	h := handlers.NewSimulation(svc)

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler,
			ginSwagger.InstanceName(docs.SimulationInfo.InstanceName())))
	}

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/phishing/send", h.SendPhishingEmail)
		api.GET("/phishing/track/:id", h.TrackClick)
	}
}

// RegisterManagementRoutes attaches the shared middleware stack and the
// management endpoints to r. client forwards send requests to the worker.
func RegisterManagementRoutes(r *gin.Engine, db *gorm.DB, client services.SimulationClient, cfg config.Config) {
	registerCommon(r, cfg)

	attempts := services.NewAttemptService(db, attemptRepoShim{})
	fwd := services.NewManagementService(client, log.With().Str("component", "management").Logger())
	h := handlers.NewManagement(attempts, fwd)

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler,
			ginSwagger.InstanceName(docs.ManagementInfo.InstanceName())))
	}

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Listing can grow large; compress it for clients that accept gzip.
		api.GET("/phishing", gzip.Gzip(gzip.DefaultCompression), h.ListAttempts)
		api.POST("/phishing", h.CreateAttempt)
		api.POST("/phishing/send", h.SendPhishingEmail)
		api.GET("/phishing/click/:id", h.ClickAttempt)
		api.GET("/phishing/:id", h.GetAttempt)
		api.PUT("/phishing/:id", h.UpdateAttempt)
		api.DELETE("/phishing/:id", h.DeleteAttempt)
	}
}

// registerCommon installs middleware, fallbacks, /health and /metrics.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per IP; /health and /metrics exempt)
//  8. CORS and Security headers
func registerCommon(r *gin.Engine, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics(string(cfg.Service)))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per client IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP()).
		Skip(middleware.SkipPaths("/health", "/metrics"))
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist.
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS).
	// Responses carry recipient addresses, so nothing may be cached.
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": string(cfg.Service)})
	})
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
