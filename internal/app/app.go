// Package app assembles a runnable process from the internal packages. One
// binary serves either the simulation worker or the management API; the
// cobra subcommand picks which.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-phishing-sim/internal/config"
	httpapi "github.com/tbourn/go-phishing-sim/internal/http"
	"github.com/tbourn/go-phishing-sim/internal/mail"
	"github.com/tbourn/go-phishing-sim/internal/observability"
	"github.com/tbourn/go-phishing-sim/internal/repo"
	"github.com/tbourn/go-phishing-sim/internal/simclient"
	"github.com/tbourn/go-phishing-sim/internal/sysutil"
)

// Version is stamped at build time via -ldflags "-X ...app.Version=...".
var Version = "dev"

// shutdownTimeout bounds how long in-flight requests may take to finish.
const shutdownTimeout = 10 * time.Second

// NewRootCmd builds the phishsim command tree.
func NewRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "phishsim",
		Short:         "Phishing simulation services",
		Long:          "phishsim runs the phishing simulation worker or the management API that fronts it.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default ./.env if present)")

	serve := func(svc config.Service) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, svc, envFile)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "simulation",
			Short: "Run the simulation worker (sends emails, records clicks)",
			Args:  cobra.NoArgs,
			RunE:  serve(config.ServiceSimulation),
		},
		&cobra.Command{
			Use:   "management",
			Short: "Run the management API (attempt records, forwards sends)",
			Args:  cobra.NoArgs,
			RunE:  serve(config.ServiceManagement),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the build version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), Version)
			},
		},
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "phishsim: %v\n", err)
		return 1
	}
	return 0
}

// Run loads configuration for svc and serves until ctx is canceled.
func Run(ctx context.Context, svc config.Service, envFile string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	cfg, err := config.LoadFor(svc)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := sysutil.SetupLogger(os.Stderr, string(svc), cfg.LogLevel, cfg.LogPretty)

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, Version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	engine, err := NewEngine(cfg, db, logger)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen on :%s: %w", cfg.Port, err)
	}
	logger.Info().Str("addr", ln.Addr().String()).Str("version", Version).Msg("listening")

	return Serve(ctx, NewServer(cfg, engine), ln)
}

// openStore opens the SQLite file, enables query tracing and migrates.
func openStore(path string) (*gorm.DB, error) {
	db, err := repo.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	if err := repo.EnableTracing(db); err != nil {
		return nil, fmt.Errorf("gorm tracing: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// NewEngine builds the gin engine for cfg.Service.
func NewEngine(cfg config.Config, db *gorm.DB, logger zerolog.Logger) (*gin.Engine, error) {
	gin.SetMode(cfg.GinMode)
	r := gin.New()

	switch cfg.Service {
	case config.ServiceSimulation:
		mailer, err := mail.New(cfg.Mail.Transport, mail.SMTPConfig{
			Host:               cfg.Mail.Host,
			Port:               cfg.Mail.Port,
			Username:           cfg.Mail.Username,
			Password:           cfg.Mail.Password,
			InsecureSkipVerify: cfg.Mail.InsecureSkipVerify,
		}, logger.With().Str("component", "mail").Logger())
		if err != nil {
			return nil, err
		}
		httpapi.RegisterSimulationRoutes(r, db, mailer, cfg)
	case config.ServiceManagement:
		client := simclient.New(cfg.Simulation.APIURL, cfg.Simulation.Timeout,
			logger.With().Str("component", "simclient").Logger())
		httpapi.RegisterManagementRoutes(r, db, client, cfg)
	default:
		return nil, fmt.Errorf("unknown service %q", cfg.Service)
	}
	return r, nil
}

// NewServer wraps h in an http.Server with the configured limits.
func NewServer(cfg config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}

// Serve runs srv on ln until ctx is done, then drains in-flight requests.
// A clean shutdown returns nil.
func Serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
