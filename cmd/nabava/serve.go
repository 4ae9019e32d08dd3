package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/erazemk/nabava/internal/analysis"
	"github.com/erazemk/nabava/internal/api"
	"github.com/erazemk/nabava/internal/config"
	"github.com/erazemk/nabava/internal/db"
	"github.com/erazemk/nabava/internal/insight"
	"github.com/erazemk/nabava/internal/logger"
	"github.com/erazemk/nabava/internal/mail"
	"github.com/erazemk/nabava/internal/metrics"
	"github.com/erazemk/nabava/internal/negotiation"
	"github.com/erazemk/nabava/internal/oracle"
	"github.com/erazemk/nabava/internal/store"
	"github.com/erazemk/nabava/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) (err error) {
	log := logger.New(logger.Options{
		ServiceName: "nabava",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		Output:      os.Stdout,
	})

	// A missing database is created with a fresh admin account.
	if _, err := os.Stat(cfg.DB.Path); errors.Is(err, os.ErrNotExist) {
		database, password, err := initDatabase(ctx, cfg.DB.Path, "admin")
		if err != nil {
			return err
		}
		database.Close()
		printInitResult(cfg.DB.Path, "admin", password)
	}

	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, database.Close()) }()

	if err := db.Migrate(ctx, database); err != nil {
		return err
	}
	schemaVersion, _ := db.Version(ctx, database)
	log.Info(log.WithFields(ctx, map[string]any{
		"path":           cfg.DB.Path,
		"schema_version": schemaVersion,
	}), "database ready")

	if _, _, err := housekeeping(ctx, log, database, time.Now()); err != nil {
		return err
	}

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		// Persisted so tokens survive restarts.
		if jwtSecret, err = store.GetJWTSecret(ctx, database); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	o, err := oracle.New(ctx, cfg.Oracle, m)
	if err != nil {
		log.Warn(log.WithField(ctx, "provider", cfg.Oracle.Provider), "oracle unavailable, using fallbacks", err)
		o = oracle.Instrument(oracle.Disabled{}, 0, m)
	}

	var mailer mail.Mailer = mail.NewLog(log)
	if cfg.Mail.Enabled {
		mailer = mail.NewSMTP(cfg.Mail.Host, cfg.Mail.Port)
	}

	driver := negotiation.NewDriver(database, o, mailer, negotiation.Options{
		ReplyDelay:   cfg.Negotiation.ReplyDelay,
		DefaultUnits: cfg.Negotiation.DefaultUnits,
		From:         cfg.Mail.From,
		Inbox:        cfg.Mail.Inbox,
		Metrics:      m,
		Logger:       log,
	})
	defer driver.Close()

	pipeline := insight.New(database, o, m, log)

	router := api.NewRouter(api.Deps{
		DB:           database,
		JWTSecret:    jwtSecret,
		WebhookToken: cfg.Auth.WebhookToken,
		Version:      version,
		CORSOrigins:  cfg.CORS.AllowedOrigins,
		Driver:       driver,
		Insights:     pipeline,
		Analyzer:     analysis.New(database, o, log),
		Metrics:      m,
		Gatherer:     reg,
		Logger:       log,
	})

	server := &http.Server{
		Addr:              cfg.App.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Uploads draft every low-stock item through the oracle.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	var chats *watcher.Watcher
	if cfg.Watcher.Enabled {
		if chats, err = watcher.New(cfg.Watcher.Dir, cfg.Watcher.Debounce, pipeline, log); err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", cfg.App.Addr)
	if err != nil {
		if chats != nil {
			chats.Stop()
		}
		return fmt.Errorf("listening on %s: %w", cfg.App.Addr, err)
	}
	if cfg.App.MaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.App.MaxConns)
	}

	g, gctx := errgroup.WithContext(ctx)
	if chats != nil {
		g.Go(func() error { return chats.Run(gctx) })
	}
	g.Go(func() error {
		log.Info(log.WithField(ctx, "addr", ln.Addr().String()), "server started")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info(ctx, "server stopped")
	return nil
}

// housekeeping drops revocations of tokens that have expired anyway and
// warns when no operator can log in.
func housekeeping(ctx context.Context, log *logger.Logger, database *sql.DB, now time.Time) (purged int64, operators int, err error) {
	purged, err = store.PurgeExpiredTokens(ctx, database, now)
	if err != nil {
		return 0, 0, err
	}
	if purged > 0 {
		log.Info(log.WithField(ctx, "purged", purged), "expired token revocations removed")
	}

	operators, err = store.CountUsers(ctx, database)
	if err != nil {
		return purged, 0, err
	}
	if operators == 0 {
		log.Warn(ctx, "no active operator accounts, add one with `nabava user add`", nil)
	}
	return purged, operators, nil
}
