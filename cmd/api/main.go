// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/browser"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/codegen"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/config"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/ingest"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/logging"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/persistence/postgres"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/processor"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/realtime"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/repository"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/session"
	httptransport "github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/transport/http"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/transport/middleware"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/worker"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func loadConfig() config.Config {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		return config.Load()
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	return cfg
}

func main() {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	logger := logging.NewLogger(cfg.Env)

	var (
		pool   *pgxpool.Pool
		store  session.Store
		health httptransport.HealthChecker
	)
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolConfig{
			MaxConns: int32(cfg.DBMaxConns),
		})
		if err != nil {
			log.Fatalf("db connect failed: %v", err)
		}
		defer pool.Close()

		if cfg.AutoMigrate {
			if err := postgres.EnsureSchema(ctx, pool, logger); err != nil {
				log.Fatalf("schema bootstrap failed: %v", err)
			}
		}
		store = repository.NewSessionRepository(pool, logger)
		health = postgres.NewSchemaHealthChecker(pool)
	} else {
		logger.Warn("DATABASE_URL not set; sessions are kept in memory only")
	}

	hub := realtime.NewHub(cfg.SubscriberBuf, logging.Component(logger, "realtime"))

	g, gctx := errgroup.WithContext(ctx)

	if cfg.NATSURL != "" {
		nc, err := realtime.DialNATS(cfg.NATSURL, "recorder-api", 10*time.Second)
		if err != nil {
			log.Fatalf("nats connect failed: %v", err)
		}
		defer nc.Close()

		fwd := realtime.NewNATSForwarder(nc, logging.Component(logger, "nats"))
		hub.AddForwarder(fwd)
		g.Go(func() error { return fwd.Run(gctx) })
	}

	capabilities, err := browser.NewFactory(browser.Options{
		Driver:        cfg.BrowserDriver,
		Bin:           cfg.BrowserBin,
		LaunchTimeout: cfg.LaunchTimeout,
		ForceHeadless: cfg.BrowserHeadless,
		Logger:        logging.Component(logger, "browser"),
	})
	if err != nil {
		log.Fatalf("browser driver: %v", err)
	}

	manager := session.New(session.Deps{
		Capabilities:  capabilities,
		Publisher:     hub,
		Store:         store,
		Processor:     processor.New(cfg.DedupWindow),
		Logger:        logging.Component(logger, "session"),
		PublicBaseURL: cfg.PublicBaseURL,
		EvictAfter:    cfg.EvictAfter,
	})

	gateway, err := ingest.New(ingest.Deps{
		Engine:    manager,
		Publisher: hub,
		CacheSize: cfg.AckCacheSize,
		Logger:    logging.Component(logger, "ingest"),
	})
	if err != nil {
		log.Fatalf("ingest gateway: %v", err)
	}

	handler := httptransport.NewRouter(httptransport.Deps{
		Sessions:      manager,
		Intake:        gateway,
		Generator:     codegen.New(logging.Component(logger, "codegen")),
		Hub:           hub,
		Health:        health,
		IngestLimiter: middleware.NewKeyedLimiter(cfg.IngestRate, cfg.IngestBurst),
		Logger:        logger,
		Version:       Version,
		Commit:        Commit,
		BuildDate:     BuildDate,
	})

	janitor := worker.New(worker.Deps{
		Sessions: manager,
		Logger:   logging.Component(logger, "janitor"),
		Interval: cfg.JanitorInterval,
	})
	g.Go(func() error { return janitor.Run(gctx) })

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		logger.Info("api listening",
			"addr", cfg.HTTPAddr,
			"version", Version,
			"commit", Commit,
			"build_date", BuildDate,
			"persistent", store != nil,
		)

		if err := srv.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			5*time.Second,
		)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
		stopSessions(shutdownCtx, manager, logger)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// stopSessions releases every live browser before exit.
func stopSessions(ctx context.Context, m *session.Manager, logger *slog.Logger) {
	live, err := m.List(ctx, domain.SessionFilter{ActiveOnly: true})
	if err != nil {
		logger.Warn("list sessions on shutdown failed", "error", err)
		return
	}
	for _, s := range live {
		if _, err := m.Stop(ctx, s.ID); err != nil {
			logger.Warn("session stop on shutdown failed", "session_id", s.ID, "error", err)
		}
	}
}
