package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/brojonat/coinguard/service/config"
	"github.com/brojonat/coinguard/service/dataset"
	"github.com/brojonat/coinguard/service/db"
	"github.com/brojonat/coinguard/service/metrics"
	natspkg "github.com/brojonat/coinguard/service/nats"
	"github.com/brojonat/coinguard/service/server"
	"github.com/brojonat/coinguard/service/validator"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Fails fast if any config is missing or invalid
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
		"network", cfg.Network,
		"dataset_source", cfg.DatasetSource,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("server shutdown complete")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	params, err := cfg.NetworkParams()
	if err != nil {
		return err
	}

	m := metrics.NewMetrics(nil)

	// Postgres and NATS are independent; connect to both at once.
	var (
		pool      *pgxpool.Pool
		publisher *natspkg.JetStreamPublisher
	)
	g, gctx := errgroup.WithContext(ctx)
	if cfg.DatabaseURL != "" {
		g.Go(func() error {
			p, err := pgxpool.New(gctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			if err := p.Ping(gctx); err != nil {
				p.Close()
				return fmt.Errorf("failed to ping database: %w", err)
			}
			pool = p
			logger.Info("connected to database")
			return nil
		})
	}
	if cfg.NATSURL != "" {
		g.Go(func() error {
			p, err := natspkg.NewPublisher(cfg.NATSURL, cfg.NATSStream, logger, m)
			if err != nil {
				return err
			}
			publisher = p
			return nil
		})
	}
	waitErr := g.Wait()
	if pool != nil {
		defer pool.Close()
	}
	if publisher != nil {
		defer publisher.Close()
	}
	if waitErr != nil {
		return waitErr
	}

	var store *db.Store
	if pool != nil {
		store = db.NewStore(pool).WithMetrics(m)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	opts := validator.Options{
		Network:       params,
		Metrics:       m,
		Logger:        logger,
		RequireLoaded: cfg.RequireLoaded,
	}
	var notifier *natspkg.ShortfallNotifier
	if publisher != nil {
		notifier = natspkg.NewShortfallNotifier(publisher, params, logger)
		opts.Notifier = notifier
		defer notifier.Wait()
	}

	v, err := validator.New(opts)
	if err != nil {
		return err
	}

	var lineStore dataset.LineStore
	if store != nil {
		lineStore = store
	}
	source, err := dataset.New(cfg.DatasetConfig(), lineStore)
	if err != nil {
		return err
	}

	lines, err := dataset.Fetch(ctx, source, m)
	if err != nil {
		return err
	}
	// A malformed dataset is a packaging defect: refuse to start.
	if _, err := v.Load(lines); err != nil {
		return err
	}

	httpServer := server.New(cfg.ServerAddr, v, source, cfg.AllowReload, m, logger)

	g, gctx = errgroup.WithContext(ctx)
	g.Go(httpServer.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server gracefully: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	level, err := config.ParseLogLevel(levelStr)
	if err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
