package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Vodeneev/linesniper/internal/pkg/config"
	"github.com/Vodeneev/linesniper/internal/pkg/health"
	"github.com/Vodeneev/linesniper/internal/pkg/logging"
	"github.com/Vodeneev/linesniper/internal/pkg/performance"
	"github.com/Vodeneev/linesniper/internal/pkg/session"
	"github.com/Vodeneev/linesniper/internal/pkg/storage"
	"github.com/Vodeneev/linesniper/internal/sniper"
	"github.com/Vodeneev/linesniper/internal/sniper/alerts"
	"github.com/Vodeneev/linesniper/internal/sniper/leagues"
	"github.com/Vodeneev/linesniper/internal/sniper/markets"
	"github.com/Vodeneev/linesniper/internal/sniper/scheduler"
)

const (
	defaultConfigPath = "configs/production.yaml"
	serviceName       = "sniper"
)

type flags struct {
	configPath string
	loop       bool
	interval   time.Duration
}

func main() {
	if err := run(); err != nil {
		slog.Error("Sniper failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	f := parseFlags()

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, logCloser, err := logging.SetupLogger(&cfg.Logging, serviceName)
	if err != nil {
		slog.Warn("Failed to setup logging, continuing with default logger", "error", err)
		logger = slog.Default()
	}
	defer logCloser.Close()
	logger.Info("Config loaded", "path", f.configPath, "sessions", cfg.Browser.Sessions, "loop", f.loop)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(ctx, cancel, logger)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	sports, err := cfg.SportSet()
	if err != nil {
		return err
	}

	store, err := storage.NewPostgresStore(ctx, &cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer store.Close()

	var (
		observers []scheduler.Observer
		closers   []io.Closer
	)
	if cfg.Redis.Addr != "" {
		publisher, err := storage.NewStreamPublisher(ctx, &cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		observers = append(observers, publisher)
		closers = append(closers, publisher)
	}
	if cfg.Telegram.BotToken != "" {
		rules := alerts.Rules{MinProbShift: cfg.Alerts.MinProbShift, Horizon: cfg.Alerts.Horizon}
		notifier, err := alerts.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, rules, logger)
		if err != nil {
			return fmt.Errorf("failed to create telegram notifier: %w", err)
		}
		observers = append(observers, notifier)
		closers = append(closers, notifier)
	}
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Warn("Failed to close observer", "error", err)
			}
		}
	}()

	pool, err := session.NewPool(ctx, cfg.Browser.Sessions, session.NewChromeFactory(cfg.Browser, logger),
		session.WithLimiter(session.NewNavigationLimiter(cfg.Browser.NavigationsPerMinute)),
		session.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to start browser sessions: %w", err)
	}
	defer func() {
		if err := pool.Shutdown(); err != nil {
			logger.Warn("Browser sessions did not shut down cleanly", "error", err)
		}
	}()

	tracker := performance.NewTracker()
	defer tracker.LogSummary(logger)

	coordinator := leagues.NewCoordinator(pool, store, cfg.Scheduler.LeagueSyncAfter, loc, logger)
	sched := scheduler.New(pool, store, markets.NewExtractor(logger), sports, tracker, logger, observers...)
	s := sniper.New(coordinator, sched, store, tracker, logger)

	if err := s.Prepare(ctx); err != nil {
		return err
	}

	if !f.loop {
		_, err := s.RunOnce(ctx)
		return err
	}

	if cfg.Health.Port > 0 {
		addr, err := health.AddrFor(cfg.Health.Port)
		if err != nil {
			return err
		}
		router := health.NewRouter(health.Deps{
			Tracker:  tracker,
			Pool:     pool,
			Movers:   store,
			Horizon:  cfg.Alerts.Horizon,
			MinShift: cfg.Alerts.MinProbShift,
		})
		if err := health.Run(ctx, addr, serviceName, router, cfg.Health.ReadHeaderTimeout); err != nil {
			return err
		}
	}

	gc, err := startMaintenance(cfg.Maintenance.GCSchedule, store, loc, logger)
	if err != nil {
		return err
	}
	defer func() { <-gc.Stop().Done() }()

	interval := f.interval
	if interval <= 0 {
		interval = cfg.Scheduler.Interval
	}
	return runLoop(ctx, s, interval, logger)
}

func parseFlags() flags {
	var f flags

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}

	flag.StringVar(&f.configPath, "config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	flag.BoolVar(&f.loop, "loop", false, "Keep running cycles until SIGINT/SIGTERM instead of exiting after one")
	flag.DurationVar(&f.interval, "interval", 0, "Pause between cycles in -loop mode. 0 = scheduler.interval from config")
	flag.Parse()
	return f
}

func setupSignalHandler(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Received shutdown signal, finishing current cycle...", "signal", sig.String())
			cancel()
		case <-ctx.Done():
			signal.Stop(sigChan)
		}
	}()
}

// runLoop runs one cycle, waits interval, and repeats until ctx is cancelled.
// A failed cycle is logged and the next one is attempted.
func runLoop(ctx context.Context, s *sniper.Sniper, interval time.Duration, logger *slog.Logger) error {
	logger.Info("Starting refresh loop", "interval", interval)
	for {
		if _, err := s.RunOnce(ctx); err != nil {
			logger.Error("Cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			logger.Info("Refresh loop stopped")
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func startMaintenance(spec string, store sniper.Maintenance, loc *time.Location, logger *slog.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(loc))
	if spec != "" {
		_, err := c.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			n, err := store.DeleteStartedEvents(ctx, time.Now())
			if err != nil {
				logger.Error("Scheduled cleanup failed", "error", err)
				return
			}
			logger.Info("Scheduled cleanup done", "deleted_events", n)
		})
		if err != nil {
			return nil, fmt.Errorf("maintenance.gc_schedule %q: %w", spec, err)
		}
	}
	c.Start()
	return c, nil
}
