package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/hoardings/internal/cache"
	"github.com/vbonduro/hoardings/internal/config"
	"github.com/vbonduro/hoardings/internal/db"
	"github.com/vbonduro/hoardings/internal/logging"
	"github.com/vbonduro/hoardings/internal/metrics"
	"github.com/vbonduro/hoardings/internal/notify"
	"github.com/vbonduro/hoardings/internal/photostore/local"
	"github.com/vbonduro/hoardings/internal/service"
	"github.com/vbonduro/hoardings/internal/store"
	"github.com/vbonduro/hoardings/internal/web"
	"github.com/vbonduro/hoardings/internal/web/templates"
)

func main() {
	// A missing .env is fine; the environment may be set by the container.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	if err := run(cfg, logger); err != nil {
		logger.Error("hoardings exited", "error", err)
		cleanup()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	photoStg, err := local.NewLocalPhotoStore(cfg.PhotoPath)
	if err != nil {
		return err
	}

	listCache := newListCache(ctx, cfg, logger)
	if closer, ok := listCache.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Error("failed to close cache", "error", err)
			}
		}()
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}

	svc := service.NewHoardingService(
		store.NewHoardingStore(database),
		store.NewEnquiryStore(database),
		photoStg,
		notifier,
		listCache,
		cfg.CacheTTL,
		logger,
	)

	server := web.NewServer(svc, templates.FS, logger, web.Options{
		MaxUploadBytes:       cfg.MaxUploadBytes(),
		EnquiryRatePerMinute: cfg.EnquiryRatePerMinute,
		TrustProxyHeaders:    cfg.TrustProxyHeaders,
		MetricsHandler:       metrics.MetricsHandler(metrics.InitRegistry()),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx, cfg.ListenAddr)
	})
	return g.Wait()
}

// newListCache connects to Redis when configured. An unreachable Redis is
// logged and kept: list reads fall through to SQLite until it recovers.
func newListCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) cache.Cache {
	if !cfg.CacheEnabled() {
		logger.Info("list cache disabled")
		return cache.Nop{}
	}

	rc := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		logger.Warn("redis unreachable, continuing without cache hits", "addr", cfg.RedisAddr, "error", err)
	} else {
		logger.Info("using redis list cache", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	}
	return rc
}

func newNotifier(cfg *config.Config, logger *slog.Logger) (notify.Notifier, error) {
	if !cfg.SMTPEnabled() {
		logger.Warn("SMTP_HOST not set, enquiry notifications will only be logged")
		return notify.NewLogNotifier(logger, cfg.NotifyTo), nil
	}

	logger.Info("using SMTP notifier", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
	return notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		Username:   cfg.SMTPUsername,
		Password:   cfg.SMTPPassword,
		From:       cfg.SMTPFrom,
		To:         cfg.NotifyTo,
		Timeout:    cfg.SMTPTimeout,
		RequireTLS: cfg.SMTPRequireTLS,
	})
}
