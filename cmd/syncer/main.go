package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"likesync/internal/api"
	"likesync/internal/auth"
	"likesync/internal/config"
	"likesync/internal/logging"
	"likesync/internal/publisher"
	"likesync/internal/scheduler"
	"likesync/internal/service"
	"likesync/internal/source/youtube"
	"likesync/internal/storage/postgres"
	"likesync/internal/summary"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := logging.New(os.Stdout, "info", logging.FormatJSON)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	var pub service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	cacheStore := postgres.NewCacheStore(db)
	usageStore := postgres.NewUsageStore(db)

	quota := service.NewQuotaTracker(usageStore, cfg.Quota.Location(), logger)
	summaries := service.NewSummaryService(
		summary.NewTranscriptCommand(cfg.Summary.TranscriptCommand, cfg.Summary.TranscriptTimeout, logger),
		summary.NewGemini(summary.GeminiConfig{
			BaseURL: cfg.Summary.GeminiBaseURL,
			APIKey:  cfg.Summary.GeminiAPIKey,
			Model:   cfg.Summary.GeminiModel,
			Timeout: cfg.Summary.Timeout,
		}, logger),
		quota,
		logger,
		cfg.Quota,
		cfg.Summary,
	)

	server := api.NewServer(
		cfg.HTTP,
		api.NewHandlers(summaries, logger),
		api.NewTokenSessions(cfg, cacheStore, pub, logger),
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if cfg.Sync.Enabled {
		exporter, err := scheduledExport(ctx, cfg, cacheStore, pub, logger)
		if err != nil {
			logger.Error("failed to set up scheduled export", "error", err)
			os.Exit(1)
		}
		sched := scheduler.NewScheduler(exporter, cfg.Sync.Interval, cfg.Sync.RunTimeout, logger)
		go func() {
			if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("scheduler error", "error", err)
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start() }()

	logger.Info("likesync started",
		"addr", cfg.HTTP.Addr,
		"scheduled_export", cfg.Sync.Enabled,
		"publisher", pub != nil,
	)

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop server", "error", err)
	}
}

// scheduledExport wires the unattended export of the configured identity,
// authenticated by a stored refresh token.
func scheduledExport(
	ctx context.Context,
	cfg *config.Config,
	cache service.LocalCache,
	pub service.Publisher,
	logger *slog.Logger,
) (*service.ExportService, error) {
	provider := auth.NewRefreshing(ctx, auth.ConfigFrom(cfg.OAuth), cfg.OAuth.RefreshToken, logger)

	identity := cfg.Sync.Identity
	if identity == "" {
		cred, err := provider.GetToken(ctx)
		if err != nil {
			return nil, err
		}
		identity = cred.Identity
	}

	client := youtube.New(youtube.Config{
		BaseURL:  cfg.API.BaseURL,
		PageSize: cfg.API.PageSize,
		Timeout:  cfg.API.Timeout,
	}, provider, logger)

	sync := service.NewSyncService(client, cache, identity, logger, cfg.Sync)
	return service.NewExportService(sync, pub, logger), nil
}
