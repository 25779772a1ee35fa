package main

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/flowwatch/flowwatch-backend/config"
	"github.com/flowwatch/flowwatch-backend/internal/bootstrap"
	"github.com/flowwatch/flowwatch-backend/internal/db"
	"github.com/flowwatch/flowwatch-backend/internal/hub"
	"github.com/flowwatch/flowwatch-backend/internal/monitor/classifier"
	cronjob "github.com/flowwatch/flowwatch-backend/internal/monitor/cron"
	"github.com/flowwatch/flowwatch-backend/internal/monitor/dispatch"
	"github.com/flowwatch/flowwatch-backend/internal/monitor/repository"
	"github.com/flowwatch/flowwatch-backend/internal/monitor/service"
)

const serviceName = "flowwatch-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setupLogging(cfg)
	bootstrap.SetGinMode(cfg.App.Environment)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable")
	}

	var pool *pgxpool.Pool
	if dsn := cfg.DSN(); dsn != "" {
		pool, err = db.Open(context.Background(), dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open postgres pool")
		}
		defer pool.Close()
	} else {
		log.Info().Msg("no database configured, event log disabled")
	}

	hubClient := hub.NewClient(cfg.Hub.BaseURL, cfg.Hub.Token, log.Logger)

	settingsRepo := repository.NewSettingsRepository(redisClient)

	var eventLog *repository.EventLogRepository
	var eventLogForDispatch dispatch.EventLog
	var eventLogForService service.EventLogReader
	if pool != nil {
		eventLog = repository.NewEventLogRepository(pool)
		eventLogForDispatch = eventLog
		eventLogForService = eventLog
	}

	dispatcher := dispatch.NewDispatcher(hubClient, eventLogForDispatch, cfg.App.Name, log.Logger)
	monitorService := service.NewMonitorService(
		classifier.New(hubClient, log.Logger),
		settingsRepo,
		dispatcher,
		eventLogForService,
		log.Logger,
	)

	// Persisted schedule settings win over the env defaults once a bundle
	// exists.
	interval := time.Duration(cfg.Monitor.IntervalMinutes) * time.Minute
	recurring := cfg.Monitor.RecurringEnabled
	if bundle, err := settingsRepo.Load(context.Background()); err == nil && !bundle.UpdatedAt.IsZero() {
		interval = time.Duration(bundle.IntervalMinutes) * time.Minute
		recurring = bundle.RecurringEnabled
	}

	scheduler := cronjob.NewScheduler(monitorService, interval, cfg.Monitor.SettleDelay, log.Logger)
	monitorService.SetScheduler(scheduler)
	scheduler.Start(recurring)
	defer scheduler.Stop()

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: serviceName,
		Version:     cfg.App.Version,
		APIKey:      cfg.Server.APIKey,
		Redis:       redisClient,
		DB:          pool,
		Monitor:     monitorService,
	})

	log.Info().Str("port", cfg.Server.Port).Msg("listening")
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.App.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
