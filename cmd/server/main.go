package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/kis-trader/swingbot/internal/archive"
	"github.com/kis-trader/swingbot/internal/broker"
	"github.com/kis-trader/swingbot/internal/broker/httpapi"
	"github.com/kis-trader/swingbot/internal/broker/token"
	"github.com/kis-trader/swingbot/internal/config"
	"github.com/kis-trader/swingbot/internal/database"
	"github.com/kis-trader/swingbot/internal/ingest"
	"github.com/kis-trader/swingbot/internal/notify"
	"github.com/kis-trader/swingbot/internal/scheduler"
	"github.com/kis-trader/swingbot/internal/server"
	"github.com/kis-trader/swingbot/internal/store"
	"github.com/kis-trader/swingbot/internal/trading"
	"github.com/kis-trader/swingbot/internal/universe"
	"github.com/kis-trader/swingbot/pkg/logger"
)

func main() {
	log := logger.New(logger.Config{
		Level:  "info",
		Pretty: true,
	})

	log.Info().Msg("starting swingbot")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log = log.Level(logLevel(cfg.LogLevel))

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	s := store.New(db.Conn(), log)

	tokenCachePath := cfg.DatabasePath + ".token"
	tokens := token.NewManager(cfg.BaseURL(), cfg.BrokerAppKey, cfg.BrokerAppSecret, tokenCachePath, log)
	httpClient := httpapi.NewClient(cfg.BaseURL(), cfg.BrokerAppKey, cfg.BrokerAppSecret, log)

	brokerMode := broker.ModeMock
	if cfg.BrokerMode == config.ModeReal {
		brokerMode = broker.ModeReal
	}
	adapter := broker.NewAdapter(httpClient, tokens, brokerMode, cfg.AccountNumber, cfg.AccountProduct)

	notifySink := notify.NewSink(cfg.NotifyWebhookURL, log)
	locks := &trading.TickerLocks{}

	buyTask := trading.NewBuyTask(adapter, s, cfg, locks, notifySink, log)
	sellTask := trading.NewSellTask(adapter, s, cfg, locks, notifySink, log)

	archiveStore := archive.New(cfg.ArchiveDir, log)
	ingestRunner := ingest.NewRunner(adapter, s, archiveStore, log)

	var universeSources []*universe.Source
	if cfg.ExchangeRefKospiURL != "" {
		universeSources = append(universeSources, universe.NewSource(cfg.ExchangeRefKospiURL, cfg.ExchangeRefKey, "KOSPI", log))
	}
	if cfg.ExchangeRefKosdaqURL != "" {
		universeSources = append(universeSources, universe.NewSource(cfg.ExchangeRefKosdaqURL, cfg.ExchangeRefKey, "KOSDAQ", log))
	}

	sched := scheduler.New(log)

	// §4.10 cron cadences, all evaluated in calendar.Location (Asia/Seoul).
	mustAddJob(sched, log, "0 0 6 1 * *", scheduler.NewUniverseRefreshJob(universeSources, s, notifySink, log))
	mustAddJob(sched, log, "0 0 16 * * *", scheduler.NewBulkIngestJob("KOSDAQ", ingestRunner, notifySink))
	mustAddJob(sched, log, "0 0 17 * * *", scheduler.NewBulkIngestJob("KOSPI", ingestRunner, notifySink))
	mustAddJob(sched, log, "0 0 5 * * *", scheduler.NewScoringJob(s, notifySink, log))
	mustAddJob(sched, log, "0,30 * 9-15 * * *", scheduler.NewBuyJob(buyTask))
	mustAddJob(sched, log, "0,30 * 9-15 * * *", scheduler.NewSellJob(sellTask))

	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		DB:      db,
		Tokens:  tokens,
		DevMode: cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Str("broker_mode", string(cfg.BrokerMode)).Msg("swingbot started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("swingbot stopped")
}

func mustAddJob(sched *scheduler.Scheduler, log zerolog.Logger, schedule string, job scheduler.Job) {
	if err := sched.AddJob(schedule, job); err != nil {
		log.Fatal().Err(err).Str("job", job.Name()).Msg("failed to register job")
	}
}

func logLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
