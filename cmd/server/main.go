package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/oggyb/coffee-chat/internal/app"
	"github.com/oggyb/coffee-chat/internal/cache"
	"github.com/oggyb/coffee-chat/internal/config"
	"github.com/oggyb/coffee-chat/internal/db"
	"github.com/oggyb/coffee-chat/internal/logger"
	"github.com/oggyb/coffee-chat/internal/server"
	"github.com/oggyb/coffee-chat/internal/service/admin"
	"github.com/oggyb/coffee-chat/internal/slackbot"
	"github.com/oggyb/coffee-chat/internal/worker"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L() // slog.Logger pointer
	if envErr != nil {
		log.Warn("no .env file loaded", "err", envErr)
	}

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	if cfg.Slack.BotToken == "" {
		log.Warn("SLACK_BOT_TOKEN not set, pairing messages and roster sync will fail")
	}
	slackClient := slackbot.NewClient(cfg.Slack, log.With("component", "slack"))
	appCtx := app.New(database, redisCache, slackClient, slackClient, log)

	loc, err := worker.Location(cfg)
	if err != nil {
		log.Error("invalid schedule", "err", err)
		os.Exit(1)
	}
	scheduler, err := worker.NewScheduler(cfg, log.With("component", "scheduler"))
	if err != nil {
		log.Error("failed to build scheduler", "err", err)
		os.Exit(1)
	}
	taskServer, mux := worker.NewServer(cfg, worker.NewHandler(appCtx.Gate, loc, log.With("component", "worker")), log)

	grpcServer := server.NewGRPCServer(cfg, log, admin.NewRegistrar(appCtx))
	httpServer := server.NewHTTPServer(cfg, log,
		slackbot.NewHandler(appCtx.Directory, cfg.Slack.SigningSecret, log.With("component", "slack")),
	)
	if cfg.Admin.TokenHash == "" {
		log.Warn("ADMIN_TOKEN_HASH not set, admin API is unauthenticated")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errc := make(chan error, 2)

	// asynq's Run installs its own signal handling, so start both in the background.
	if err := taskServer.Start(mux); err != nil {
		log.Error("failed to start pairing worker", "err", err)
		os.Exit(1)
	}
	if err := scheduler.Start(); err != nil {
		log.Error("failed to start pairing scheduler", "err", err)
		os.Exit(1)
	}
	log.Info("pairing scheduler started", "cron", cfg.Schedule.Cron, "tz", cfg.Schedule.Timezone)

	go func() {
		log.Info("starting gRPC server", "addr", cfg.GRPC.Host+":"+cfg.GRPC.Port)
		errc <- server.ServeGRPC(cfg, grpcServer)
	}()
	go func() {
		log.Info("starting HTTP server", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errc:
		log.Error("component stopped", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	scheduler.Shutdown()
	taskServer.Shutdown()
}
