package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smrs-space/smrs-backend/config"
	"github.com/smrs-space/smrs-backend/internal/auth"
	"github.com/smrs-space/smrs-backend/internal/bootstrap"
	"github.com/smrs-space/smrs-backend/internal/mail"
	plagiarismclient "github.com/smrs-space/smrs-backend/internal/plagiarism/client"
	plagiarismcron "github.com/smrs-space/smrs-backend/internal/plagiarism/cron"
	plagiarismrepo "github.com/smrs-space/smrs-backend/internal/plagiarism/repository"
	plagiarismsvc "github.com/smrs-space/smrs-backend/internal/plagiarism/service"
	"github.com/smrs-space/smrs-backend/internal/storage"
	"github.com/smrs-space/smrs-backend/pkg/logger"
)

const serviceName = "smrs-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.NewWithConfig(cfg.App.LogLevel, cfg.App.LogPretty, false)

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := bootstrap.Migrate(cfg.Database.DSN, "migrations"); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		log.Info().Msg("migrations applied")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	auth.SetJWTSecret(cfg.JWT.Secret)
	bootstrap.SetGinMode(cfg.App.Environment)

	db, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{
		DSN:      cfg.Database.DSN,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer db.Close()

	rdb, err := bootstrap.OpenRedis(ctx, bootstrap.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	mailer, err := mail.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange,
		cfg.RabbitMQ.Queue, cfg.RabbitMQ.RoutingKey, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to rabbitmq")
	}
	defer mailer.Close()

	objectStore, err := storage.NewObjectStore(cfg.Minio.Endpoint, cfg.Minio.AccessKey,
		cfg.Minio.SecretKey, cfg.Minio.Bucket, cfg.Minio.UseSSL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to minio")
	}

	vendor := plagiarismclient.New(cfg.Copyleaks.IdentityURL, cfg.Copyleaks.APIURL,
		cfg.Copyleaks.Email, cfg.Copyleaks.Key)
	plagiarism := plagiarismsvc.New(vendor, plagiarismrepo.New(rdb),
		cfg.Copyleaks.WebhookBase, cfg.Copyleaks.Sandbox, log)

	tokenCron := plagiarismcron.StartTokenRefresher(plagiarism, log)
	defer tokenCron.Stop()

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: serviceName,
		Version:     cfg.App.Version,
		DB:          db,
		Redis:       rdb,
		Mailer:      mailer,
		ObjectStore: objectStore,
		Plagiarism:  plagiarism,
		TokenExpire: cfg.JWT.ExpireHours,
		Log:         log,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}
