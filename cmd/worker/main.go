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

	"github.com/abekov/accountd/config"
	"github.com/abekov/accountd/internal/delivery"
	"github.com/abekov/accountd/internal/email"
	"github.com/abekov/accountd/internal/health"
	"github.com/abekov/accountd/internal/infrastructure/postgres"
	ctxlog "github.com/abekov/accountd/internal/log"
	"github.com/abekov/accountd/internal/metrics"
	"github.com/abekov/accountd/internal/sms"
	"github.com/abekov/accountd/internal/storage"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	logger.Info("db connected")

	metrics.Register()
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer).Add("postgres", pool)

	userRepo := postgres.NewUserRepository(pool)
	deliveryRepo := postgres.NewDeliveryRepository(pool)
	fileRepo := postgres.NewFileRepository(pool)

	emailSender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	smsSender := sms.NewSender(cfg.Env, cfg.SMSAPIKey, cfg.SMSAPISecret, cfg.SMSFromLabel, logger)

	worker := delivery.NewWorker(
		deliveryRepo,
		emailSender,
		smsSender,
		logger,
		time.Duration(cfg.PollIntervalSec)*time.Second,
		cfg.WorkerCount,
	)
	go worker.Start(ctx)

	janitor, err := delivery.NewJanitor(userRepo, deliveryRepo, cfg.JanitorCron, logger)
	if err != nil {
		stop()
		log.Fatalf("janitor: %v", err)
	}
	go janitor.Start(ctx)

	presigner, err := storage.NewS3Presigner(ctx, storage.Options{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		stop()
		log.Fatalf("s3: %v", err)
	}
	validator := storage.NewValidator(fileRepo, presigner,
		time.Duration(cfg.PollIntervalSec)*time.Second, logger)
	go validator.Start(ctx)

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	logger.Info("worker shut down")
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
