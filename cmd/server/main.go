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
	"github.com/abekov/accountd/internal/health"
	"github.com/abekov/accountd/internal/infrastructure/postgres"
	ctxlog "github.com/abekov/accountd/internal/log"
	"github.com/abekov/accountd/internal/metrics"
	"github.com/abekov/accountd/internal/secrets"
	"github.com/abekov/accountd/internal/storage"
	httptransport "github.com/abekov/accountd/internal/transport/http"
	"github.com/abekov/accountd/internal/transport/http/handler"
	"github.com/abekov/accountd/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	userRepo := postgres.NewUserRepository(pool)
	deliveryRepo := postgres.NewDeliveryRepository(pool)
	fileRepo := postgres.NewFileRepository(pool)

	dispatcher := delivery.NewQueueDispatcher(deliveryRepo, cfg.DeliveryMaxAttempts)
	hasher := secrets.NewHasher(cfg.BcryptCost)

	accountUsecase := usecase.NewAccountUsecase(userRepo, dispatcher, hasher, usecase.Options{
		JWTKey:          []byte(cfg.JWTSecret),
		JWTTTL:          cfg.JWTAccessTTL(),
		VerificationTTL: cfg.VerificationTokenTTL(),
		ResetTTL:        cfg.ResetTokenTTL(),
		TokenBytes:      cfg.TokenEntropyBytes,
		TOTPDigits:      cfg.TOTPDigits,
		TOTPPeriod:      cfg.TOTPPeriod,
		TOTPDrift:       cfg.TOTPDriftSec,
		PublicBaseURL:   cfg.PublicBaseURL,
	})

	presigner, err := storage.NewS3Presigner(ctx, storage.Options{
		Endpoint:    cfg.S3Endpoint,
		Region:      cfg.S3Region,
		Bucket:      cfg.S3Bucket,
		AccessKey:   cfg.S3AccessKey,
		SecretKey:   cfg.S3SecretKey,
		UploadTTL:   time.Duration(cfg.S3UploadURLSec) * time.Second,
		DownloadTTL: time.Duration(cfg.S3DownloadURLSec) * time.Second,
	})
	if err != nil {
		stop()
		log.Fatalf("s3: %v", err)
	}
	uploadUsecase := usecase.NewUploadUsecase(fileRepo, presigner)

	authHandler := handler.NewAuthHandler(accountUsecase, logger)
	userHandler := handler.NewUserHandler(accountUsecase, logger)
	uploadHandler := handler.NewUploadHandler(uploadUsecase, logger)

	metrics.Register()
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer).Add("postgres", pool)

	srv := http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, authHandler, userHandler, uploadHandler, []byte(cfg.JWTSecret)),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
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
