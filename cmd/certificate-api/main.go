package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/evxlab/certificate-api/api/swagger"
	"github.com/evxlab/certificate-api/internal/repository"
	"github.com/evxlab/certificate-api/internal/router"
	"github.com/evxlab/certificate-api/internal/service"
	"github.com/evxlab/certificate-api/pkg/cache"
	"github.com/evxlab/certificate-api/pkg/config"
	"github.com/evxlab/certificate-api/pkg/database"
	"github.com/evxlab/certificate-api/pkg/dates"
	"github.com/evxlab/certificate-api/pkg/export"
	"github.com/evxlab/certificate-api/pkg/logger"
)

// @title EVX Lab Certificate API
// @version 1.0.0
// @description Student registration, sessions and public certificate verification
// @BasePath /api
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	metrics := service.NewMetricsService()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logr.Fatal("failed to connect student store", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}
	defer closeStore()

	indexCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := store.EnsureIndexes(indexCtx); err != nil {
		logr.Warn("failed to ensure student indexes", zap.Error(err))
	}
	cancel()
	students := repository.NewObservedStudentStore(store, metrics)

	var (
		denylist *repository.SessionDenylistRepository
		cacheSvc *service.CacheService
	)
	if cfg.RedisRequired() {
		redisClient, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redisClient.Close() //nolint:errcheck

		if cfg.Session.RevocationEnabled {
			denylist = repository.NewSessionDenylistRepository(redisClient)
		}
		cacheRepo := repository.NewCacheRepository(redisClient, "certificate:")
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)
	}

	authParams := service.AuthServiceParams{
		Students: students,
		Tokens:   service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiration),
		Numbers:  service.NewCertificateNumberGenerator(cfg.Certificate.Prefix, cfg.Certificate.Location),
		Dates:    dates.NewParser(cfg.Certificate.Location),
		Cache:    cacheSvc,
		Metrics:  metrics,
		Logger:   logr,
		Config: service.AuthConfig{
			MasterUsername:     cfg.Master.Username,
			MasterPassword:     cfg.Master.Password,
			MasterPasswordHash: cfg.Master.PasswordHash,
			RevocationEnabled:  cfg.Session.RevocationEnabled,
		},
	}
	if denylist != nil {
		authParams.Denylist = denylist
	}
	authSvc := service.NewAuthService(authParams)

	certificateSvc := service.NewCertificateService(students, export.NewCertificatePDF(""), cacheSvc, metrics, logr, service.CertificateServiceConfig{
		VerifyBaseURL: cfg.Certificate.VerifyBaseURL,
		CacheTTL:      cfg.Cache.TTL,
	})

	engine := router.New(router.Dependencies{
		Config:       cfg,
		Logger:       logr,
		Auth:         authSvc,
		Certificates: certificateSvc,
		Metrics:      metrics,
		Store:        students,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}
}

// openStore connects the configured student store and returns a closer.
func openStore(ctx context.Context, cfg *config.Config) (repository.StudentStore, func(), error) {
	switch cfg.StorageDriver {
	case config.StorageMongo:
		client, db, err := database.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		closer := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(closeCtx)
		}
		return repository.NewStudentMongoRepository(db), closer, nil
	case config.StoragePostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewStudentPostgresRepository(db), func() { _ = db.Close() }, nil
	case config.StorageMemory:
		return repository.NewStudentMemoryRepository(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
