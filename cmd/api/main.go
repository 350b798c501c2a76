package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/abduss/bitbeem/internal/auth"
	"github.com/abduss/bitbeem/internal/blob"
	"github.com/abduss/bitbeem/internal/config"
	"github.com/abduss/bitbeem/internal/file"
	"github.com/abduss/bitbeem/internal/logger"
	"github.com/abduss/bitbeem/internal/metrics"
	"github.com/abduss/bitbeem/internal/server"
	"github.com/abduss/bitbeem/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.Init(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("bitbeem stopped", zap.Error(err))
	}
}

func run(cfg config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	version, err := storage.Migrate(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	zlog.Info("schema ready", zap.Uint("version", version))

	dbPool, err := storage.NewPostgresPool(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer dbPool.Close()

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return err
	}
	if err := blobs.Ensure(ctx); err != nil {
		return fmt.Errorf("ensure blob store: %w", err)
	}

	metrics.InitMetrics()

	authService := auth.NewService(auth.NewRepository(dbPool), cfg.Auth, zlog)
	adminTokens := auth.NewAdminTokens(cfg.Auth.AdminTokenSecret, cfg.Auth.AdminTokenTTL)
	fileService := file.NewService(file.NewRepository(dbPool), authService, blobs, cfg.Public, zlog)

	if _, err := fileService.Reconcile(ctx); err != nil {
		return fmt.Errorf("reconcile stores: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := server.NewRouter(server.Dependencies{
		Config:      cfg,
		DB:          dbPool,
		Blobs:       blobs,
		Log:         zlog,
		AuthService: authService,
		AdminTokens: adminTokens,
		FileService: fileService,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		zlog.Info("bitbeem listening",
			zap.String("addr", cfg.Server.Address()),
			zap.String("base_url", cfg.Public.BaseURL()),
			zap.Bool("allow_register", cfg.Auth.AllowRegister),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	zlog.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newBlobStore(ctx context.Context, cfg config.Config) (blob.Store, error) {
	switch cfg.Blob.Backend {
	case config.BlobBackendMinIO:
		client, err := storage.NewMinIOClient(cfg.MinIO)
		if err != nil {
			return nil, fmt.Errorf("connect minio: %w", err)
		}
		if err := storage.EnsureBucket(ctx, client, cfg.MinIO.Bucket, cfg.MinIO.Region); err != nil {
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
		return blob.NewMinIO(client, cfg.MinIO.Bucket, cfg.MinIO.Region), nil
	default:
		return blob.NewFilesystem(cfg.Blob.DataPath), nil
	}
}
