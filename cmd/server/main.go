package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ong-aas/claims-portal/internal/auth"
	"github.com/ong-aas/claims-portal/internal/config"
	"github.com/ong-aas/claims-portal/internal/content"
	"github.com/ong-aas/claims-portal/internal/identity"
	"github.com/ong-aas/claims-portal/internal/keepalive"
	"github.com/ong-aas/claims-portal/internal/logging"
	"github.com/ong-aas/claims-portal/internal/objectstore"
	"github.com/ong-aas/claims-portal/internal/server"
	"github.com/ong-aas/claims-portal/internal/session"
	postgres "github.com/ong-aas/claims-portal/internal/storage/postgres"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "claims-portal")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()
	if envErr != nil {
		logger.Info("no .env file found; relying on existing environment")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	rdb, err := session.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	objects, err := objectstore.New(ctx, objectstore.Options{
		Region:        cfg.S3Region,
		Endpoint:      cfg.S3Endpoint,
		BucketPrefix:  cfg.S3BucketPrefix,
		PublicBaseURL: cfg.S3PublicBaseURL,
	})
	if err != nil {
		return err
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	sessions := session.New(store, rdb, tokens, session.Options{
		MaxAttempts: cfg.LoginMaxAttempts,
		Lockout:     cfg.LoginLockout,
	}, logger.Named("session"))

	keepAlive := keepalive.New(store, cfg.KeepAliveInterval, logger.Named("keepalive"))
	keepAlive.Start(ctx)
	defer keepAlive.Stop()

	srv := server.New(cfg, server.Deps{
		Store:    store,
		DB:       store,
		Sessions: sessions,
		Objects:  objects,
		Identity: identity.NewClient(cfg.IdentityURL, logger.Named("identity")),
		Content:  content.NewLoader(cfg.ContentDir, logger.Named("content")),
		Logger:   logger,
	})

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("claims portal listening", zap.String("addr", cfg.HTTPAddress()))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serveErr:
		return err
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Warn("graceful shutdown error", zap.Error(err))
	}
	return nil
}
