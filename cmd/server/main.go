package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/niju646/ReportSystem/internal/config"
	"github.com/niju646/ReportSystem/internal/db"
	internalhttp "github.com/niju646/ReportSystem/internal/http"
	"github.com/niju646/ReportSystem/internal/report"
	"github.com/niju646/ReportSystem/internal/repository"
	"github.com/niju646/ReportSystem/internal/token"
	"github.com/niju646/ReportSystem/pkg/logger"
)

func main() {
	// best-effort: a missing .env means real env vars or defaults
	_ = godotenv.Load()

	lg, err := logger.Init(logger.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(cfg.MigrationsDir, cfg.DatabaseURL); err != nil {
		sugar.Fatalf("migrations failed: %v", err)
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		sugar.Fatalf("db connection failed: %v", err)
	}
	defer pool.Close()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			sugar.Fatalf("redis ping failed: %v", err)
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				sugar.Warnf("redis close error: %v", err)
			}
		}()
	}

	store := repository.NewStore(pool, cfg.StoreTimeout)
	tokens := token.NewService(cfg, store, sugar)
	reports := report.NewAggregator(store, redisClient, cfg.ReportCacheTTL, sugar)
	server := internalhttp.NewServer(cfg, store, tokens, reports, sugar)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		sugar.Infof("report api listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		sugar.Warnf("shutdown error: %v", err)
	}
}
