package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/monitor-mbg/monitor_mbg/internal/config"
	"github.com/monitor-mbg/monitor_mbg/internal/infra"
	"github.com/monitor-mbg/monitor_mbg/internal/logging"
	"github.com/monitor-mbg/monitor_mbg/internal/otp"
	"github.com/monitor-mbg/monitor_mbg/internal/server"
	"github.com/monitor-mbg/monitor_mbg/internal/whatsapp"
)

const cleanupInterval = time.Minute

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	rules := otp.NewPhoneRules(cfg.PhonePrefix)

	var store otp.Store
	if cfg.RedisURL != "" {
		cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
		store = otp.NewRedisStore(cache, cfg.OTPTTL, cfg.OTPMaxAttempts, rules)
	} else {
		store = otp.NewMemoryStore(cfg.OTPTTL, cfg.OTPMaxAttempts, rules)
	}

	channel := whatsapp.NewClient(cfg.WhatsApp, cfg.OTPTTL, rules, logger)

	srv, err := server.New(cfg, db, store, channel, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case now := <-ticker.C:
				if err := store.Cleanup(cleanupCtx, now); err != nil {
					logger.Warn("otp cleanup", "error", err)
				}
			}
		}
	}()

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
