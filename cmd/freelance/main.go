package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/larriantoniy/freelance_client/internal/adapters/api"
	"github.com/larriantoniy/freelance_client/internal/adapters/mainloop"
	"github.com/larriantoniy/freelance_client/internal/adapters/store"
	"github.com/larriantoniy/freelance_client/internal/config"
	"github.com/larriantoniy/freelance_client/internal/ports"
	"github.com/larriantoniy/freelance_client/internal/useCases"
)

const (
	envDev  = "dev"
	envProd = "prod"

	requestTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	logger := setupLogger(cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	sessionStore, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		logger.Error("open session store", "kind", cfg.Store.Kind, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	loop := mainloop.New(logger)
	go loop.Run(ctx)
	defer loop.Close()

	dispatcher := api.NewDispatcher(cfg.BaseURL, &http.Client{Timeout: requestTimeout}, loop, logger)
	sessions := useCases.NewSessionManager(dispatcher, sessionStore, loop, logger)
	if err := sessions.Restore(ctx); err != nil {
		logger.Error("restore session", "error", err)
		os.Exit(1)
	}

	cli := &app{
		log:        logger,
		dispatcher: dispatcher,
		loop:       loop,
		sessions:   sessions,
		tasks:      useCases.NewTaskService(dispatcher, sessions, logger),
		chats:      useCases.NewChatService(dispatcher, sessions, logger),
		contracts:  useCases.NewContractService(dispatcher, sessions, logger),
		feedback:   useCases.NewFeedbackService(dispatcher, sessions, logger),
		clock:      clockwork.NewRealClock(),
	}

	if err := cli.run(ctx, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, api.Message(err))
		os.Exit(1)
	}
	logger.Debug("exit")
}

func openStore(ctx context.Context, cfg config.StoreConfig) (ports.SessionStore, func(), error) {
	switch cfg.Kind {
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		return store.NewRedisStore(rdb, cfg.Profile), func() { _ = rdb.Close() }, nil
	case config.StoreMemory:
		return store.NewMemoryStore(), func() {}, nil
	default:
		return store.NewFileStore(cfg.Path), func() {}, nil
	}
}

// Logs go to stderr so command output on stdout stays machine-readable.
func setupLogger(env string) *slog.Logger {
	var logger *slog.Logger

	switch env {
	case envDev:
		logger = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		logger = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		logger = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return logger
}
