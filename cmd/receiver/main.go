// The receiver terminates the Telegram webhook: it verifies the shared
// secret, filters irrelevant updates, and enqueues the rest for the
// worker.
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

	"github.com/Bayashat/zerde-bot/internal/config"
	"github.com/Bayashat/zerde-bot/internal/logger"
	"github.com/Bayashat/zerde-bot/internal/queue"
	"github.com/Bayashat/zerde-bot/internal/redisdb"
	"github.com/Bayashat/zerde-bot/internal/webhook"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("receiver: %v", err)
	}
}

func run() error {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if err := logger.Init(cfg); err != nil {
		return err
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	rdb, err := redisdb.Connect(cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	q := queue.New(rdb, cfg.Queue)
	srv := &http.Server{
		Addr:              cfg.Webhook.Listen,
		Handler:           webhook.NewRouter(q, cfg.Webhook),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "http", "listen",
			slog.String("listen", cfg.Webhook.Listen),
			slog.String("path", cfg.Webhook.Path),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
