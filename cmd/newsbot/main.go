// The newsbot runs one digest cycle: fetch feeds, score, summarize, and
// post to the configured chat. Scheduling belongs to cron or a systemd
// timer, not to the binary.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bayashat/zerde-bot/internal/config"
	"github.com/Bayashat/zerde-bot/internal/logger"
	"github.com/Bayashat/zerde-bot/internal/news"
	"github.com/Bayashat/zerde-bot/internal/telegram"
)

const cycleTimeout = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		log.Fatalf("newsbot: %v", err)
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

	bot, err := telegram.NewBot(cfg.Telegram.Token)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, cycleTimeout)
	defer timeoutCancel()

	return news.NewDigest(bot, cfg.News).Run(ctx)
}
