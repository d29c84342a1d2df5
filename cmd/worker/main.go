// The worker consumes the update queue and runs the moderation
// workflows: verification challenges, timeout checks, and vote-to-ban.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bayashat/zerde-bot/internal/config"
	"github.com/Bayashat/zerde-bot/internal/database"
	"github.com/Bayashat/zerde-bot/internal/logger"
	"github.com/Bayashat/zerde-bot/internal/queue"
	"github.com/Bayashat/zerde-bot/internal/redisdb"
	"github.com/Bayashat/zerde-bot/internal/stats"
	"github.com/Bayashat/zerde-bot/internal/store"
	"github.com/Bayashat/zerde-bot/internal/telegram"
	"github.com/Bayashat/zerde-bot/internal/verification"
	"github.com/Bayashat/zerde-bot/internal/voteban"
	"github.com/Bayashat/zerde-bot/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("worker: %v", err)
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

	if err := database.RunMigrations(cfg.Database); err != nil {
		return err
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb, err := redisdb.Connect(cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	bot, err := telegram.NewBot(cfg.Telegram.Token)
	if err != nil {
		return err
	}

	pg := store.NewPostgres(db)
	q := queue.New(rdb, cfg.Queue)
	counters := stats.New(rdb, cfg.Queue.KeyPrefix+":stats")

	window := time.Duration(cfg.Verification.WindowSeconds) * time.Second
	verify := verification.NewService(bot, pg, q, counters, window)
	votes := voteban.NewService(bot, pg, cfg.VoteBan.BanThreshold, cfg.VoteBan.ForgiveThreshold)

	w := worker.New(worker.Deps{
		Cfg:     cfg,
		Gateway: bot,
		Verify:  verify,
		VoteBan: votes,
		Stats:   counters,
		Queue:   q,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go purgeLoop(ctx, pg, time.Duration(cfg.VoteBan.SessionTTLHours)*time.Hour)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// purgeLoop drops abandoned vote sessions once an hour.
func purgeLoop(ctx context.Context, pg *store.Postgres, ttl time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := pg.PurgeExpiredSessions(ctx, ttl)
			if err != nil {
				logger.Warn(ctx, "db", "vote_sessions.purge_failed",
					slog.String("err", err.Error()),
				)
				continue
			}
			if n > 0 {
				logger.Info(ctx, "db", "vote_sessions.purged",
					slog.Int64("count", n),
				)
			}
		}
	}
}
