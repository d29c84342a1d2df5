// Package queue is the Redis task queue between the webhook receiver and
// the worker: a ready list for immediate tasks plus a delayed sorted set
// scored by due time, promoted atomically. Each pop moves the payload
// into a processing list and removes it only after the handler returns,
// so a crash mid-handler redelivers on restart. Delivery is at least
// once with no ordering guarantee across messages.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Bayashat/zerde-bot/internal/config"
	"github.com/Bayashat/zerde-bot/internal/logger"
)

const promoteBatch = 128

// promoteScript moves due entries from the delayed set to the ready list
// in one atomic step, so a crash between the two moves cannot lose or
// duplicate a task inside Redis.
var promoteScript = goredis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, item in ipairs(due) do
	redis.call('LPUSH', KEYS[2], item)
	redis.call('ZREM', KEYS[1], item)
end
return #due
`)

// Queue wraps one logical task queue over a shared Redis client.
type Queue struct {
	rdb           *goredis.Client
	readyKey      string
	delayedKey    string
	processingKey string
	poll          time.Duration
}

// New builds the queue over an established client.
func New(rdb *goredis.Client, cfg config.QueueConfig) *Queue {
	return &Queue{
		rdb:           rdb,
		readyKey:      cfg.KeyPrefix + ":ready",
		delayedKey:    cfg.KeyPrefix + ":delayed",
		processingKey: cfg.KeyPrefix + ":processing",
		poll:          time.Duration(cfg.PollIntervalMS) * time.Millisecond,
	}
}

// Enqueue makes the payload immediately deliverable.
func (q *Queue) Enqueue(ctx context.Context, payload []byte) error {
	if err := q.rdb.LPush(ctx, q.readyKey, payload).Err(); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}

// EnqueueDelayed schedules the payload to become deliverable after delay.
func (q *Queue) EnqueueDelayed(ctx context.Context, payload []byte, delay time.Duration) error {
	due := float64(time.Now().Add(delay).UnixMilli())
	member := goredis.Z{Score: due, Member: payload}
	if err := q.rdb.ZAdd(ctx, q.delayedKey, member).Err(); err != nil {
		return fmt.Errorf("enqueue delayed: %w", err)
	}
	return nil
}

// PromoteDue moves tasks whose due time has passed onto the ready list
// and reports how many moved. Exported so tests can drive the clock.
func (q *Queue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	keys := []string{q.delayedKey, q.readyKey}
	n, err := promoteScript.Run(ctx, q.rdb, keys, now.UnixMilli(), promoteBatch).Int()
	if err != nil {
		return 0, fmt.Errorf("promote due: %w", err)
	}
	return n, nil
}

// Handler processes one delivered payload. Errors are logged per message;
// the queue never stops on a bad payload.
type Handler func(ctx context.Context, payload []byte)

// Consume runs the delivery loop until ctx is cancelled: promote due
// delayed tasks, then block briefly on the ready list. Each pop moves
// the payload into the processing list; the ack (removal) happens only
// after fn returns, so a crash mid-handler leaves the payload for
// recoverProcessing to requeue on the next start. Handlers must
// therefore tolerate redelivery.
func (q *Queue) Consume(ctx context.Context, fn Handler) error {
	if n, err := q.recoverProcessing(ctx); err != nil {
		logger.Error(ctx, "queue", "recover.failed", slog.String("err", err.Error()))
	} else if n > 0 {
		logger.Info(ctx, "queue", "recover.requeued", slog.Int("count", n))
	}

	logger.Info(ctx, "queue", "consume.start",
		slog.String("key", q.readyKey),
	)
	for {
		if err := ctx.Err(); err != nil {
			logger.Info(ctx, "queue", "consume.stop")
			return err
		}

		if _, err := q.PromoteDue(ctx, time.Now()); err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Error(ctx, "queue", "promote.failed", slog.String("err", err.Error()))
			sleepCtx(ctx, q.poll)
			continue
		}

		payload, err := q.rdb.BLMove(ctx, q.readyKey, q.processingKey, "RIGHT", "LEFT", q.poll).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) || ctx.Err() != nil {
				continue
			}
			logger.Error(ctx, "queue", "pop.failed", slog.String("err", err.Error()))
			sleepCtx(ctx, q.poll)
			continue
		}
		fn(ctx, []byte(payload))

		if err := q.rdb.LRem(ctx, q.processingKey, 1, payload).Err(); err != nil && ctx.Err() == nil {
			logger.Warn(ctx, "queue", "ack.failed", slog.String("err", err.Error()))
		}
	}
}

// recoverProcessing moves payloads a previous run left mid-handler back
// onto the ready list. Runs before the consume loop starts, so every
// unacked payload from a crash gets redelivered.
func (q *Queue) recoverProcessing(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.rdb.LMove(ctx, q.processingKey, q.readyKey, "RIGHT", "LEFT").Err()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return moved, nil
			}
			return moved, fmt.Errorf("recover processing: %w", err)
		}
		moved++
	}
}

// Depth reports the ready and delayed backlog sizes (for diagnostics).
func (q *Queue) Depth(ctx context.Context) (ready, delayed int64, err error) {
	ready, err = q.rdb.LLen(ctx, q.readyKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("queue depth: %w", err)
	}
	delayed, err = q.rdb.ZCard(ctx, q.delayedKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("queue depth: %w", err)
	}
	return ready, delayed, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
