// Package stats keeps per-chat moderation counters in a Redis hash:
// joins, passed verifications, and a set-once start date.
package stats

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	fieldTotalJoins = "total_joins"
	fieldVerified   = "verified_users"
	fieldStartedAt  = "started_at"
)

// Almaty (UTC+5) is the community's home timezone; started_at renders in it.
var almatyTZ = time.FixedZone("UTC+5", 5*60*60)

// Snapshot is one chat's counter state.
type Snapshot struct {
	TotalJoins int64
	Verified   int64
	StartedAt  string
}

// ActivityKey buckets total joins into the localized activity level keys.
func (s Snapshot) ActivityKey() string {
	switch {
	case s.TotalJoins < 10:
		return "activity_low"
	case s.TotalJoins < 100:
		return "activity_medium"
	default:
		return "activity_high"
	}
}

// Stats owns the counter hashes under one key prefix.
type Stats struct {
	rdb    *goredis.Client
	prefix string
}

// New builds the counter store over an established client.
func New(rdb *goredis.Client, keyPrefix string) *Stats {
	if keyPrefix == "" {
		keyPrefix = "zerde:stats"
	}
	return &Stats{rdb: rdb, prefix: keyPrefix}
}

func (s *Stats) key(chatID int64) string {
	return fmt.Sprintf("%s:%d", s.prefix, chatID)
}

// IncrementJoins bumps the join counter, stamping started_at on first use.
func (s *Stats) IncrementJoins(ctx context.Context, chatID int64) error {
	return s.increment(ctx, chatID, fieldTotalJoins)
}

// IncrementVerified bumps the passed-verification counter.
func (s *Stats) IncrementVerified(ctx context.Context, chatID int64) error {
	return s.increment(ctx, chatID, fieldVerified)
}

func (s *Stats) increment(ctx context.Context, chatID int64, field string) error {
	key := s.key(chatID)
	pipe := s.rdb.TxPipeline()
	pipe.HIncrBy(ctx, key, field, 1)
	pipe.HSetNX(ctx, key, fieldStartedAt, time.Now().In(almatyTZ).Format("2006-01-02 15:04:05 UTC+5"))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("increment %s: %w", field, err)
	}
	return nil
}

// Get reads the chat's counters; absent fields read as zero values.
func (s *Stats) Get(ctx context.Context, chatID int64) (Snapshot, error) {
	values, err := s.rdb.HGetAll(ctx, s.key(chatID)).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("get stats: %w", err)
	}

	snap := Snapshot{StartedAt: "N/A"}
	if v, ok := values[fieldStartedAt]; ok && v != "" {
		snap.StartedAt = v
	}
	if v, ok := values[fieldTotalJoins]; ok {
		snap.TotalJoins, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := values[fieldVerified]; ok {
		snap.Verified, _ = strconv.ParseInt(v, 10, 64)
	}
	return snap, nil
}
