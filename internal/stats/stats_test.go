package stats

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func testStats(t *testing.T) *Stats {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, "test:stats")
}

func TestCountersIncrement(t *testing.T) {
	ctx := context.Background()
	s := testStats(t)

	for i := 0; i < 3; i++ {
		if err := s.IncrementJoins(ctx, 100); err != nil {
			t.Fatalf("IncrementJoins: %v", err)
		}
	}
	if err := s.IncrementVerified(ctx, 100); err != nil {
		t.Fatalf("IncrementVerified: %v", err)
	}

	snap, err := s.Get(ctx, 100)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snap.TotalJoins != 3 || snap.Verified != 1 {
		t.Fatalf("snapshot = %+v, want joins=3 verified=1", snap)
	}
	if snap.StartedAt == "N/A" || snap.StartedAt == "" {
		t.Fatalf("started_at not stamped: %q", snap.StartedAt)
	}
}

func TestStartedAtSetOnce(t *testing.T) {
	ctx := context.Background()
	s := testStats(t)

	if err := s.IncrementJoins(ctx, 100); err != nil {
		t.Fatal(err)
	}
	first, err := s.Get(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.IncrementVerified(ctx, 100); err != nil {
		t.Fatal(err)
	}
	second, err := s.Get(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if first.StartedAt != second.StartedAt {
		t.Fatalf("started_at changed: %q then %q", first.StartedAt, second.StartedAt)
	}
}

func TestChatsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := testStats(t)

	if err := s.IncrementJoins(ctx, 100); err != nil {
		t.Fatal(err)
	}
	other, err := s.Get(ctx, 200)
	if err != nil {
		t.Fatal(err)
	}
	if other.TotalJoins != 0 || other.Verified != 0 || other.StartedAt != "N/A" {
		t.Fatalf("untouched chat has state: %+v", other)
	}
}

func TestActivityBuckets(t *testing.T) {
	cases := []struct {
		joins int64
		key   string
	}{
		{0, "activity_low"},
		{9, "activity_low"},
		{10, "activity_medium"},
		{99, "activity_medium"},
		{100, "activity_high"},
	}
	for _, tc := range cases {
		if got := (Snapshot{TotalJoins: tc.joins}).ActivityKey(); got != tc.key {
			t.Errorf("joins=%d: key = %q, want %q", tc.joins, got, tc.key)
		}
	}
}
