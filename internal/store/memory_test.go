package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newSession(chatID, targetID, initiatorID int64) VoteSession {
	return VoteSession{
		ChatID:      chatID,
		TargetID:    targetID,
		InitiatorID: initiatorID,
		TargetName:  "Target",
		MessageID:   500,
		CreatedAt:   time.Now(),
	}
}

func TestChallengeLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	ch := Challenge{ChatID: 100, UserID: 42, MessageID: 7, CreatedAt: time.Now(), Deadline: time.Now().Add(60 * time.Second)}
	if err := m.CreateChallenge(ctx, ch); err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}

	got, ok, err := m.GetChallenge(ctx, 100, 42)
	if err != nil || !ok {
		t.Fatalf("GetChallenge: ok=%v err=%v", ok, err)
	}
	if got.MessageID != 7 {
		t.Fatalf("MessageID = %d, want 7", got.MessageID)
	}

	if err := m.DeleteChallenge(ctx, 100, 42); err != nil {
		t.Fatalf("DeleteChallenge: %v", err)
	}
	if _, ok, _ := m.GetChallenge(ctx, 100, 42); ok {
		t.Fatal("challenge must be gone after delete")
	}
	// Deleting an absent record is not an error.
	if err := m.DeleteChallenge(ctx, 100, 42); err != nil {
		t.Fatalf("second DeleteChallenge: %v", err)
	}
}

func TestCreateSessionPreCountsInitiator(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.CreateSession(ctx, newSession(100, 7, 1), VoteFor); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// The initiator's own repeat vote must be rejected as a duplicate.
	res, err := m.AddVote(ctx, 100, 7, 1, VoteFor)
	if err != nil {
		t.Fatalf("AddVote: %v", err)
	}
	if res.Added {
		t.Fatal("initiator's second vote must not be added")
	}
	if res.VotesFor != 1 || res.VotesAgainst != 0 {
		t.Fatalf("counts = %d/%d, want 1/0", res.VotesFor, res.VotesAgainst)
	}
}

func TestCreateSessionDuplicate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.CreateSession(ctx, newSession(100, 7, 1), VoteFor); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := m.CreateSession(ctx, newSession(100, 7, 2), VoteFor); !errors.Is(err, ErrSessionExists) {
		t.Fatalf("err = %v, want ErrSessionExists", err)
	}
}

func TestAddVoteNoSession(t *testing.T) {
	m := NewMemory()
	if _, err := m.AddVote(context.Background(), 100, 7, 1, VoteFor); !errors.Is(err, ErrNoSession) {
		t.Fatalf("err = %v, want ErrNoSession", err)
	}
}

func TestAddVoteBothSidesExclusive(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.CreateSession(ctx, newSession(100, 7, 1), VoteFor); err != nil {
		t.Fatal(err)
	}

	if res, _ := m.AddVote(ctx, 100, 7, 2, VoteAgainst); !res.Added {
		t.Fatal("first vote must be added")
	}
	// Same voter switching sides is still a duplicate.
	res, err := m.AddVote(ctx, 100, 7, 2, VoteFor)
	if err != nil {
		t.Fatal(err)
	}
	if res.Added {
		t.Fatal("side switch must not be added")
	}
	if res.VotesFor != 1 || res.VotesAgainst != 1 {
		t.Fatalf("counts = %d/%d, want 1/1", res.VotesFor, res.VotesAgainst)
	}
}

func TestAddVoteConcurrentDistinctVoters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.CreateSession(ctx, newSession(100, 7, 1), VoteFor); err != nil {
		t.Fatal(err)
	}

	const voters = 40
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		voterID := int64(1000 + i)
		side := VoteFor
		if i%2 == 1 {
			side = VoteAgainst
		}
		wg.Add(2)
		// Each voter fires twice concurrently; exactly one attempt may land.
		for j := 0; j < 2; j++ {
			go func() {
				defer wg.Done()
				_, _ = m.AddVote(ctx, 100, 7, voterID, side)
			}()
		}
	}
	wg.Wait()

	res, err := m.AddVote(ctx, 100, 7, 1, VoteFor)
	if err != nil {
		t.Fatal(err)
	}
	// 20 for + 20 against from the distinct voters, plus the initiator.
	if res.VotesFor != 21 || res.VotesAgainst != 20 {
		t.Fatalf("counts = %d/%d, want 21/20", res.VotesFor, res.VotesAgainst)
	}
}

func TestDeleteSessionExactlyOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.CreateSession(ctx, newSession(100, 7, 1), VoteFor); err != nil {
		t.Fatal(err)
	}

	const racers = 8
	var wg sync.WaitGroup
	wins := make(chan bool, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := m.DeleteSession(ctx, 100, 7)
			if err != nil {
				t.Error(err)
				return
			}
			if won {
				wins <- true
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners int
	for range wins {
		winners++
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
	if _, err := m.AddVote(ctx, 100, 7, 2, VoteFor); !errors.Is(err, ErrNoSession) {
		t.Fatalf("vote after delete: err = %v, want ErrNoSession", err)
	}
}
