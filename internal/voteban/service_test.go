package voteban

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/Bayashat/zerde-bot/internal/store"
	"github.com/Bayashat/zerde-bot/internal/telegram"
	"github.com/Bayashat/zerde-bot/internal/telegram/telegramtest"
	"github.com/Bayashat/zerde-bot/internal/update"
)

const (
	banThreshold     = 5
	forgiveThreshold = 3
)

type fixture struct {
	gw  *telegramtest.Gateway
	mem *store.Memory
	svc *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{gw: telegramtest.New(), mem: store.NewMemory()}
	f.svc = NewService(f.gw, f.mem, banThreshold, forgiveThreshold)
	return f
}

func votebanUpdate(gw *telegramtest.Gateway, chatID, initiatorID int64, target *tele.User) *update.Context {
	msg := &tele.Message{
		ID:     10,
		Chat:   &tele.Chat{ID: chatID},
		Sender: &tele.User{ID: initiatorID, FirstName: "Init", LanguageCode: "en"},
		Text:   "/voteban",
	}
	if target != nil {
		msg.ReplyTo = &tele.Message{ID: 9, Chat: &tele.Chat{ID: chatID}, Sender: target}
	}
	return update.New(tele.Update{Message: msg}, gw, "", "kk")
}

func voteUpdate(gw *telegramtest.Gateway, chatID, voterID int64, data string) *update.Context {
	upd := tele.Update{Callback: &tele.Callback{
		ID:      "cb",
		Sender:  &tele.User{ID: voterID, LanguageCode: "en"},
		Data:    data,
		Message: &tele.Message{ID: 20, Chat: &tele.Chat{ID: chatID}},
	}}
	return update.New(upd, gw, "", "kk")
}

func initiateSession(t *testing.T, f *fixture, chatID, initiatorID, targetID int64) {
	t.Helper()
	target := &tele.User{ID: targetID, FirstName: "Target"}
	if err := f.svc.Initiate(context.Background(), votebanUpdate(f.gw, chatID, initiatorID, target)); err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if _, ok, _ := f.mem.GetSession(context.Background(), chatID, targetID); !ok {
		t.Fatal("session not created")
	}
}

func TestInitiateCreatesSessionWithInitiatorVote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	initiateSession(t, f, 100, 1, 7)

	sent, ok := f.gw.LastSent()
	if !ok || sent.Markup == nil {
		t.Fatal("vote message with buttons not sent")
	}
	row := sent.Markup.InlineKeyboard[0]
	if row[0].Data != telegram.VoteBanPayload(7) || row[1].Data != telegram.VoteForgivePayload(7) {
		t.Fatalf("button payloads = %q, %q", row[0].Data, row[1].Data)
	}
	if !strings.Contains(sent.Text, "1/5") {
		t.Fatalf("initiator's vote must be pre-counted: %q", sent.Text)
	}
	if sent.ReplyToID != 9 {
		t.Fatalf("vote message must reply to the target's message, ReplyToID = %d", sent.ReplyToID)
	}

	// The initiator cannot vote again.
	res, err := f.mem.AddVote(ctx, 100, 7, 1, store.VoteFor)
	if err != nil {
		t.Fatal(err)
	}
	if res.Added {
		t.Fatal("initiator's vote must already be present")
	}
}

func TestInitiateRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("no reply target", func(t *testing.T) {
		f := newFixture(t)
		if err := f.svc.Initiate(ctx, votebanUpdate(f.gw, 100, 1, nil)); err != nil {
			t.Fatal(err)
		}
		sent, _ := f.gw.LastSent()
		if !strings.Contains(sent.Text, "Reply to") {
			t.Fatalf("reply = %q", sent.Text)
		}
	})

	t.Run("self target", func(t *testing.T) {
		f := newFixture(t)
		if err := f.svc.Initiate(ctx, votebanUpdate(f.gw, 100, 1, &tele.User{ID: 1})); err != nil {
			t.Fatal(err)
		}
		sent, _ := f.gw.LastSent()
		if !strings.Contains(sent.Text, "yourself") {
			t.Fatalf("reply = %q", sent.Text)
		}
	})

	t.Run("bot target", func(t *testing.T) {
		f := newFixture(t)
		if err := f.svc.Initiate(ctx, votebanUpdate(f.gw, 100, 1, &tele.User{ID: 7, IsBot: true})); err != nil {
			t.Fatal(err)
		}
		if _, ok, _ := f.mem.GetSession(ctx, 100, 7); ok {
			t.Fatal("bot target must not create a session")
		}
	})

	t.Run("admin target", func(t *testing.T) {
		f := newFixture(t)
		f.gw.SetMember(100, 7, telegram.MemberInfo{Status: telegram.StatusAdministrator, CanSendMessages: true})
		if err := f.svc.Initiate(ctx, votebanUpdate(f.gw, 100, 1, &tele.User{ID: 7})); err != nil {
			t.Fatal(err)
		}
		if _, ok, _ := f.mem.GetSession(ctx, 100, 7); ok {
			t.Fatal("admin target must not create a session")
		}
	})

	t.Run("already active", func(t *testing.T) {
		f := newFixture(t)
		initiateSession(t, f, 100, 1, 7)
		if err := f.svc.Initiate(ctx, votebanUpdate(f.gw, 100, 2, &tele.User{ID: 7, FirstName: "Target"})); err != nil {
			t.Fatal(err)
		}
		// The second vote message is withdrawn.
		if len(f.gw.Deletes) != 1 {
			t.Fatalf("duplicate vote message not deleted: %+v", f.gw.Deletes)
		}
	})
}

func TestVoteUpdatesCountsInPlace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	initiateSession(t, f, 100, 1, 7)

	if err := f.svc.HandleVoteCallback(ctx, voteUpdate(f.gw, 100, 2, telegram.VoteBanPayload(7))); err != nil {
		t.Fatal(err)
	}

	if len(f.gw.Edits) != 1 {
		t.Fatalf("edits = %d, want 1", len(f.gw.Edits))
	}
	if !strings.Contains(f.gw.Edits[0].Text, "2/5") {
		t.Fatalf("edited text = %q, want updated count", f.gw.Edits[0].Text)
	}
	if len(f.gw.Kicks) != 0 {
		t.Fatal("no kick below threshold")
	}
}

func TestDuplicateVoteAnswersAlreadyVoted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	initiateSession(t, f, 100, 1, 7)

	for i := 0; i < 2; i++ {
		if err := f.svc.HandleVoteCallback(ctx, voteUpdate(f.gw, 100, 2, telegram.VoteBanPayload(7))); err != nil {
			t.Fatal(err)
		}
	}
	// Switching sides is still a duplicate.
	if err := f.svc.HandleVoteCallback(ctx, voteUpdate(f.gw, 100, 2, telegram.VoteForgivePayload(7))); err != nil {
		t.Fatal(err)
	}

	if len(f.gw.Edits) != 1 {
		t.Fatalf("duplicates must not edit the message again: %d edits", len(f.gw.Edits))
	}
	answers := f.gw.Answers
	if len(answers) != 3 {
		t.Fatalf("answers = %d, want 3", len(answers))
	}
	for _, a := range answers[1:] {
		if !strings.Contains(a.Text, "already voted") {
			t.Fatalf("duplicate answer = %q", a.Text)
		}
	}
}

func TestBanThresholdKicksAndCleansUp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	initiateSession(t, f, 100, 1, 7)

	for voter := int64(2); voter <= int64(banThreshold); voter++ {
		if err := f.svc.HandleVoteCallback(ctx, voteUpdate(f.gw, 100, voter, telegram.VoteBanPayload(7))); err != nil {
			t.Fatal(err)
		}
	}

	if len(f.gw.Kicks) != 1 || f.gw.Kicks[0].UserID != 7 {
		t.Fatalf("kicks = %+v, want exactly one for target 7", f.gw.Kicks)
	}
	sent, _ := f.gw.LastSent()
	if !strings.Contains(sent.Text, "banned") {
		t.Fatalf("ban announcement = %q", sent.Text)
	}
	if len(f.gw.Deletes) != 1 {
		t.Fatalf("vote message not deleted: %+v", f.gw.Deletes)
	}
	if _, ok, _ := f.mem.GetSession(ctx, 100, 7); ok {
		t.Fatal("session must be deleted after resolution")
	}
}

func TestForgiveThresholdAfterBanCheck(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	initiateSession(t, f, 100, 1, 7)

	for voter := int64(2); voter <= int64(forgiveThreshold)+1; voter++ {
		if err := f.svc.HandleVoteCallback(ctx, voteUpdate(f.gw, 100, voter, telegram.VoteForgivePayload(7))); err != nil {
			t.Fatal(err)
		}
	}

	if len(f.gw.Kicks) != 0 {
		t.Fatalf("forgiveness must not kick: %+v", f.gw.Kicks)
	}
	sent, _ := f.gw.LastSent()
	if !strings.Contains(sent.Text, "forgiven") {
		t.Fatalf("forgive announcement = %q", sent.Text)
	}
	if _, ok, _ := f.mem.GetSession(ctx, 100, 7); ok {
		t.Fatal("session must be deleted after forgiveness")
	}
}

func TestVoteOnDeadSessionAnswersNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.svc.HandleVoteCallback(ctx, voteUpdate(f.gw, 100, 2, telegram.VoteBanPayload(7))); err != nil {
		t.Fatal(err)
	}
	answer := f.gw.Answers[len(f.gw.Answers)-1]
	if !answer.Alert || !strings.Contains(answer.Text, "not found") {
		t.Fatalf("answer = %+v", answer)
	}
}

func TestConcurrentVotersResolveOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	initiateSession(t, f, 100, 1, 7)

	// 4 existing "for" votes leave the session one vote short of the ban
	// threshold; then many distinct voters race the final vote.
	for voter := int64(2); voter <= 4; voter++ {
		if err := f.svc.HandleVoteCallback(ctx, voteUpdate(f.gw, 100, voter, telegram.VoteBanPayload(7))); err != nil {
			t.Fatal(err)
		}
	}

	var wg sync.WaitGroup
	for voter := int64(50); voter < 60; voter++ {
		wg.Add(1)
		go func(v int64) {
			defer wg.Done()
			_ = f.svc.HandleVoteCallback(ctx, voteUpdate(f.gw, 100, v, telegram.VoteBanPayload(7)))
		}(voter)
	}
	wg.Wait()

	if len(f.gw.Kicks) != 1 {
		t.Fatalf("kicks = %d, want exactly 1 across concurrent resolutions", len(f.gw.Kicks))
	}
	if _, ok, _ := f.mem.GetSession(ctx, 100, 7); ok {
		t.Fatal("session must be gone")
	}
}

func TestSessionSnapshotSurvivesTargetRename(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	initiateSession(t, f, 100, 1, 7)

	session, ok, err := f.mem.GetSession(ctx, 100, 7)
	if err != nil || !ok {
		t.Fatal("session missing")
	}
	if session.TargetName != "Target" {
		t.Fatalf("TargetName = %q, want creation-time snapshot", session.TargetName)
	}
	if session.CreatedAt.After(time.Now()) {
		t.Fatalf("CreatedAt in the future: %v", session.CreatedAt)
	}
}
