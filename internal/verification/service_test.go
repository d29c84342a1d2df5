package verification

import (
	"context"
	"strings"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/Bayashat/zerde-bot/internal/store"
	"github.com/Bayashat/zerde-bot/internal/telegram"
	"github.com/Bayashat/zerde-bot/internal/telegram/telegramtest"
	"github.com/Bayashat/zerde-bot/internal/update"
)

type scheduledCheck struct {
	chatID    int64
	userID    int64
	messageID int
	delay     time.Duration
}

type fakeScheduler struct {
	checks []scheduledCheck
}

func (f *fakeScheduler) EnqueueTimeoutCheck(_ context.Context, chatID, userID int64, messageID int, delay time.Duration) error {
	f.checks = append(f.checks, scheduledCheck{chatID, userID, messageID, delay})
	return nil
}

type fakeCounters struct {
	joins    int
	verified int
}

func (f *fakeCounters) IncrementJoins(context.Context, int64) error {
	f.joins++
	return nil
}

func (f *fakeCounters) IncrementVerified(context.Context, int64) error {
	f.verified++
	return nil
}

type fixture struct {
	gw        *telegramtest.Gateway
	mem       *store.Memory
	scheduler *fakeScheduler
	counters  *fakeCounters
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		gw:        telegramtest.New(),
		mem:       store.NewMemory(),
		scheduler: &fakeScheduler{},
		counters:  &fakeCounters{},
	}
	f.svc = NewService(f.gw, f.mem, f.scheduler, f.counters, 60*time.Second)
	return f
}

func joinUpdate(gw *telegramtest.Gateway, chatID int64, members ...tele.User) *update.Context {
	upd := tele.Update{Message: &tele.Message{
		ID:          1,
		Chat:        &tele.Chat{ID: chatID},
		Sender:      &tele.User{ID: 999},
		UsersJoined: members,
	}}
	return update.New(upd, gw, "", "kk")
}

func verifyUpdate(gw *telegramtest.Gateway, chatID, senderID int64, data string, messageID int) *update.Context {
	upd := tele.Update{Callback: &tele.Callback{
		ID:      "cb1",
		Sender:  &tele.User{ID: senderID, FirstName: "User", LanguageCode: "en"},
		Data:    data,
		Message: &tele.Message{ID: messageID, Chat: &tele.Chat{ID: chatID}},
	}}
	return update.New(upd, gw, "", "kk")
}

func TestJoinMutesChallengesAndSchedules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	u := joinUpdate(f.gw, 100,
		tele.User{ID: 42, FirstName: "New", LanguageCode: "en"},
		tele.User{ID: 43, FirstName: "Robo", IsBot: true},
	)
	if err := f.svc.HandleJoin(ctx, u); err != nil {
		t.Fatalf("HandleJoin: %v", err)
	}

	if len(f.gw.Restricts) != 1 {
		t.Fatalf("restricts = %d, want 1 (bots skipped)", len(f.gw.Restricts))
	}
	if r := f.gw.Restricts[0]; r.UserID != 42 || r.Rights.CanSendMessages {
		t.Fatalf("member not muted: %+v", r)
	}

	sent, ok := f.gw.LastSent()
	if !ok || sent.Markup == nil {
		t.Fatal("challenge message with button not sent")
	}
	button := sent.Markup.InlineKeyboard[0][0]
	if button.Data != telegram.VerifyPayload(42) {
		t.Fatalf("button payload = %q", button.Data)
	}
	if !strings.Contains(sent.Text, "60") {
		t.Fatalf("challenge text must show the window: %q", sent.Text)
	}

	if _, ok, _ := f.mem.GetChallenge(ctx, 100, 42); !ok {
		t.Fatal("challenge record not created")
	}
	if len(f.scheduler.checks) != 1 {
		t.Fatalf("scheduled checks = %d, want 1", len(f.scheduler.checks))
	}
	check := f.scheduler.checks[0]
	if check.chatID != 100 || check.userID != 42 || check.delay != 60*time.Second {
		t.Fatalf("scheduled check = %+v", check)
	}
	if f.counters.joins != 1 {
		t.Fatalf("joins counter = %d, want 1", f.counters.joins)
	}
}

func TestVerifyCallbackResolvesChallenge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.svc.HandleJoin(ctx, joinUpdate(f.gw, 100, tele.User{ID: 42, FirstName: "New"})); err != nil {
		t.Fatal(err)
	}
	challengeMsgID := f.scheduler.checks[0].messageID

	u := verifyUpdate(f.gw, 100, 42, telegram.VerifyPayload(42), challengeMsgID)
	if err := f.svc.HandleVerifyCallback(ctx, u); err != nil {
		t.Fatalf("HandleVerifyCallback: %v", err)
	}

	restored := f.gw.Restricts[len(f.gw.Restricts)-1]
	if restored.UserID != 42 || !restored.Rights.CanSendMessages {
		t.Fatalf("permissions not restored: %+v", restored)
	}
	if len(f.gw.Answers) == 0 || f.gw.Answers[len(f.gw.Answers)-1].Alert {
		t.Fatalf("success answer missing or alert: %+v", f.gw.Answers)
	}
	if len(f.gw.Deletes) != 1 || f.gw.Deletes[0].MessageID != challengeMsgID {
		t.Fatalf("challenge message not deleted: %+v", f.gw.Deletes)
	}
	if f.counters.verified != 1 {
		t.Fatalf("verified counter = %d, want 1", f.counters.verified)
	}
	if _, ok, _ := f.mem.GetChallenge(ctx, 100, 42); ok {
		t.Fatal("challenge record must be deleted after verify")
	}
}

func TestVerifyCallbackRejectsForeignClick(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.svc.HandleJoin(ctx, joinUpdate(f.gw, 100, tele.User{ID: 42, FirstName: "New"})); err != nil {
		t.Fatal(err)
	}
	muteCount := len(f.gw.Restricts)

	// User 43 clicks user 42's button.
	u := verifyUpdate(f.gw, 100, 43, telegram.VerifyPayload(42), 5)
	if err := f.svc.HandleVerifyCallback(ctx, u); err != nil {
		t.Fatalf("HandleVerifyCallback: %v", err)
	}

	if len(f.gw.Restricts) != muteCount {
		t.Fatal("foreign click must not change permissions")
	}
	if _, ok, _ := f.mem.GetChallenge(ctx, 100, 42); !ok {
		t.Fatal("foreign click must not delete the challenge")
	}
	answer := f.gw.Answers[len(f.gw.Answers)-1]
	if !answer.Alert {
		t.Fatalf("rejection must alert: %+v", answer)
	}
}

func TestVerifyCallbackRejectsMalformedPayload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	u := verifyUpdate(f.gw, 100, 42, "verify_abc", 5)
	if err := f.svc.HandleVerifyCallback(ctx, u); err != nil {
		t.Fatalf("HandleVerifyCallback: %v", err)
	}
	if len(f.gw.Restricts) != 0 {
		t.Fatal("malformed payload must not change permissions")
	}
}

func TestTimeoutKicksStillMutedMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.gw.SetMember(100, 42, telegram.MemberInfo{Status: telegram.StatusRestricted, CanSendMessages: false})
	_ = f.mem.CreateChallenge(ctx, store.Challenge{ChatID: 100, UserID: 42, MessageID: 7})

	task := &update.TimeoutTask{TaskType: update.TaskCheckTimeout, ChatID: 100, UserID: 42, MessageID: 7}
	if err := f.svc.HandleTimeoutCheck(ctx, task); err != nil {
		t.Fatalf("HandleTimeoutCheck: %v", err)
	}

	if len(f.gw.Kicks) != 1 || f.gw.Kicks[0].UserID != 42 {
		t.Fatalf("kicks = %+v, want exactly one for user 42", f.gw.Kicks)
	}
	if len(f.gw.Deletes) != 1 || f.gw.Deletes[0].MessageID != 7 {
		t.Fatalf("challenge message not deleted: %+v", f.gw.Deletes)
	}
	if _, ok, _ := f.mem.GetChallenge(ctx, 100, 42); ok {
		t.Fatal("record must be removed after kick")
	}
}

func TestTimeoutIsIdempotentAfterVerification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.gw.SetMember(100, 42, telegram.MemberInfo{Status: telegram.StatusMember, CanSendMessages: true})

	task := &update.TimeoutTask{TaskType: update.TaskCheckTimeout, ChatID: 100, UserID: 42, MessageID: 7}
	for i := 0; i < 2; i++ {
		if err := f.svc.HandleTimeoutCheck(ctx, task); err != nil {
			t.Fatalf("HandleTimeoutCheck #%d: %v", i+1, err)
		}
	}

	if len(f.gw.Kicks) != 0 {
		t.Fatalf("verified member must never be kicked: %+v", f.gw.Kicks)
	}
	if f.gw.StatusReads != 2 {
		t.Fatalf("status reads = %d, want 2 (decision is live-state driven)", f.gw.StatusReads)
	}
}

func TestJoinVerifyTimeoutScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Member 42 joins chat 100.
	if err := f.svc.HandleJoin(ctx, joinUpdate(f.gw, 100, tele.User{ID: 42, FirstName: "New"})); err != nil {
		t.Fatal(err)
	}
	check := f.scheduler.checks[0]
	if check.delay != 60*time.Second {
		t.Fatalf("delay = %v, want 60s", check.delay)
	}

	// Member clicks verify within the window.
	u := verifyUpdate(f.gw, 100, 42, telegram.VerifyPayload(42), check.messageID)
	if err := f.svc.HandleVerifyCallback(ctx, u); err != nil {
		t.Fatal(err)
	}
	f.gw.SetMember(100, 42, telegram.MemberInfo{Status: telegram.StatusMember, CanSendMessages: true})

	// The delayed task arrives afterwards: must be a no-op.
	task := &update.TimeoutTask{TaskType: update.TaskCheckTimeout, ChatID: check.chatID, UserID: check.userID, MessageID: check.messageID}
	if err := f.svc.HandleTimeoutCheck(ctx, task); err != nil {
		t.Fatal(err)
	}
	if len(f.gw.Kicks) != 0 {
		t.Fatalf("no kick expected after verification: %+v", f.gw.Kicks)
	}
}
