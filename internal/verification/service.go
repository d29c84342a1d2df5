// Package verification drives the join-time human check: mute on join,
// challenge button, delayed timeout re-check with auto-kick. The record
// in the store tracks the pending challenge, but the kick decision is
// always made against live platform status, never the record, so
// redelivered or racing timeout tasks stay harmless.
package verification

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/Bayashat/zerde-bot/internal/i18n"
	"github.com/Bayashat/zerde-bot/internal/logger"
	"github.com/Bayashat/zerde-bot/internal/store"
	"github.com/Bayashat/zerde-bot/internal/telegram"
	"github.com/Bayashat/zerde-bot/internal/update"
)

// Scheduler enqueues the delayed timeout re-check task.
type Scheduler interface {
	EnqueueTimeoutCheck(ctx context.Context, chatID, userID int64, messageID int, delay time.Duration) error
}

// Counters is the join/verified counter sink.
type Counters interface {
	IncrementJoins(ctx context.Context, chatID int64) error
	IncrementVerified(ctx context.Context, chatID int64) error
}

// Service is the verification state machine.
type Service struct {
	gw         telegram.Gateway
	challenges store.ChallengeStore
	scheduler  Scheduler
	counters   Counters
	window     time.Duration
}

// NewService wires the machine. window is the challenge deadline and the
// timeout task delay.
func NewService(gw telegram.Gateway, challenges store.ChallengeStore, scheduler Scheduler, counters Counters, window time.Duration) *Service {
	return &Service{
		gw:         gw,
		challenges: challenges,
		scheduler:  scheduler,
		counters:   counters,
		window:     window,
	}
}

// HandleJoin mutes each non-bot new member, posts the challenge, records
// it, and schedules the timeout check. One member's failure never blocks
// the rest of the batch.
func (s *Service) HandleJoin(ctx context.Context, u *update.Context) error {
	chatID := u.ChatID()
	if chatID == 0 {
		return fmt.Errorf("join update without chat")
	}

	for _, member := range u.NewMembers {
		if member.IsBot {
			continue
		}
		if err := s.challengeMember(ctx, chatID, member); err != nil {
			logger.Error(ctx, "service.verify", "join.member_failed",
				slog.Int64("chat_id", chatID),
				slog.Int64("target_id", member.ID),
				slog.String("err", err.Error()),
			)
		}
	}
	return nil
}

func (s *Service) challengeMember(ctx context.Context, chatID int64, member tele.User) error {
	if err := s.gw.RestrictMember(ctx, chatID, member.ID, telegram.MutedRights()); err != nil {
		return fmt.Errorf("mute member: %w", err)
	}

	lang := member.LanguageCode
	text := i18n.Text(lang, "welcome_verification", i18n.Vars{
		"MENTION": telegram.Mention(member.ID, displayName(member)),
		"WINDOW":  strconv.Itoa(int(s.window / time.Second)),
	})
	markup := telegram.VerifyMarkup(i18n.Text(lang, "verify_button", nil), member.ID)

	msgID, err := s.gw.SendMessage(ctx, chatID, text, &telegram.SendOptions{Markup: markup})
	if err != nil {
		return fmt.Errorf("send challenge: %w", err)
	}

	now := time.Now()
	ch := store.Challenge{
		ChatID:    chatID,
		UserID:    member.ID,
		MessageID: msgID,
		CreatedAt: now,
		Deadline:  now.Add(s.window),
	}
	if err := s.challenges.CreateChallenge(ctx, ch); err != nil {
		return fmt.Errorf("record challenge: %w", err)
	}

	if err := s.scheduler.EnqueueTimeoutCheck(ctx, chatID, member.ID, msgID, s.window); err != nil {
		return fmt.Errorf("schedule timeout check: %w", err)
	}

	if err := s.counters.IncrementJoins(ctx, chatID); err != nil {
		logger.Warn(ctx, "service.verify", "join.counter_failed",
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
	}

	logger.Info(ctx, "service.verify", "challenge.created",
		slog.Int64("chat_id", chatID),
		slog.Int64("target_id", member.ID),
		slog.Int("message_id", msgID),
		slog.Int("delay_s", int(s.window/time.Second)),
	)
	return nil
}

// HandleVerifyCallback resolves a challenge to Verified. The payload must
// name the acting user; anyone else's click is rejected without touching
// state.
func (s *Service) HandleVerifyCallback(ctx context.Context, u *update.Context) error {
	lang := u.Lang()

	candidateID, ok := telegram.PayloadUserID(u.CallbackData, telegram.VerifyPrefix)
	if !ok {
		return s.gw.AnswerCallback(ctx, u.CallbackID, i18n.Text(lang, "invalid_data", nil), true)
	}
	if candidateID != u.SenderID() {
		logger.Info(ctx, "service.verify", "verify.rejected_foreign_click",
			slog.Int64("chat_id", u.ChatID()),
			slog.Int64("target_id", candidateID),
			slog.Int64("user_id", u.SenderID()),
		)
		return s.gw.AnswerCallback(ctx, u.CallbackID, i18n.Text(lang, "only_user_may_verify", nil), true)
	}

	chatID := u.ChatID()
	if chatID == 0 {
		return fmt.Errorf("verify callback without chat")
	}

	if err := s.gw.RestrictMember(ctx, chatID, candidateID, telegram.FullMemberRights()); err != nil {
		return fmt.Errorf("restore permissions: %w", err)
	}
	if err := s.gw.AnswerCallback(ctx, u.CallbackID, i18n.Text(lang, "verification_successful", nil), false); err != nil {
		logger.Warn(ctx, "service.verify", "verify.answer_failed",
			slog.String("err", err.Error()),
		)
	}
	s.gw.DeleteMessage(ctx, chatID, u.MessageID)

	name := ""
	if u.Sender != nil {
		name = displayName(*u.Sender)
	}
	welcome := i18n.Text(lang, "welcome_verified", i18n.Vars{
		"MENTION": telegram.Mention(candidateID, name),
	})
	if _, err := s.gw.SendMessage(ctx, chatID, welcome, nil); err != nil {
		logger.Warn(ctx, "service.verify", "verify.welcome_failed",
			slog.String("err", err.Error()),
		)
	}

	if err := s.counters.IncrementVerified(ctx, chatID); err != nil {
		logger.Warn(ctx, "service.verify", "verify.counter_failed",
			slog.String("err", err.Error()),
		)
	}

	if err := s.challenges.DeleteChallenge(ctx, chatID, candidateID); err != nil {
		return fmt.Errorf("delete challenge: %w", err)
	}

	logger.Info(ctx, "service.verify", "verify.success",
		slog.Int64("chat_id", chatID),
		slog.Int64("target_id", candidateID),
	)
	return nil
}

// HandleTimeoutCheck resolves an expired challenge. The queue delivers at
// least once and with a delay, so the task payload is never proof that
// the member is still unverified: the decision re-reads live status.
func (s *Service) HandleTimeoutCheck(ctx context.Context, task *update.TimeoutTask) error {
	info, err := s.gw.MemberStatus(ctx, task.ChatID, task.UserID)
	if err != nil {
		return fmt.Errorf("read member status: %w", err)
	}

	if info.Status == telegram.StatusMember || info.IsPrivileged() || info.CanSendMessages {
		logger.Info(ctx, "service.verify", "timeout.already_verified",
			slog.Int64("chat_id", task.ChatID),
			slog.Int64("target_id", task.UserID),
			slog.String("member_status", info.Status),
		)
		// Housekeeping: the record should already be gone on this path.
		if err := s.challenges.DeleteChallenge(ctx, task.ChatID, task.UserID); err != nil {
			logger.Warn(ctx, "service.verify", "timeout.cleanup_failed",
				slog.String("err", err.Error()),
			)
		}
		return nil
	}

	if err := s.gw.KickMember(ctx, task.ChatID, task.UserID); err != nil {
		return fmt.Errorf("kick unverified member: %w", err)
	}
	s.gw.DeleteMessage(ctx, task.ChatID, task.MessageID)

	if err := s.challenges.DeleteChallenge(ctx, task.ChatID, task.UserID); err != nil {
		logger.Warn(ctx, "service.verify", "timeout.cleanup_failed",
			slog.String("err", err.Error()),
		)
	}

	logger.Info(ctx, "service.verify", "timeout.kicked",
		slog.Int64("chat_id", task.ChatID),
		slog.Int64("target_id", task.UserID),
		slog.String("member_status", info.Status),
	)
	return nil
}

func displayName(u tele.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if name == "" {
		name = u.Username
	}
	return name
}
