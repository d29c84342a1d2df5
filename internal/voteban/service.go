// Package voteban drives the peer vote-to-ban workflow: a reply-initiated
// session with ban/forgive buttons, atomic ballot insertion, and
// threshold resolution. Concurrent voters are safe because the ballot
// check-and-insert is one store operation and resolution is gated on
// winning the session delete, so a session resolves exactly once.
package voteban

import (
	"context"
	"errors"
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

// Service is the vote-to-ban state machine.
type Service struct {
	gw               telegram.Gateway
	votes            store.VoteStore
	banThreshold     int
	forgiveThreshold int
}

// NewService wires the machine with its resolution thresholds.
func NewService(gw telegram.Gateway, votes store.VoteStore, banThreshold, forgiveThreshold int) *Service {
	return &Service{
		gw:               gw,
		votes:            votes,
		banThreshold:     banThreshold,
		forgiveThreshold: forgiveThreshold,
	}
}

// Initiate handles /voteban. The command must reply to the target's
// message; self, bot, and admin targets are rejected with plain replies
// and create no state. The initiator's vote is pre-counted.
func (s *Service) Initiate(ctx context.Context, u *update.Context) error {
	lang := u.Lang()
	chatID := u.ChatID()
	if chatID == 0 {
		return fmt.Errorf("voteban without chat")
	}

	if u.ReplyTo == nil || u.ReplyTo.Sender == nil {
		return u.Reply(ctx, i18n.Text(lang, "vote_ban_reply_required", nil), nil)
	}
	target := u.ReplyTo.Sender
	if target.ID == u.SenderID() {
		return u.Reply(ctx, i18n.Text(lang, "vote_ban_cannot_ban_self", nil), nil)
	}
	if target.IsBot {
		return u.Reply(ctx, i18n.Text(lang, "vote_ban_cannot_ban_admin", nil), nil)
	}
	info, err := s.gw.MemberStatus(ctx, chatID, target.ID)
	if err != nil {
		return fmt.Errorf("read target status: %w", err)
	}
	if info.IsPrivileged() {
		return u.Reply(ctx, i18n.Text(lang, "vote_ban_cannot_ban_admin", nil), nil)
	}

	targetName := displayName(target)
	text := s.voteText(lang, target.ID, targetName, 1, 0)
	markup := s.voteMarkup(lang, target.ID)
	// The vote message replies to the target's own message so voters see
	// what the vote is about.
	msgID, err := s.gw.SendMessage(ctx, chatID, text, &telegram.SendOptions{Markup: markup, ReplyToID: u.ReplyTo.ID})
	if err != nil {
		return fmt.Errorf("send vote message: %w", err)
	}

	session := store.VoteSession{
		ChatID:      chatID,
		TargetID:    target.ID,
		InitiatorID: u.SenderID(),
		TargetName:  targetName,
		MessageID:   msgID,
		CreatedAt:   time.Now(),
	}
	if err := s.votes.CreateSession(ctx, session, store.VoteFor); err != nil {
		if errors.Is(err, store.ErrSessionExists) {
			s.gw.DeleteMessage(ctx, chatID, msgID)
			return u.Reply(ctx, i18n.Text(lang, "vote_ban_already_active", nil), nil)
		}
		return fmt.Errorf("create vote session: %w", err)
	}

	logger.Info(ctx, "service.voteban", "session.created",
		slog.Int64("chat_id", chatID),
		slog.Int64("target_id", target.ID),
		slog.Int64("user_id", u.SenderID()),
		slog.Int("message_id", msgID),
	)
	return nil
}

// HandleVoteCallback records one ban or forgive vote and resolves the
// session when a threshold is met. The ban threshold is always evaluated
// before the forgive threshold.
func (s *Service) HandleVoteCallback(ctx context.Context, u *update.Context) error {
	lang := u.Lang()

	var side store.VoteSide
	targetID, ok := telegram.PayloadUserID(u.CallbackData, telegram.VoteBanPrefix)
	if ok {
		side = store.VoteFor
	} else {
		targetID, ok = telegram.PayloadUserID(u.CallbackData, telegram.VoteForgivePrefix)
		side = store.VoteAgainst
	}
	if !ok {
		return s.gw.AnswerCallback(ctx, u.CallbackID, i18n.Text(lang, "invalid_data", nil), true)
	}

	chatID := u.ChatID()
	if chatID == 0 {
		return fmt.Errorf("vote callback without chat")
	}

	session, found, err := s.votes.GetSession(ctx, chatID, targetID)
	if err != nil {
		return fmt.Errorf("get vote session: %w", err)
	}
	if !found {
		return s.gw.AnswerCallback(ctx, u.CallbackID, i18n.Text(lang, "vote_ban_session_not_found", nil), true)
	}

	res, err := s.votes.AddVote(ctx, chatID, targetID, u.SenderID(), side)
	if errors.Is(err, store.ErrNoSession) {
		return s.gw.AnswerCallback(ctx, u.CallbackID, i18n.Text(lang, "vote_ban_session_not_found", nil), true)
	}
	if err != nil {
		return fmt.Errorf("add vote: %w", err)
	}
	if !res.Added {
		return s.gw.AnswerCallback(ctx, u.CallbackID, i18n.Text(lang, "vote_already_voted", nil), false)
	}

	if err := s.gw.AnswerCallback(ctx, u.CallbackID, i18n.Text(lang, "vote_recorded", nil), false); err != nil {
		logger.Warn(ctx, "service.voteban", "vote.answer_failed",
			slog.String("err", err.Error()),
		)
	}

	logger.Info(ctx, "service.voteban", "vote.recorded",
		slog.Int64("chat_id", chatID),
		slog.Int64("target_id", targetID),
		slog.Int64("user_id", u.SenderID()),
		slog.String("side", string(side)),
		slog.Int("votes_for", res.VotesFor),
		slog.Int("votes_against", res.VotesAgainst),
	)

	switch {
	case res.VotesFor >= s.banThreshold:
		return s.resolve(ctx, session, lang, true)
	case res.VotesAgainst >= s.forgiveThreshold:
		return s.resolve(ctx, session, lang, false)
	default:
		text := s.voteText(lang, session.TargetID, session.TargetName, res.VotesFor, res.VotesAgainst)
		if err := s.gw.EditMessageText(ctx, chatID, session.MessageID, text, s.voteMarkup(lang, session.TargetID)); err != nil {
			logger.Warn(ctx, "service.voteban", "vote.edit_failed",
				slog.Int("message_id", session.MessageID),
				slog.String("err", err.Error()),
			)
		}
		return nil
	}
}

// resolve ends the session. Deleting the session record is the decision
// gate: of two concurrent threshold-crossing votes, only the delete
// winner kicks and announces.
func (s *Service) resolve(ctx context.Context, session store.VoteSession, lang string, ban bool) error {
	won, err := s.votes.DeleteSession(ctx, session.ChatID, session.TargetID)
	if err != nil {
		return fmt.Errorf("delete vote session: %w", err)
	}
	if !won {
		logger.Info(ctx, "service.voteban", "resolve.lost_race",
			slog.Int64("chat_id", session.ChatID),
			slog.Int64("target_id", session.TargetID),
		)
		return nil
	}

	mention := telegram.Mention(session.TargetID, session.TargetName)
	if ban {
		if err := s.gw.KickMember(ctx, session.ChatID, session.TargetID); err != nil {
			return fmt.Errorf("kick voted-out member: %w", err)
		}
		if _, err := s.gw.SendMessage(ctx, session.ChatID, i18n.Text(lang, "vote_ban_success", i18n.Vars{"TARGET": mention}), nil); err != nil {
			logger.Warn(ctx, "service.voteban", "resolve.announce_failed",
				slog.String("err", err.Error()),
			)
		}
	} else {
		if _, err := s.gw.SendMessage(ctx, session.ChatID, i18n.Text(lang, "vote_forgive_success", i18n.Vars{"TARGET": mention}), nil); err != nil {
			logger.Warn(ctx, "service.voteban", "resolve.announce_failed",
				slog.String("err", err.Error()),
			)
		}
	}
	s.gw.DeleteMessage(ctx, session.ChatID, session.MessageID)

	logger.Info(ctx, "service.voteban", "session.resolved",
		slog.Int64("chat_id", session.ChatID),
		slog.Int64("target_id", session.TargetID),
		slog.Bool("banned", ban),
	)
	return nil
}

func (s *Service) voteText(lang string, targetID int64, targetName string, votesFor, votesAgainst int) string {
	return i18n.Text(lang, "vote_ban_initiated", i18n.Vars{
		"TARGET":            telegram.Mention(targetID, targetName),
		"BAN_COUNT":         strconv.Itoa(votesFor),
		"BAN_THRESHOLD":     strconv.Itoa(s.banThreshold),
		"FORGIVE_COUNT":     strconv.Itoa(votesAgainst),
		"FORGIVE_THRESHOLD": strconv.Itoa(s.forgiveThreshold),
	})
}

func (s *Service) voteMarkup(lang string, targetID int64) *tele.ReplyMarkup {
	return telegram.VoteMarkup(
		i18n.Text(lang, "vote_ban_button", nil),
		i18n.Text(lang, "vote_forgive_button", nil),
		targetID,
	)
}

func displayName(u *tele.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if name == "" {
		name = u.Username
	}
	return name
}
