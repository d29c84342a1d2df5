package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/Bayashat/zerde-bot/internal/logger"
)

// Bot implements Gateway on top of the Telegram Bot API.
type Bot struct {
	bot *tele.Bot
}

// NewBot builds the underlying API client. No poller is attached: updates
// arrive through the task queue, the client is used for outbound calls only.
func NewBot(token string) (*Bot, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:   token,
		Client:  BuildHTTPClient(),
		Offline: false,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	return &Bot{bot: b}, nil
}

// Underlying exposes the raw client for composition at startup.
func (g *Bot) Underlying() *tele.Bot { return g.bot }

// SendMessage sends HTML text to the chat and returns the sent message id.
func (g *Bot) SendMessage(ctx context.Context, chatID int64, text string, opts *SendOptions) (int, error) {
	start := time.Now()
	sendOpts := &tele.SendOptions{ParseMode: tele.ModeHTML}
	if opts != nil {
		sendOpts.ReplyMarkup = opts.Markup
		if opts.ReplyToID != 0 {
			sendOpts.ReplyTo = &tele.Message{ID: opts.ReplyToID, Chat: &tele.Chat{ID: chatID}}
		}
	}
	msg, err := g.bot.Send(tele.ChatID(chatID), text, sendOpts)
	if err != nil {
		logger.Error(ctx, "tg", "send_message",
			slog.Int64("chat_id", chatID),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return 0, fmt.Errorf("sendMessage: %w", err)
	}
	return msg.ID, nil
}

// EditMessageText replaces a message's text and markup in place.
func (g *Bot) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, markup *tele.ReplyMarkup) error {
	ref := tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID}
	_, err := g.bot.Edit(ref, text, &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: markup})
	if err != nil {
		logger.Error(ctx, "tg", "edit_message",
			slog.Int64("chat_id", chatID),
			slog.Int("message_id", messageID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("editMessageText: %w", err)
	}
	return nil
}

// AnswerCallback dismisses the callback's loading state.
func (g *Bot) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	err := g.bot.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{
		Text:      text,
		ShowAlert: alert,
	})
	if err != nil {
		logger.Error(ctx, "tg", "answer_callback",
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("answerCallbackQuery: %w", err)
	}
	return nil
}

// RestrictMember applies the given rights to a member.
func (g *Bot) RestrictMember(ctx context.Context, chatID, userID int64, rights tele.Rights) error {
	member := &tele.ChatMember{
		User:   &tele.User{ID: userID},
		Rights: rights,
	}
	if err := g.bot.Restrict(&tele.Chat{ID: chatID}, member); err != nil {
		logger.Error(ctx, "tg", "restrict_member",
			slog.Int64("chat_id", chatID),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("restrictChatMember: %w", err)
	}
	return nil
}

// KickMember bans and immediately unbans, removing the user without a
// permanent block.
func (g *Bot) KickMember(ctx context.Context, chatID, userID int64) error {
	chat := &tele.Chat{ID: chatID}
	user := &tele.User{ID: userID}
	if err := g.bot.Ban(chat, &tele.ChatMember{User: user}); err != nil {
		logger.Error(ctx, "tg", "kick_member",
			slog.Int64("chat_id", chatID),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("banChatMember: %w", err)
	}
	// Unban failure must not block the flow; the user stays banned instead
	// of kicked, which an admin can undo.
	if err := g.bot.Unban(chat, user, true); err != nil {
		logger.Warn(ctx, "tg", "unban_after_kick",
			slog.Int64("chat_id", chatID),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
	return nil
}

// MemberStatus reads the member's current status from the platform.
func (g *Bot) MemberStatus(ctx context.Context, chatID, userID int64) (MemberInfo, error) {
	member, err := g.bot.ChatMemberOf(&tele.Chat{ID: chatID}, &tele.User{ID: userID})
	if err != nil {
		logger.Error(ctx, "tg", "member_status",
			slog.Int64("chat_id", chatID),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return MemberInfo{}, fmt.Errorf("getChatMember: %w", err)
	}
	return MemberInfo{
		Status:          string(member.Role),
		CanSendMessages: member.Rights.CanSendMessages,
	}, nil
}

// DeleteMessage is best-effort: failure is logged and swallowed.
func (g *Bot) DeleteMessage(ctx context.Context, chatID int64, messageID int) {
	ref := tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID}
	if err := g.bot.Delete(ref); err != nil {
		logger.Warn(ctx, "tg", "delete_message",
			slog.Int64("chat_id", chatID),
			slog.Int("message_id", messageID),
			slog.String("err", err.Error()),
		)
	}
}

// Mention renders an HTML user mention for message text.
func Mention(userID int64, name string) string {
	if name == "" {
		name = "User"
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, userID, name)
}
