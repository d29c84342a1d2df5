package worker

import (
	"context"
	"fmt"

	"github.com/Bayashat/zerde-bot/internal/i18n"
	"github.com/Bayashat/zerde-bot/internal/update"
)

func (w *Worker) handleStart(ctx context.Context, u *update.Context) error {
	return u.Reply(ctx, i18n.Text(u.Lang(), "start_message", nil), nil)
}

func (w *Worker) handleHelp(ctx context.Context, u *update.Context) error {
	return u.Reply(ctx, i18n.Text(u.Lang(), "help_message", nil), nil)
}

func (w *Worker) handleSupport(ctx context.Context, u *update.Context) error {
	return u.Reply(ctx, i18n.Text(u.Lang(), "support_message", nil), nil)
}

func (w *Worker) handlePing(ctx context.Context, u *update.Context) error {
	return u.Reply(ctx, i18n.Text(u.Lang(), "ping_message", nil), nil)
}

// handleStats is admin-only, checked against live member status rather
// than any cached role.
func (w *Worker) handleStats(ctx context.Context, u *update.Context) error {
	lang := u.Lang()
	chatID := u.ChatID()
	if chatID == 0 || u.SenderID() == 0 {
		return u.Reply(ctx, i18n.Text(lang, "stats_error", nil), nil)
	}

	member, err := w.deps.Gateway.MemberStatus(ctx, chatID, u.SenderID())
	if err != nil {
		return fmt.Errorf("read caller status: %w", err)
	}
	if !member.IsPrivileged() {
		return u.Reply(ctx, i18n.Text(lang, "stats_admin_only", nil), nil)
	}

	snap, err := w.deps.Stats.Get(ctx, chatID)
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}

	text := i18n.Text(lang, "stats_message", i18n.Vars{
		"START_DATE":     snap.StartedAt,
		"TOTAL":          fmt.Sprintf("%d", snap.TotalJoins),
		"VERIFIED":       fmt.Sprintf("%d", snap.Verified),
		"ACTIVITY_LEVEL": i18n.Text(lang, snap.ActivityKey(), nil),
	})
	return u.Reply(ctx, text, nil)
}

func (w *Worker) answerUnknown(ctx context.Context, u *update.Context) error {
	return w.deps.Gateway.AnswerCallback(ctx, u.CallbackID, i18n.Text(u.Lang(), "unknown_action", nil), false)
}
