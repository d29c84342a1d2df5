package dispatch

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/Bayashat/zerde-bot/internal/i18n"
	"github.com/Bayashat/zerde-bot/internal/logger"
	"github.com/Bayashat/zerde-bot/internal/update"
)

// Dispatcher routes one update to exactly one handler. Handler failures
// stay inside Route: they are logged, and only the command path answers
// the user with the localized generic error. A bad update never affects
// its queue siblings.
type Dispatcher struct {
	reg *Registry
}

// NewDispatcher wires a Dispatcher over a completed registry.
func NewDispatcher(reg *Registry) *Dispatcher {
	return &Dispatcher{reg: reg}
}

// Route delivers the update by precedence. The recover boundary is a
// last-resort safety net; handlers are expected to return errors.
func (d *Dispatcher) Route(ctx context.Context, u *update.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "dispatch", "panic",
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	if d == nil || d.reg == nil || u == nil {
		return
	}

	switch u.Kind {
	case update.KindCallback:
		d.routeCallback(ctx, u)
	case update.KindJoin:
		d.routeJoin(ctx, u)
	case update.KindCommand:
		d.routeCommand(ctx, u)
	default:
		logger.Debug(ctx, "dispatch", "route.noop",
			slog.Int("update_id", u.Update.ID),
		)
	}
}

func (d *Dispatcher) routeCallback(ctx context.Context, u *update.Context) {
	if d.reg.callback == nil {
		logger.Debug(ctx, "dispatch", "route.callback.unhandled")
		return
	}
	if err := d.reg.callback(ctx, u); err != nil {
		logger.Error(ctx, "dispatch", "callback.failed",
			slog.String("data", logger.SanitizeLimit(u.CallbackData, 64)),
			slog.String("err", err.Error()),
		)
	}
}

func (d *Dispatcher) routeJoin(ctx context.Context, u *update.Context) {
	if d.reg.join == nil {
		logger.Debug(ctx, "dispatch", "route.join.unhandled")
		return
	}
	if err := d.reg.join(ctx, u); err != nil {
		logger.Error(ctx, "dispatch", "join.failed",
			slog.Int("members", len(u.NewMembers)),
			slog.String("err", err.Error()),
		)
	}
}

func (d *Dispatcher) routeCommand(ctx context.Context, u *update.Context) {
	cmd, ok := d.reg.LookupCommand(u.Command)
	if !ok {
		logger.Debug(ctx, "dispatch", "route.command.unknown",
			slog.String("command", u.Command),
		)
		return
	}
	ctx = logger.WithHandler(ctx, u.Command)
	if err := cmd.Handler(ctx, u); err != nil {
		logger.Error(ctx, "dispatch", "command.failed",
			slog.String("command", u.Command),
			slog.String("err", err.Error()),
		)
		if rerr := u.Reply(ctx, i18n.Text(u.Lang(), "error_occurred", nil), nil); rerr != nil {
			logger.Warn(ctx, "dispatch", "command.error_reply_failed",
				slog.String("err", rerr.Error()),
			)
		}
	}
}
