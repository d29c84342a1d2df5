// Package worker consumes the task queue and hands each payload to the
// matching handler: internal timeout tasks to the verification machine,
// everything else through the dispatcher.
package worker

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Bayashat/zerde-bot/internal/config"
	"github.com/Bayashat/zerde-bot/internal/dispatch"
	"github.com/Bayashat/zerde-bot/internal/logger"
	"github.com/Bayashat/zerde-bot/internal/queue"
	"github.com/Bayashat/zerde-bot/internal/stats"
	"github.com/Bayashat/zerde-bot/internal/telegram"
	"github.com/Bayashat/zerde-bot/internal/update"
	"github.com/Bayashat/zerde-bot/internal/verification"
	"github.com/Bayashat/zerde-bot/internal/voteban"
)

// Deps are the collaborators one worker runs on. All of them are
// constructed once at startup and injected; nothing here is global.
type Deps struct {
	Cfg     *config.Config
	Gateway telegram.Gateway
	Verify  *verification.Service
	VoteBan *voteban.Service
	Stats   *stats.Stats
	Queue   *queue.Queue
}

// Worker routes decoded queue payloads.
type Worker struct {
	deps       Deps
	dispatcher *dispatch.Dispatcher
}

// New builds the worker and its handler registry.
func New(deps Deps) *Worker {
	w := &Worker{deps: deps}
	w.dispatcher = dispatch.NewDispatcher(w.buildRegistry())
	return w
}

// Run consumes the queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	return w.deps.Queue.Consume(ctx, w.HandleMessage)
}

// HandleMessage processes one queue payload. Decode failures drop the
// message with a log entry; the platform never sees a failure for one
// bad update.
func (w *Worker) HandleMessage(ctx context.Context, payload []byte) {
	start := time.Now()

	env, err := update.Decode(payload)
	if err != nil {
		logger.Warn(ctx, "dispatch", "message.dropped",
			slog.String("err", err.Error()),
			slog.String("raw", logger.SanitizeLimit(string(payload), 256)),
		)
		return
	}

	switch {
	case env.Task != nil:
		ctx = logger.WithRID(ctx, logger.BuildRID(0, env.Task.ChatID, env.Task.UserID))
		if err := w.deps.Verify.HandleTimeoutCheck(ctx, env.Task); err != nil {
			logger.Error(ctx, "dispatch", "timeout_check.failed",
				slog.Int64("chat_id", env.Task.ChatID),
				slog.Int64("target_id", env.Task.UserID),
				slog.String("err", err.Error()),
			)
		}
	case env.Update != nil:
		u := update.New(*env.Update, w.deps.Gateway, w.deps.Cfg.Telegram.BotName, w.deps.Cfg.Telegram.DefaultLang)
		rid := logger.BuildRID(env.Update.ID, u.ChatID(), u.SenderID())
		ctx = logger.WithRID(ctx, rid)
		ctx = logger.WithUpdateMeta(ctx, env.Update.ID, u.SenderID(), u.ChatID())
		w.dispatcher.Route(ctx, u)
	}

	logger.Debug(ctx, "dispatch", "message.done",
		slog.Duration("duration", logger.Took(start)),
	)
}

func (w *Worker) buildRegistry() *dispatch.Registry {
	reg := dispatch.NewRegistry()

	reg.SetJoinHandler(w.deps.Verify.HandleJoin)
	reg.SetCallbackHandler(w.routeCallback)

	reg.RegisterCommand("/start", dispatch.Command{Handler: w.handleStart, Description: "Introduction"})
	reg.RegisterCommand("/help", dispatch.Command{Handler: w.handleHelp, Description: "Usage instructions"})
	reg.RegisterCommand("/support", dispatch.Command{Handler: w.handleSupport, Description: "Technical support contact"})
	reg.RegisterCommand("/ping", dispatch.Command{Handler: w.handlePing, Description: "Liveness check", AdminOnly: false})
	reg.RegisterCommand("/stats", dispatch.Command{Handler: w.handleStats, Description: "Chat statistics", AdminOnly: true})
	reg.RegisterCommand("/voteban", dispatch.Command{Handler: w.deps.VoteBan.Initiate, Description: "Start a vote to ban"})

	logger.Info(context.Background(), "dispatch", "registry.built",
		slog.Int("count", len(reg.ListCommands())),
	)
	return reg
}

// routeCallback fans callbacks out by payload prefix.
func (w *Worker) routeCallback(ctx context.Context, u *update.Context) error {
	data := u.CallbackData
	switch {
	case strings.HasPrefix(data, telegram.VerifyPrefix):
		return w.deps.Verify.HandleVerifyCallback(ctx, u)
	case strings.HasPrefix(data, telegram.VoteBanPrefix), strings.HasPrefix(data, telegram.VoteForgivePrefix):
		return w.deps.VoteBan.HandleVoteCallback(ctx, u)
	default:
		return w.answerUnknown(ctx, u)
	}
}
