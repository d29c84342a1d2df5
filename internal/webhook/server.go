// Package webhook is the ingress side: it accepts Telegram webhook posts,
// verifies the shared secret, filters out updates the bot does not act
// on, and enqueues the rest for the worker. The response is always 200 so
// Telegram never re-delivers on our behalf; redelivery is the queue's job.
package webhook

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Bayashat/zerde-bot/internal/config"
	"github.com/Bayashat/zerde-bot/internal/logger"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// maxBodyBytes caps a webhook payload; Telegram updates are far smaller.
const maxBodyBytes = 1 << 20

// Enqueuer is the queue side the receiver pushes into.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload []byte) error
}

// NewRouter builds the receiver's HTTP surface.
func NewRouter(q Enqueuer, cfg config.WebhookConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post(cfg.Path, handleUpdate(q, cfg.SecretToken))

	return r
}

func handleUpdate(q Enqueuer, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		// Every branch answers 200: a failed update must never trigger
		// Telegram's webhook retry loop.
		defer respondOK(w)

		if secret != "" {
			got := r.Header.Get(secretHeader)
			if got == "" || !hmac.Equal([]byte(got), []byte(secret)) {
				logger.Warn(ctx, "http", "webhook.secret_mismatch")
				return
			}
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil || len(body) == 0 {
			logger.Warn(ctx, "http", "webhook.empty_body")
			return
		}

		if !isRelevant(body) {
			logger.Debug(ctx, "http", "webhook.irrelevant")
			return
		}

		if err := q.Enqueue(ctx, body); err != nil {
			logger.Error(ctx, "http", "webhook.enqueue_failed",
				slog.String("err", err.Error()),
			)
			return
		}
		logger.Debug(ctx, "http", "webhook.enqueued",
			slog.Int("count", len(body)),
		)
	}
}

func respondOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"ok":true}`))
}

// isRelevant keeps only updates the worker acts on: callbacks, member
// joins, and slash commands.
func isRelevant(body []byte) bool {
	var probe struct {
		CallbackQuery json.RawMessage `json:"callback_query"`
		Message       *struct {
			Text           string            `json:"text"`
			Caption        string            `json:"caption"`
			NewChatMembers []json.RawMessage `json:"new_chat_members"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}

	if len(probe.CallbackQuery) > 0 {
		return true
	}
	if probe.Message == nil {
		return false
	}
	if len(probe.Message.NewChatMembers) > 0 {
		return true
	}
	text := probe.Message.Text
	if text == "" {
		text = probe.Message.Caption
	}
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}
