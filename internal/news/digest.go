package news

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Bayashat/zerde-bot/internal/config"
	"github.com/Bayashat/zerde-bot/internal/logger"
	"github.com/Bayashat/zerde-bot/internal/telegram"
)

// Digest wires one fetch-score-summarize-send cycle.
type Digest struct {
	fetcher *Fetcher
	ai      *AI
	gw      telegram.Gateway
	chatID  int64
	topN    int
	lang    string
}

// NewDigest builds the job from configuration.
func NewDigest(gw telegram.Gateway, cfg config.NewsConfig) *Digest {
	return &Digest{
		fetcher: NewFetcher(cfg.Feeds, cfg.ItemsPerFeed, maxAge(cfg)),
		ai:      NewAI(cfg),
		gw:      gw,
		chatID:  cfg.ChatID,
		topN:    cfg.TopN,
		lang:    cfg.Language,
	}
}

// Run executes one digest cycle. An empty pool still posts the "no news"
// notice so the chat sees the job ran.
func (d *Digest) Run(ctx context.Context) error {
	pool := d.fetcher.Fetch(ctx)
	if len(pool) == 0 {
		_, err := d.gw.SendMessage(ctx, d.chatID, noNewsMessage(d.lang), nil)
		if err != nil {
			return fmt.Errorf("send no-news notice: %w", err)
		}
		return nil
	}

	scored := d.ai.EvaluateImpact(ctx, pool)
	top := TopByImpact(scored, d.topN)
	logger.Info(ctx, "news", "selection.done",
		slog.Int("count", len(top)),
	)

	summary, err := d.ai.Summarize(ctx, top)
	if err != nil {
		return fmt.Errorf("summarize digest: %w", err)
	}

	safe := SanitizeHTML(summary)
	if _, err := d.gw.SendMessage(ctx, d.chatID, safe, nil); err != nil {
		logger.Warn(ctx, "news", "send.html_failed",
			slog.String("err", err.Error()),
		)
		// The platform rejects malformed HTML entities; plain text always lands.
		if _, err := d.gw.SendMessage(ctx, d.chatID, StripTags(summary), nil); err != nil {
			return fmt.Errorf("send digest fallback: %w", err)
		}
	}
	return nil
}

func maxAge(cfg config.NewsConfig) time.Duration {
	return time.Duration(cfg.MaxAgeHours) * time.Hour
}
