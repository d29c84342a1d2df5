// Package news implements the scheduled digest: fetch RSS feeds, score
// their market impact through an OpenAI-compatible model, and post a
// summarized top-N to the community chat.
package news

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/Bayashat/zerde-bot/internal/logger"
)

// Item is one news entry in the scoring pool.
type Item struct {
	ID          int
	Title       string
	Summary     string
	Link        string
	Published   time.Time
	Source      string
	ImpactScore int
	Reason      string
}

const summaryLimit = 250

// DefaultFeeds is the curated feed list, ordered macro-economy first,
// then global trends, then AI/security.
var DefaultFeeds = []string{
	"https://search.cnbc.com/rs/search/combinedcms/view.xml?partnerId=wrss01&id=19854910",
	"https://rss.nytimes.com/services/xml/rss/nyt/Technology.xml",
	"https://techcrunch.com/feed/",
	"https://venturebeat.com/feed/",
	"https://www.theverge.com/rss/index.xml",
	"https://feeds.arstechnica.com/arstechnica/index",
	"https://www.wired.com/feed/rss",
	"https://www.theregister.com/headlines.atom",
	"https://techcrunch.com/category/artificial-intelligence/feed/",
	"https://www.bleepingcomputer.com/feed/",
}

// Fetcher pulls feeds concurrently and keeps only fresh entries.
type Fetcher struct {
	feeds        []string
	itemsPerFeed int
	maxAge       time.Duration
	parser       *gofeed.Parser
}

// NewFetcher builds a fetcher; an empty feed list falls back to DefaultFeeds.
func NewFetcher(feeds []string, itemsPerFeed int, maxAge time.Duration) *Fetcher {
	if len(feeds) == 0 {
		feeds = DefaultFeeds
	}
	return &Fetcher{
		feeds:        feeds,
		itemsPerFeed: itemsPerFeed,
		maxAge:       maxAge,
		parser:       gofeed.NewParser(),
	}
}

// Fetch gathers the raw news pool. Individual feed failures are logged
// and skipped; the pool is whatever the healthy feeds produced.
func (f *Fetcher) Fetch(ctx context.Context) []Item {
	cutoff := time.Now().UTC().Add(-f.maxAge)

	var (
		mu   sync.Mutex
		pool []Item
		wg   sync.WaitGroup
	)
	for _, url := range f.feeds {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			feed, err := f.parser.ParseURLWithContext(url, ctx)
			if err != nil {
				logger.Warn(ctx, "news", "feed.fetch_failed",
					slog.String("key", url),
					slog.String("err", err.Error()),
				)
				return
			}
			items := collectFresh(feed, f.itemsPerFeed, cutoff)
			mu.Lock()
			pool = append(pool, items...)
			mu.Unlock()
		}(url)
	}
	wg.Wait()

	for i := range pool {
		pool[i].ID = i
	}
	logger.Info(ctx, "news", "pool.fetched",
		slog.Int("count", len(pool)),
	)
	return pool
}

// collectFresh keeps up to limit entries newer than cutoff. Entries with
// no parseable date are dropped rather than guessed fresh.
func collectFresh(feed *gofeed.Feed, limit int, cutoff time.Time) []Item {
	source := feed.Title
	if source == "" {
		source = "Unknown"
	}

	var items []Item
	for i, entry := range feed.Items {
		if i >= limit {
			break
		}
		if entry.PublishedParsed == nil || entry.PublishedParsed.Before(cutoff) {
			continue
		}
		summary := entry.Description
		if len(summary) > summaryLimit {
			summary = summary[:summaryLimit]
		}
		title := entry.Title
		if title == "" {
			title = "No title"
		}
		items = append(items, Item{
			Title:     title,
			Summary:   summary,
			Link:      entry.Link,
			Published: entry.PublishedParsed.UTC(),
			Source:    source,
		})
	}
	return items
}
