package fetch

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/deusflow/dailybrief/internal/news"
)

// RSSFetcher reads the configured feeds of a category.
type RSSFetcher struct {
	sources   map[news.Category][]Source
	client    *http.Client
	sanitizer *Sanitizer
	logger    *slog.Logger
}

func NewRSSFetcher(sources map[news.Category][]Source, timeout time.Duration, logger *slog.Logger) *RSSFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RSSFetcher{
		sources:   sources,
		client:    &http.Client{Timeout: timeout},
		sanitizer: NewSanitizer(),
		logger:    logger,
	}
}

func (r *RSSFetcher) Name() string { return "rss" }

// Fetch takes up to limit entries from each source. A broken feed is logged
// and skipped; Fetch itself only fails when ctx is done.
func (r *RSSFetcher) Fetch(ctx context.Context, category news.Category, limit int) ([]news.Item, error) {
	sources := r.sources[category]
	items := make([]news.Item, 0, len(sources)*limit)
	successCount := 0

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return items, err
		}

		parser := gofeed.NewParser()
		parser.Client = r.client
		feed, err := parser.ParseURLWithContext(src.URL, ctx)
		if err != nil {
			r.logger.Warn("error parsing RSS", "source", src.Name, "url", src.URL, "error", err)
			continue
		}
		successCount++

		entries := feed.Items
		if limit > 0 && len(entries) > limit {
			entries = entries[:limit]
		}
		before := len(items)
		for _, entry := range entries {
			if it, ok := r.toItem(entry, category, src.Name); ok {
				items = append(items, it)
			}
		}
		r.logger.Debug("loaded feed", "source", src.Name, "items", len(items)-before)
	}

	r.logger.Info("processed RSS feeds", "category", category.String(), "ok", successCount, "total", len(sources))
	return items, nil
}

func (r *RSSFetcher) toItem(entry *gofeed.Item, category news.Category, source string) (news.Item, bool) {
	title := strings.TrimSpace(r.sanitizer.Text(entry.Title))
	link := strings.TrimSpace(entry.Link)
	if title == "" || link == "" {
		return news.Item{}, false
	}

	content := entry.Description
	if content == "" {
		content = entry.Content
	}

	it := news.Item{
		Title:    title,
		URL:      link,
		Content:  r.sanitizer.Text(content),
		Category: category,
		Source:   source,
	}
	switch {
	case entry.PublishedParsed != nil:
		it.PublishedAt = *entry.PublishedParsed
	case entry.UpdatedParsed != nil:
		it.PublishedAt = *entry.UpdatedParsed
	}
	if entry.Author != nil {
		it.Author = entry.Author.Name
	}
	return it, true
}
