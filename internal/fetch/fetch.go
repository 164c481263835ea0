// Package fetch collects raw news items per category from RSS feeds and Hacker News.
package fetch

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/dailybrief/internal/metrics"
	"github.com/deusflow/dailybrief/internal/news"
)

// Fetcher returns up to limit items of one category from one kind of source.
// A fetcher that has nothing for a category returns an empty slice.
type Fetcher interface {
	Fetch(ctx context.Context, category news.Category, limit int) ([]news.Item, error)
	Name() string
}

// Collect runs every fetcher for every category and groups the results.
// A failing fetcher is logged and contributes nothing. Within a category,
// items appear in fetcher order, so output is stable for the same inputs.
func Collect(ctx context.Context, fetchers []Fetcher, categories []news.Category, limit int, m *metrics.Metrics, logger *slog.Logger) map[news.Category][]news.Item {
	if logger == nil {
		logger = slog.Default()
	}

	type key struct {
		cat news.Category
		idx int
	}
	var (
		mu      sync.Mutex
		results = make(map[key][]news.Item)
		g       errgroup.Group
	)

	for _, cat := range categories {
		cat := cat
		for i, f := range fetchers {
			i, f := i, f
			g.Go(func() error {
				items, err := f.Fetch(ctx, cat, limit)
				if err != nil {
					logger.Warn("fetch failed", "source", f.Name(), "category", cat.String(), "error", err)
					return nil
				}
				m.AddFetched(cat.String(), f.Name(), len(items))

				mu.Lock()
				results[key{cat, i}] = items
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	batches := make(map[news.Category][]news.Item, len(categories))
	for _, cat := range categories {
		batch := []news.Item{}
		for i := range fetchers {
			batch = append(batch, results[key{cat, i}]...)
		}
		batches[cat] = batch
		logger.Info("collected items", "category", cat.String(), "count", len(batch))
	}
	return batches
}
