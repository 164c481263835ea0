// Package curate turns a fetched batch into ranked, summarized sections.
package curate

import (
	"log/slog"
	"strings"

	"github.com/deusflow/dailybrief/internal/metrics"
	"github.com/deusflow/dailybrief/internal/news"
)

const (
	reasonURL   = "url"
	reasonTitle = "title"
)

// Deduplicator drops repeated URLs and titles contained in an already kept title.
type Deduplicator struct {
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewDeduplicator(m *metrics.Metrics, logger *slog.Logger) *Deduplicator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduplicator{metrics: m, logger: logger}
}

// Process keeps the first occurrence of each story in input order. The input
// slice is not modified.
func (d *Deduplicator) Process(items []news.Item) []news.Item {
	out := make([]news.Item, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	kept := make([]string, 0, len(items)) // lowered titles of out

	for _, it := range items {
		if _, dup := seen[it.URL]; dup {
			d.drop(it, reasonURL, it.URL)
			continue
		}

		title := strings.ToLower(it.Title)
		if match, ok := containedTitle(title, kept); ok {
			d.drop(it, reasonTitle, match)
			continue
		}

		seen[it.URL] = struct{}{}
		kept = append(kept, title)
		out = append(out, it)
	}
	return out
}

// containedTitle reports the first kept title that contains title or is
// contained in it.
func containedTitle(title string, kept []string) (string, bool) {
	for _, k := range kept {
		if strings.Contains(k, title) || strings.Contains(title, k) {
			return k, true
		}
	}
	return "", false
}

func (d *Deduplicator) drop(it news.Item, reason, against string) {
	d.metrics.IncrementDuplicates(it.Category.String(), reason)
	if d.logger != nil {
		d.logger.Debug("duplicate dropped", "reason", reason, "title", it.Title, "url", it.URL, "matched", against)
	}
}
