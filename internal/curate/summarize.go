package curate

import (
	"context"
	"strings"

	"github.com/deusflow/dailybrief/internal/news"
	"github.com/deusflow/dailybrief/internal/oracle"
)

const defaultSummaryExcerpt = 1000

type Summarizer struct {
	writer oracle.SummaryWriter
	opts   Options
}

func NewSummarizer(writer oracle.SummaryWriter, opts Options) *Summarizer {
	if opts.ExcerptRunes <= 0 {
		opts.ExcerptRunes = defaultSummaryExcerpt
	}
	return &Summarizer{writer: writer, opts: opts}
}

// SummarizeArticles returns the items in the same order, each with a
// non-empty summary. When the writer fails the title stands in.
func (s *Summarizer) SummarizeArticles(ctx context.Context, items []news.Item) []news.Item {
	out := make([]news.Item, len(items))
	forEach(len(items), s.opts.Concurrency, func(i int) {
		out[i] = items[i].WithSummary(s.summarize(ctx, items[i]))
	})
	return out
}

func (s *Summarizer) summarize(ctx context.Context, it news.Item) string {
	summary, err := s.writer.Summarize(ctx, oracle.SummaryRequest{
		Title:   it.Title,
		Excerpt: Excerpt(it.Content, s.opts.ExcerptRunes),
	})
	summary = strings.TrimSpace(summary)
	if err == nil && summary != "" {
		return summary
	}

	s.opts.Metrics.IncrementFallbacks(oracle.KindSummary)
	s.opts.logger().Warn("summary failed, using title", "title", it.Title, "error", err)
	return it.Title
}
