package curate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/dailybrief/internal/config"
	"github.com/deusflow/dailybrief/internal/metrics"
	"github.com/deusflow/dailybrief/internal/news"
	"github.com/deusflow/dailybrief/internal/oracle"
)

// ErrContractViolation marks a batch the pipeline refuses to process.
var ErrContractViolation = errors.New("pipeline contract violation")

// Pipeline runs dedup, ranking and summarizing for each category in turn.
type Pipeline struct {
	dedup      *Deduplicator
	ranker     *Ranker
	summarizer *Summarizer
	topK       func(news.Category) int
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

func NewPipeline(dedup *Deduplicator, ranker *Ranker, summarizer *Summarizer, topK func(news.Category) int, m *metrics.Metrics, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		dedup:      dedup,
		ranker:     ranker,
		summarizer: summarizer,
		topK:       topK,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// NewFromConfig wires the three stages with the sizes and concurrency in cfg.
func NewFromConfig(cfg *config.Config, scorer oracle.Scorer, writer oracle.SummaryWriter, m *metrics.Metrics, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return NewPipeline(
		NewDeduplicator(m, logger),
		NewRanker(scorer, Options{
			ExcerptRunes: cfg.ScoreExcerptRunes,
			Concurrency:  cfg.OracleConcurrency,
			Metrics:      m,
			Logger:       logger,
		}),
		NewSummarizer(writer, Options{
			ExcerptRunes: cfg.SummaryExcerptRunes,
			Concurrency:  cfg.OracleConcurrency,
			Metrics:      m,
			Logger:       logger,
		}),
		cfg.TopKFor,
		m,
		logger,
	)
}

// Run produces one section per category that has items left after dedup,
// in news.Categories order.
func (p *Pipeline) Run(ctx context.Context, batches map[news.Category][]news.Item) (news.Digest, error) {
	if err := validateBatches(batches); err != nil {
		return news.Digest{}, err
	}

	digest := news.Digest{GeneratedAt: p.now()}

	for _, cat := range news.Categories() {
		if err := ctx.Err(); err != nil {
			return news.Digest{}, err
		}

		log := p.logger.With("category", cat.String())

		unique := p.dedup.Process(batches[cat])
		if len(unique) == 0 {
			log.Info("no items after dedup, skipping category", "fetched", len(batches[cat]))
			continue
		}

		top := p.ranker.FilterArticles(ctx, unique, p.topK(cat))
		if len(top) == 0 {
			continue
		}
		summarized := p.summarizer.SummarizeArticles(ctx, top)

		p.metrics.AddSelected(cat.String(), len(summarized))
		log.Info("category curated",
			"fetched", len(batches[cat]),
			"unique", len(unique),
			"selected", len(summarized))

		digest.Sections = append(digest.Sections, news.Section{
			Category: cat,
			Items:    news.Rank(cat, summarized),
		})
	}

	return digest, nil
}

func validateBatches(batches map[news.Category][]news.Item) error {
	for cat, items := range batches {
		if !cat.Valid() {
			return fmt.Errorf("batch keyed by unknown category %q: %w", cat, ErrContractViolation)
		}
		for i, it := range items {
			if it.Category != cat {
				return fmt.Errorf("item %d (%q) has category %q in %q batch: %w", i, it.Title, it.Category, cat, ErrContractViolation)
			}
		}
	}
	return nil
}
