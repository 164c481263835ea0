package curate

import (
	"context"
	"math"
	"sort"

	"github.com/deusflow/dailybrief/internal/news"
	"github.com/deusflow/dailybrief/internal/oracle"
)

// FallbackScore is given to any item the scorer could not judge.
const FallbackScore = 5.0

const defaultScoreExcerpt = 500

type Ranker struct {
	scorer oracle.Scorer
	opts   Options
}

func NewRanker(scorer oracle.Scorer, opts Options) *Ranker {
	if opts.ExcerptRunes <= 0 {
		opts.ExcerptRunes = defaultScoreExcerpt
	}
	return &Ranker{scorer: scorer, opts: opts}
}

// FilterArticles scores every item, sorts by descending score keeping input
// order among ties, and returns at most topK of them. Scoring failures never
// surface: the item gets FallbackScore.
func (r *Ranker) FilterArticles(ctx context.Context, items []news.Item, topK int) []news.Item {
	if len(items) == 0 || topK <= 0 {
		return []news.Item{}
	}

	scored := make([]news.Item, len(items))
	forEach(len(items), r.opts.Concurrency, func(i int) {
		scored[i] = items[i].WithScore(r.score(ctx, items[i]))
	})

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored
}

func (r *Ranker) score(ctx context.Context, it news.Item) float64 {
	j, err := r.scorer.Score(ctx, oracle.ScoreRequest{
		Title:   it.Title,
		Excerpt: Excerpt(it.Content, r.opts.ExcerptRunes),
	})
	if err == nil && !validScore(j.Score) {
		err = oracle.ErrMalformedReply
	}
	if err != nil {
		r.opts.Metrics.IncrementFallbacks(oracle.KindScore)
		r.opts.logger().Warn("scoring failed, using fallback", "title", it.Title, "fallback", FallbackScore, "error", err)
		return FallbackScore
	}
	return j.Score
}

func validScore(s float64) bool {
	return !math.IsNaN(s) && !math.IsInf(s, 0) && s >= 0 && s <= 10
}
