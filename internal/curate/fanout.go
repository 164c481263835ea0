package curate

import (
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/dailybrief/internal/metrics"
)

// Options configure a Ranker or Summarizer.
type Options struct {
	ExcerptRunes int
	Concurrency  int // values below 2 run sequentially
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// forEach calls fn for 0..n-1, at most limit at a time. fn must only write
// to its own index.
func forEach(n, limit int, fn func(i int)) {
	if limit < 2 || n < 2 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}
