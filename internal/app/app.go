// Package app wires fetchers, the curation pipeline and notifiers into one run.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/dailybrief/internal/cache"
	"github.com/deusflow/dailybrief/internal/config"
	"github.com/deusflow/dailybrief/internal/curate"
	"github.com/deusflow/dailybrief/internal/fetch"
	"github.com/deusflow/dailybrief/internal/metrics"
	"github.com/deusflow/dailybrief/internal/news"
	"github.com/deusflow/dailybrief/internal/notify"
	"github.com/deusflow/dailybrief/internal/oracle"
	"github.com/deusflow/dailybrief/internal/ratelimit"
	"github.com/deusflow/dailybrief/internal/retry"
	"github.com/deusflow/dailybrief/internal/scraper"
)

type App struct {
	cfg       *config.Config
	fetchers  []fetch.Fetcher
	completer oracle.Completer
	notifiers []notify.Notifier
	notifier  notify.Notifier
	metrics   *metrics.Metrics
	logger    *slog.Logger
	output    io.Writer
}

type Option func(*App)

// WithFetchers replaces the fetchers built from cfg.
func WithFetchers(f ...fetch.Fetcher) Option {
	return func(a *App) { a.fetchers = f }
}

// WithCompleter replaces the oracle backend selected by cfg.
func WithCompleter(c oracle.Completer) Option {
	return func(a *App) { a.completer = c }
}

// WithNotifiers replaces the notifiers named by cfg.
func WithNotifiers(n ...notify.Notifier) Option {
	return func(a *App) { a.notifiers = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithOutput sets where the console notifier writes. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.output = w }
}

// New builds everything a run needs. Options are applied before the
// defaults are filled in, so injected parts are never built.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:     cfg,
		metrics: metrics.Global,
		logger:  slog.Default(),
		output:  os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.fetchers == nil {
		fetchers, err := a.buildFetchers()
		if err != nil {
			return nil, err
		}
		a.fetchers = fetchers
	}

	if a.completer == nil {
		c, err := oracle.NewCompleter(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("oracle: %w", err)
		}
		a.completer = c
	}

	if a.notifiers == nil {
		notifiers, err := a.buildNotifiers()
		if err != nil {
			return nil, err
		}
		a.notifiers = notifiers
	}
	a.notifier = notify.NewMulti(a.notifiers, a.retryConfig(), a.metrics, a.logger.With("component", "notify"))

	return a, nil
}

func (a *App) retryConfig() retry.RetryConfig {
	return retry.RetryConfig{
		MaxAttempts: a.cfg.RetryAttempts,
		Delay:       a.cfg.RetryDelay,
		Backoff:     true,
	}
}

func (a *App) buildFetchers() ([]fetch.Fetcher, error) {
	sources, err := fetch.LoadFeeds(a.cfg.FeedsConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load feeds: %w", err)
	}

	fetchers := []fetch.Fetcher{
		fetch.NewRSSFetcher(sources, a.cfg.RequestTimeout, a.logger.With("component", "rss")),
	}
	if a.cfg.HNEnabled {
		var extractor fetch.ContentExtractor
		if a.cfg.EnrichContent {
			extractor = scraper.NewExtractor(a.cfg.RequestTimeout)
		}
		fetchers = append(fetchers, fetch.NewHackerNewsFetcher(
			fetch.HackerNewsBaseURL, a.cfg.RequestTimeout, extractor, a.logger.With("component", "hackernews")))
	}
	return fetchers, nil
}

func (a *App) buildNotifiers() ([]notify.Notifier, error) {
	var out []notify.Notifier
	for _, name := range a.cfg.Notifiers {
		switch name {
		case config.NotifierFeishu:
			out = append(out, notify.NewFeishu(a.cfg.FeishuWebhook, a.cfg.FeishuSecret, a.cfg.RequestTimeout))
		case config.NotifierTelegram:
			out = append(out, notify.NewTelegram(a.cfg.TelegramToken, a.cfg.TelegramChatID, a.cfg.RequestTimeout))
		case config.NotifierConsole:
			out = append(out, notify.NewConsole(a.output))
		default:
			return nil, fmt.Errorf("unknown notifier %q", name)
		}
	}
	return out, nil
}

// newBudget caps oracle requests for one run, in total and per kind.
func newBudget(cfg *config.Config) *ratelimit.Budget {
	b := ratelimit.NewBudget(cfg.MaxOracleRequests, cfg.OracleRPS)
	b.SetLimit(oracle.KindScore, cfg.MaxScoreRequests)
	b.SetLimit(oracle.KindSummary, cfg.MaxSummaryRequests)
	return b
}

// Run performs one fetch, curate and deliver cycle. Oracle failures only
// degrade the digest; a contract violation or failed delivery is returned.
func (a *App) Run(ctx context.Context) error {
	start := time.Now()
	runID := uuid.NewString()
	log := a.logger.With("run_id", runID)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	budget := newBudget(a.cfg)
	client := oracle.NewClient(a.completer, oracle.Options{
		Timeout: a.cfg.OracleTimeout,
		Retry: retry.RetryConfig{
			MaxAttempts: a.cfg.OracleRetryAttempts,
			Delay:       a.cfg.RetryDelay,
			Backoff:     true,
		},
		Budget:  budget,
		Memo:    cache.New(runCtx),
		Metrics: a.metrics,
		Logger:  log.With("component", "oracle"),
	})

	log.Info("run started", "oracle", a.completer.Name(), "fetchers", len(a.fetchers))

	batches := fetch.Collect(runCtx, a.fetchers, news.Categories(), a.cfg.FetchLimit, a.metrics, log)

	pipeline := curate.NewFromConfig(a.cfg, client, client, a.metrics, log.With("component", "curate"))
	digest, err := pipeline.Run(runCtx, batches)
	if err != nil {
		a.metrics.SetError(err.Error())
		return fmt.Errorf("curate: %w", err)
	}
	digest.RunID = runID

	budget.LogStats(log)

	err = a.notifier.Send(runCtx, digest)
	a.metrics.RecordProcessingTime(time.Since(start))
	if err != nil {
		a.metrics.SetError(err.Error())
		return fmt.Errorf("deliver digest: %w", err)
	}

	a.metrics.SetLastRun()
	log.Info("run finished",
		"sections", len(digest.Sections),
		"items", digest.Total(),
		"score_requests", budget.Used(oracle.KindScore),
		"summary_requests", budget.Used(oracle.KindSummary),
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// Close releases the oracle backend if it holds a connection.
func (a *App) Close() error {
	if c, ok := a.completer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
