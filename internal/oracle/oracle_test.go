package oracle

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/dailybrief/internal/cache"
	"github.com/deusflow/dailybrief/internal/logger"
	"github.com/deusflow/dailybrief/internal/metrics"
	"github.com/deusflow/dailybrief/internal/ratelimit"
	"github.com/deusflow/dailybrief/internal/retry"
)

type fakeCompleter struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   int
	prompts []string
	block   bool
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return f.replies[len(f.replies)-1], nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestScoreParsesReply(t *testing.T) {
	fc := &fakeCompleter{replies: []string{`{"score": 8, "reason": "new model"}`}}
	c := NewClient(fc, Options{Logger: logger.Discard()})

	j, err := c.Score(context.Background(), ScoreRequest{Title: "GPT-5", Excerpt: "released"})
	require.NoError(t, err)
	assert.Equal(t, 8.0, j.Score)
	assert.Equal(t, "new model", j.Reason)

	require.Len(t, fc.prompts, 1)
	assert.Contains(t, fc.prompts[0], "GPT-5")
	assert.Contains(t, fc.prompts[0], "released")
	assert.Contains(t, fc.prompts[0], `"score"`)
}

func TestScoreMalformed(t *testing.T) {
	fc := &fakeCompleter{replies: []string{"great article!"}}
	c := NewClient(fc, Options{Logger: logger.Discard()})

	_, err := c.Score(context.Background(), ScoreRequest{Title: "x"})
	assert.ErrorIs(t, err, ErrMalformedReply)
}

func TestSummarize(t *testing.T) {
	fc := &fakeCompleter{replies: []string{" 摘要：苹果发布新芯片。 "}}
	c := NewClient(fc, Options{Logger: logger.Discard()})

	s, err := c.Summarize(context.Background(), SummaryRequest{Title: "Apple M5"})
	require.NoError(t, err)
	assert.Equal(t, "苹果发布新芯片。", s)

	fc = &fakeCompleter{replies: []string{"   "}}
	c = NewClient(fc, Options{Logger: logger.Discard()})
	_, err = c.Summarize(context.Background(), SummaryRequest{Title: "Apple M5"})
	assert.ErrorIs(t, err, ErrMalformedReply)
}

func TestRetryThenSucceed(t *testing.T) {
	m := metrics.New()
	fc := &fakeCompleter{
		errs:    []error{errors.New("503"), nil},
		replies: []string{"", `{"score": 6}`},
	}
	c := NewClient(fc, Options{
		Retry:   retry.RetryConfig{MaxAttempts: 2, Delay: time.Millisecond},
		Metrics: m,
		Logger:  logger.Discard(),
	})

	j, err := c.Score(context.Background(), ScoreRequest{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, 6.0, j.Score)
	assert.Equal(t, 2, fc.callCount())
}

func TestTimeoutIsFailure(t *testing.T) {
	fc := &fakeCompleter{block: true}
	c := NewClient(fc, Options{Timeout: 10 * time.Millisecond, Logger: logger.Discard()})

	_, err := c.Score(context.Background(), ScoreRequest{Title: "slow"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBudgetExhaustedIsNotRetried(t *testing.T) {
	budget := ratelimit.NewBudget(1, 0)
	fc := &fakeCompleter{replies: []string{`{"score": 5}`}}
	c := NewClient(fc, Options{
		Budget: budget,
		Retry:  retry.RetryConfig{MaxAttempts: 3, Delay: time.Millisecond},
		Logger: logger.Discard(),
	})

	_, err := c.Score(context.Background(), ScoreRequest{Title: "a"})
	require.NoError(t, err)

	_, err = c.Score(context.Background(), ScoreRequest{Title: "b"})
	assert.ErrorIs(t, err, ratelimit.ErrBudgetExhausted)
	assert.Equal(t, 1, fc.callCount())
}

func TestMemoAvoidsSecondCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	fc := &fakeCompleter{replies: []string{`{"score": 9}`}}
	c := NewClient(fc, Options{Memo: cache.New(ctx), Metrics: m, Logger: logger.Discard()})

	req := ScoreRequest{Title: "same", Excerpt: "story"}
	first, err := c.Score(ctx, req)
	require.NoError(t, err)
	second, err := c.Score(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fc.callCount())
}

func TestPromptsCarryLimits(t *testing.T) {
	p := buildSummaryPrompt(SummaryRequest{Title: "T", Excerpt: "E"})
	assert.True(t, strings.Contains(p, "100"))
	assert.Contains(t, buildScorePrompt(ScoreRequest{Title: "T"}), "1-10")
}

func TestMetricsOutcomes(t *testing.T) {
	m := metrics.New()
	fc := &fakeCompleter{errs: []error{errors.New("boom")}, replies: []string{""}}
	c := NewClient(fc, Options{Metrics: m, Logger: logger.Discard()})

	_, err := c.Summarize(context.Background(), SummaryRequest{Title: "x"})
	require.Error(t, err)

	n, err := testutil.GatherAndCount(m.Registry(), "dailybrief_oracle_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
