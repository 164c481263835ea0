// Package oracle asks a language model to judge and summarize news items.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/deusflow/dailybrief/internal/cache"
	"github.com/deusflow/dailybrief/internal/metrics"
	"github.com/deusflow/dailybrief/internal/ratelimit"
	"github.com/deusflow/dailybrief/internal/retry"
)

// ErrMalformedReply means the model answered but not in the requested shape.
var ErrMalformedReply = errors.New("malformed oracle reply")

const (
	KindScore   = "score"
	KindSummary = "summary"

	scoreMaxTokens   = 200
	summaryMaxTokens = 150

	defaultTimeout = 30 * time.Second
	memoTTL        = 6 * time.Hour
)

// Completer sends one prompt to a model and returns its text reply.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
	Name() string
}

type ScoreRequest struct {
	Title   string
	Excerpt string
}

// Judgment is the parsed scoring reply. Score is on a 1-10 scale.
type Judgment struct {
	Score  float64
	Reason string
}

type Scorer interface {
	Score(ctx context.Context, req ScoreRequest) (Judgment, error)
}

type SummaryRequest struct {
	Title   string
	Excerpt string
}

type SummaryWriter interface {
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}

// Options control how each model call is made. Zero values are usable:
// no budget, no memo, a single attempt and a 30s timeout.
type Options struct {
	Timeout time.Duration
	Retry   retry.RetryConfig
	Budget  *ratelimit.Budget
	Memo    *cache.Cache
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Client implements Scorer and SummaryWriter on top of a Completer.
type Client struct {
	completer Completer
	opts      Options
	logger    *slog.Logger
}

func NewClient(completer Completer, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		completer: completer,
		opts:      opts,
		logger:    logger.With("oracle", completer.Name()),
	}
}

func (c *Client) Score(ctx context.Context, req ScoreRequest) (Judgment, error) {
	reply, err := c.call(ctx, KindScore, buildScorePrompt(req), scoreMaxTokens)
	if err != nil {
		return Judgment{}, err
	}
	j, err := parseJudgment(reply)
	if err != nil {
		c.logger.Debug("unparseable score reply", "title", req.Title, "reply", reply)
		return Judgment{}, err
	}
	return j, nil
}

func (c *Client) Summarize(ctx context.Context, req SummaryRequest) (string, error) {
	reply, err := c.call(ctx, KindSummary, buildSummaryPrompt(req), summaryMaxTokens)
	if err != nil {
		return "", err
	}
	summary := cleanSummary(reply)
	if summary == "" {
		return "", fmt.Errorf("empty summary: %w", ErrMalformedReply)
	}
	return summary, nil
}

// call runs one logical request: memo lookup, then budgeted attempts each
// bounded by the per-call timeout. Only successful replies are memoized.
func (c *Client) call(ctx context.Context, kind, prompt string, maxTokens int) (string, error) {
	key := cache.GenerateKey(c.completer.Name(), kind, prompt)
	if c.opts.Memo != nil {
		if v, ok := c.opts.Memo.Get(key); ok {
			if s, ok := v.(string); ok {
				c.opts.Metrics.IncrementOracleCalls(kind, metrics.OutcomeCached)
				return s, nil
			}
		}
	}

	var reply string
	err := retry.WithRetry(ctx, c.opts.Retry, func() error {
		if err := c.opts.Budget.Acquire(ctx, kind); err != nil {
			c.opts.Metrics.IncrementOracleCalls(kind, metrics.OutcomeRejected)
			return retry.Permanent(err)
		}

		callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()

		out, err := c.completer.Complete(callCtx, prompt, maxTokens)
		if err != nil {
			c.opts.Metrics.IncrementOracleCalls(kind, metrics.OutcomeError)
			return err
		}
		c.opts.Metrics.IncrementOracleCalls(kind, metrics.OutcomeOK)
		reply = out
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%s request: %w", kind, err)
	}

	if c.opts.Memo != nil {
		c.opts.Memo.Set(key, reply, memoTTL)
	}
	return reply, nil
}

func buildScorePrompt(req ScoreRequest) string {
	return fmt.Sprintf(`请对以下新闻的重要性进行评分（1-10分）。

评分标准：
- 信息价值（3分）：是否包含新的、有用的信息
- 时效性（2分）：是否为近期发生的事件
- 影响力（3分）：对行业或公众的影响程度
- 可读性（2分）：内容是否清晰易懂

标题：%s
内容：%s

只返回JSON，不要其他文字：
{"score": 分数, "reason": "评分理由"}`, req.Title, req.Excerpt)
}

func buildSummaryPrompt(req SummaryRequest) string {
	return fmt.Sprintf(`用1-2句话概括以下新闻，不超过100字。
要求：突出核心信息，点明涉及的技术或公司名称，不要添加评论。

标题：%s
内容：%s

直接输出摘要：`, req.Title, req.Excerpt)
}

// cleanSummary strips label prefixes and wrapping quotes models like to add.
func cleanSummary(reply string) string {
	s := strings.TrimSpace(reply)
	for _, prefix := range []string{"摘要：", "摘要:", "Summary:"} {
		s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
	}
	s = strings.Trim(s, "\"“”")
	return strings.TrimSpace(s)
}
