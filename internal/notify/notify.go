// Package notify renders a digest and delivers it to chat webhooks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/dailybrief/internal/metrics"
	"github.com/deusflow/dailybrief/internal/news"
	"github.com/deusflow/dailybrief/internal/retry"
)

// Notifier delivers one digest. Implementations render empty digests too.
type Notifier interface {
	Name() string
	Send(ctx context.Context, digest news.Digest) error
}

var weekdays = [...]string{"星期日", "星期一", "星期二", "星期三", "星期四", "星期五", "星期六"}

func weekdayName(t time.Time) string {
	return weekdays[t.Weekday()]
}

func headline(t time.Time) string {
	return fmt.Sprintf("📰 每日科技资讯日报 | %s %s", t.Format("2006-01-02"), weekdayName(t))
}

func footer(total int, t time.Time) string {
	return fmt.Sprintf("⚡ 今日处理：%d 篇 | 📅 %s", total, t.Format("2006-01-02 15:04"))
}

func sectionHeading(s news.Section) string {
	return fmt.Sprintf("%s（Top %d）", s.Category.DisplayName(), len(s.Items))
}

const emptyDigestText = "今日暂无资讯"

// Multi sends to every notifier with retries and fails only when all of them fail.
type Multi struct {
	notifiers []Notifier
	retry     retry.RetryConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewMulti(notifiers []Notifier, retryCfg retry.RetryConfig, m *metrics.Metrics, logger *slog.Logger) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	return &Multi{notifiers: notifiers, retry: retryCfg, metrics: m, logger: logger}
}

func (m *Multi) Name() string { return "multi" }

func (m *Multi) Send(ctx context.Context, digest news.Digest) error {
	if len(m.notifiers) == 0 {
		return errors.New("no notifiers configured")
	}

	var errs []error
	for _, n := range m.notifiers {
		err := retry.WithRetry(ctx, m.retry, func() error {
			return n.Send(ctx, digest)
		})
		if err != nil {
			m.metrics.IncrementNotifications(n.Name(), metrics.OutcomeError)
			m.logger.Error("notification failed", "notifier", n.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		m.metrics.IncrementNotifications(n.Name(), metrics.OutcomeOK)
		m.logger.Info("notification sent", "notifier", n.Name(), "items", digest.Total())
	}

	if len(errs) == len(m.notifiers) {
		return errors.Join(errs...)
	}
	return nil
}
