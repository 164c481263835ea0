package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/time/rate"
)

// ErrBudgetExhausted is returned once a kind or the total cap is used up.
var ErrBudgetExhausted = errors.New("oracle request budget exhausted")

// Budget caps and paces oracle requests for a single run.
type Budget struct {
	mu       sync.Mutex
	counts   map[string]int
	limits   map[string]int
	total    int
	maxTotal int
	denied   int
	limiter  *rate.Limiter
}

// NewBudget creates a budget. maxTotal 0 means uncapped, perSecond 0 means unpaced.
func NewBudget(maxTotal int, perSecond float64) *Budget {
	b := &Budget{
		counts:   make(map[string]int),
		limits:   make(map[string]int),
		maxTotal: maxTotal,
	}
	if perSecond > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return b
}

// SetLimit caps a single request kind (e.g. "score"). 0 removes the cap.
func (b *Budget) SetLimit(kind string, max int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if max <= 0 {
		delete(b.limits, kind)
		return
	}
	b.limits[kind] = max
}

// Acquire reserves one request of kind and waits for the pacer.
// A nil budget allows everything.
func (b *Budget) Acquire(ctx context.Context, kind string) error {
	if b == nil {
		return nil
	}

	if err := b.reserve(kind); err != nil {
		return err
	}

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			b.release(kind)
			return fmt.Errorf("wait for %s slot: %w", kind, err)
		}
	}
	return nil
}

func (b *Budget) reserve(kind string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if max, ok := b.limits[kind]; ok && b.counts[kind] >= max {
		b.denied++
		return fmt.Errorf("%s limit %d reached: %w", kind, max, ErrBudgetExhausted)
	}
	if b.maxTotal > 0 && b.total >= b.maxTotal {
		b.denied++
		return fmt.Errorf("total limit %d reached: %w", b.maxTotal, ErrBudgetExhausted)
	}

	b.counts[kind]++
	b.total++
	return nil
}

func (b *Budget) release(kind string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts[kind]--
	b.total--
}

// Used returns the number of granted requests of kind.
func (b *Budget) Used(kind string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[kind]
}

func (b *Budget) GetStats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := map[string]interface{}{
		"total_used":  b.total,
		"total_limit": b.maxTotal,
		"denied":      b.denied,
	}
	for kind, n := range b.counts {
		stats[kind+"_used"] = n
	}
	for kind, n := range b.limits {
		stats[kind+"_limit"] = n
	}
	return stats
}

// LogStats writes one line with the usage snapshot.
func (b *Budget) LogStats(logger *slog.Logger) {
	if b == nil || logger == nil {
		return
	}
	stats := b.GetStats()
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		args = append(args, k, stats[k])
	}
	logger.Info("oracle budget usage", args...)
}
