package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/deusflow/dailybrief/internal/news"
	"github.com/deusflow/dailybrief/internal/scraper"
)

const (
	HackerNewsBaseURL = "https://hacker-news.firebaseio.com/v0"
	hnSourceName      = "Hacker News"
	hnItemURL         = "https://news.ycombinator.com/item?id=%d"
)

var aiKeywords = []string{
	"AI", "artificial intelligence", "machine learning",
	"deep learning", "neural network", "GPT", "LLM",
	"人工智能", "机器学习", "深度学习",
}

var aiMatcher = newKeywordMatcher(aiKeywords)

// ContentExtractor fills in body text for stories that carry none.
type ContentExtractor interface {
	Extract(ctx context.Context, url string) (*scraper.ArticleContent, error)
}

type hnStory struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
	By    string `json:"by"`
	Time  int64  `json:"time"`
}

// HackerNewsFetcher serves the AI category from the HN top stories list.
type HackerNewsFetcher struct {
	baseURL   string
	client    *http.Client
	extractor ContentExtractor // nil disables enrichment
	sanitizer *Sanitizer
	logger    *slog.Logger
}

func NewHackerNewsFetcher(baseURL string, timeout time.Duration, extractor ContentExtractor, logger *slog.Logger) *HackerNewsFetcher {
	if baseURL == "" {
		baseURL = HackerNewsBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HackerNewsFetcher{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
		extractor: extractor,
		sanitizer: NewSanitizer(),
		logger:    logger,
	}
}

func (h *HackerNewsFetcher) Name() string { return "hackernews" }

// Fetch looks at the first limit top stories and keeps the AI-related ones.
// Other categories get an empty result.
func (h *HackerNewsFetcher) Fetch(ctx context.Context, category news.Category, limit int) ([]news.Item, error) {
	if category != news.CategoryAI {
		return []news.Item{}, nil
	}

	var ids []int64
	if err := h.getJSON(ctx, "/topstories.json", &ids); err != nil {
		return nil, fmt.Errorf("top stories: %w", err)
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	items := []news.Item{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return items, err
		}

		var story hnStory
		if err := h.getJSON(ctx, fmt.Sprintf("/item/%d.json", id), &story); err != nil {
			h.logger.Warn("failed to fetch story", "id", id, "error", err)
			continue
		}
		if story.Title == "" || !aiMatcher.Match(story.Title) {
			continue
		}
		items = append(items, h.toItem(ctx, id, story))
	}

	h.logger.Info("fetched Hacker News", "checked", len(ids), "ai_related", len(items))
	return items, nil
}

func (h *HackerNewsFetcher) toItem(ctx context.Context, id int64, story hnStory) news.Item {
	it := news.Item{
		Title:    story.Title,
		URL:      story.URL,
		Content:  h.sanitizer.Text(story.Text),
		Category: news.CategoryAI,
		Source:   hnSourceName,
		Author:   story.By,
	}
	if it.URL == "" {
		it.URL = fmt.Sprintf(hnItemURL, id)
	}
	if story.Time > 0 {
		it.PublishedAt = time.Unix(story.Time, 0)
	}

	if it.Content == "" && h.extractor != nil && story.URL != "" {
		article, err := h.extractor.Extract(ctx, story.URL)
		if err != nil {
			h.logger.Debug("content enrichment failed", "url", story.URL, "error", err)
		} else {
			it.Content = article.Content
		}
	}
	return it
}

func (h *HackerNewsFetcher) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// keywordMatcher matches phrases as substrings and short tokens as whole
// words, so "AI" does not hit "said". Word patterns are compiled once.
type keywordMatcher struct {
	phrases []string
	words   []*regexp.Regexp
}

func newKeywordMatcher(keywords []string) keywordMatcher {
	var m keywordMatcher
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		switch {
		case k == "":
		case len(k) <= 3 && !strings.Contains(k, " "):
			m.words = append(m.words, regexp.MustCompile(`\b`+regexp.QuoteMeta(k)+`\b`))
		default:
			m.phrases = append(m.phrases, k)
		}
	}
	return m
}

func (m keywordMatcher) Match(text string) bool {
	text = strings.ToLower(text)
	for _, re := range m.words {
		if re.MatchString(text) {
			return true
		}
	}
	for _, p := range m.phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
