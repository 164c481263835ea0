package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/dailybrief/internal/logger"
	"github.com/deusflow/dailybrief/internal/news"
	"github.com/deusflow/dailybrief/internal/scraper"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Test</title>
<item>
  <title>First &amp; best</title>
  <link>https://example.com/1</link>
  <description>&lt;p&gt;Hello &lt;b&gt;world&lt;/b&gt;&lt;/p&gt;</description>
  <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
  <author>ann@example.com (Ann)</author>
</item>
<item>
  <title>Second</title>
  <link>https://example.com/2</link>
</item>
<item>
  <title></title>
  <link>https://example.com/untitled</link>
</item>
<item>
  <title>Third</title>
  <link>https://example.com/3</link>
</item>
</channel></rss>`

func TestRSSFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssBody))
	}))
	defer srv.Close()

	f := NewRSSFetcher(map[news.Category][]Source{
		news.CategoryTech: {
			{Name: "broken", URL: srv.URL + "/broken"},
			{Name: "Test Feed", URL: srv.URL + "/feed"},
		},
	}, time.Second, logger.Discard())

	items, err := f.Fetch(context.Background(), news.CategoryTech, 3)
	require.NoError(t, err)

	// limit applies to raw entries, the untitled one is then skipped
	require.Len(t, items, 2)
	first := items[0]
	assert.Equal(t, "First & best", first.Title)
	assert.Equal(t, "https://example.com/1", first.URL)
	assert.Equal(t, "Hello world", first.Content)
	assert.Equal(t, news.CategoryTech, first.Category)
	assert.Equal(t, "Test Feed", first.Source)
	assert.True(t, first.HasPublishedAt())
	assert.Equal(t, "Second", items[1].Title)
	assert.False(t, items[1].HasPublishedAt())

	empty, err := f.Fetch(context.Background(), news.CategoryFinance, 3)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

type fakeExtractor struct{ calls int }

func (f *fakeExtractor) Extract(ctx context.Context, url string) (*scraper.ArticleContent, error) {
	f.calls++
	if strings.Contains(url, "fail") {
		return nil, errors.New("blocked")
	}
	return &scraper.ArticleContent{URL: url, Content: "scraped body"}, nil
}

func newHNServer(t *testing.T) *httptest.Server {
	t.Helper()
	stories := map[string]string{
		"1": `{"id":1,"type":"story","title":"New LLM tops leaderboard","url":"https://ai.example/1","time":1700000000,"by":"pg"}`,
		"2": `{"id":2,"type":"story","title":"Show HN: my bike shed","url":"https://bike.example"}`,
		"3": `{"id":3,"type":"story","title":"Ask HN: Is AI overhyped?","text":"<p>Curious what &quot;you&quot; think</p>"}`,
		"4": `{"id":4,"type":"story","title":"Deep Learning on a budget","url":"https://fail.example/4"}`,
		"6": `{"id":6,"type":"story","title":"He said nothing","url":"https://said.example"}`,
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/topstories.json" {
			_, _ = w.Write([]byte(`[1,2,3,4,5,6,7]`))
			return
		}
		var id string
		if _, err := fmt.Sscanf(r.URL.Path, "/item/%s", &id); err == nil {
			id = strings.TrimSuffix(id, ".json")
			if body, ok := stories[id]; ok {
				_, _ = w.Write([]byte(body))
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	}))
}

func TestHackerNewsFetcher(t *testing.T) {
	srv := newHNServer(t)
	defer srv.Close()

	ext := &fakeExtractor{}
	f := NewHackerNewsFetcher(srv.URL, time.Second, ext, logger.Discard())

	items, err := f.Fetch(context.Background(), news.CategoryAI, 6)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "New LLM tops leaderboard", items[0].Title)
	assert.Equal(t, "scraped body", items[0].Content)
	assert.Equal(t, "Hacker News", items[0].Source)
	assert.Equal(t, "pg", items[0].Author)
	assert.Equal(t, time.Unix(1700000000, 0), items[0].PublishedAt)

	assert.Equal(t, "https://news.ycombinator.com/item?id=3", items[1].URL)
	assert.Equal(t, `Curious what "you" think`, items[1].Content)

	assert.Equal(t, "Deep Learning on a budget", items[2].Title)
	assert.Empty(t, items[2].Content)

	// only stories with a url and no text are enriched
	assert.Equal(t, 2, ext.calls)
}

func TestHackerNewsOtherCategories(t *testing.T) {
	f := NewHackerNewsFetcher("http://127.0.0.1:1", time.Second, nil, logger.Discard())
	items, err := f.Fetch(context.Background(), news.CategoryFinance, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestHackerNewsTopStoriesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHackerNewsFetcher(srv.URL, time.Second, nil, logger.Discard()).Fetch(context.Background(), news.CategoryAI, 5)
	assert.Error(t, err)
}

func TestKeywordMatcher(t *testing.T) {
	assert.True(t, aiMatcher.Match("OpenAI's GPT-5 is out"))
	assert.True(t, aiMatcher.Match("An AI chip"))
	assert.True(t, aiMatcher.Match("谷歌发布人工智能芯片"))
	assert.True(t, aiMatcher.Match("Advances in Machine Learning"))
	assert.False(t, aiMatcher.Match("He said it rained"))
	assert.False(t, aiMatcher.Match("Maintenance window"))

	// short tokens are compiled up front, phrases stay plain substrings
	assert.Len(t, aiMatcher.words, 3)
	assert.Len(t, aiMatcher.phrases, len(aiKeywords)-3)

	m := newKeywordMatcher([]string{" ", "", "Rust"})
	assert.Empty(t, m.words)
	assert.Equal(t, []string{"rust"}, m.phrases)
}

type stubFetcher struct {
	name  string
	items map[news.Category][]news.Item
	err   error
}

func (s stubFetcher) Name() string { return s.name }

func (s stubFetcher) Fetch(ctx context.Context, c news.Category, limit int) ([]news.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.items[c], nil
}

func TestCollect(t *testing.T) {
	a := stubFetcher{name: "a", items: map[news.Category][]news.Item{
		news.CategoryAI: {{Title: "a1", Category: news.CategoryAI}, {Title: "a2", Category: news.CategoryAI}},
	}}
	b := stubFetcher{name: "b", items: map[news.Category][]news.Item{
		news.CategoryAI:   {{Title: "b1", Category: news.CategoryAI}},
		news.CategoryTech: {{Title: "b2", Category: news.CategoryTech}},
	}}
	broken := stubFetcher{name: "broken", err: errors.New("dns")}

	batches := Collect(context.Background(), []Fetcher{a, broken, b}, news.Categories(), 10, nil, logger.Discard())

	require.Len(t, batches, 3)
	var got []string
	for _, it := range batches[news.CategoryAI] {
		got = append(got, it.Title)
	}
	assert.Equal(t, []string{"a1", "a2", "b1"}, got)
	assert.Empty(t, batches[news.CategoryFinance])
	assert.Len(t, batches[news.CategoryTech], 1)
}

func TestLoadFeeds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
feeds:
  ai:
    - name: arXiv CS.AI
      url: http://export.arxiv.org/rss/cs.AI
  Tech:
    - url: https://36kr.com/feed
`), 0o644))

	feeds, err := LoadFeeds(path)
	require.NoError(t, err)
	assert.Equal(t, "arXiv CS.AI", feeds[news.CategoryAI][0].Name)
	assert.Equal(t, "https://36kr.com/feed", feeds[news.CategoryTech][0].Name)

	defaults, err := LoadFeeds(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Len(t, defaults[news.CategoryFinance], 2)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("feeds:\n  sports:\n    - url: x\n"), 0o644))
	_, err = LoadFeeds(bad)
	assert.Error(t, err)
}

func TestSanitizerText(t *testing.T) {
	s := NewSanitizer()
	assert.Equal(t, "Tom & Jerry say hi", s.Text("<div>Tom &amp; Jerry\n\n <i>say</i> hi</div><script>x()</script>"))
	assert.Equal(t, "", s.Text(""))
}
