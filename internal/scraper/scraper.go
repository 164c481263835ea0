package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxContentRunes = 1800
	minParagraph    = 20
	userAgent       = "dailybrief/1.0 (+https://github.com/deusflow/dailybrief)"
)

// ArticleContent is full article content
type ArticleContent struct {
	Title   string
	Content string
	URL     string
}

// siteSelectors are tried before the generic ones for known hosts.
var siteSelectors = map[string][]string{
	"36kr.com":             {".article-content p", ".common-width p"},
	"theverge.com":         {".duet--article--article-body-component p", "article p"},
	"technologyreview.com": {".gutenbergContent p", ".contentBody p"},
	"caixin.com":           {"#Main_Content_Val p", ".article p"},
	"ftchinese.com":        {".story-body p", "#story-body-container p"},
	"arxiv.org":            {"blockquote.abstract"},
	"news.ycombinator.com": {".toptext"},
}

var genericSelectors = []string{
	"article p",
	".article p",
	".content p",
	".post-content p",
	".entry-content p",
	"main p",
	"#content p",
	"p",
}

var junkIndicators = []string{
	"cookie", "subscribe", "newsletter", "sign up", "log in", "advertisement",
	"版权所有", "未经授权", "扫码", "关注我们", "点击阅读",
}

// Extractor fetches pages and pulls out their main text.
type Extractor struct {
	client *http.Client
}

func NewExtractor(timeout time.Duration) *Extractor {
	return &Extractor{client: &http.Client{Timeout: timeout}}
}

// Extract gets the full text of the article at url.
func (e *Extractor) Extract(ctx context.Context, url string) (*ArticleContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	content := cleanContent(extractContent(doc, url))
	if content == "" {
		return nil, fmt.Errorf("can't get content")
	}

	return &ArticleContent{
		Title:   extractTitle(doc),
		Content: content,
		URL:     url,
	}, nil
}

func extractContent(doc *goquery.Document, url string) string {
	for host, selectors := range siteSelectors {
		if strings.Contains(url, host) {
			if text := collect(doc, selectors, 1); text != "" {
				return text
			}
			break
		}
	}
	return collect(doc, genericSelectors, 3)
}

// collect returns the paragraphs of the first selector that yields at least
// enough of them.
func collect(doc *goquery.Document, selectors []string, enough int) string {
	var paragraphs []string
	for _, selector := range selectors {
		paragraphs = paragraphs[:0]
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if utf8.RuneCountInString(text) > minParagraph/2 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= enough {
			break
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

func extractTitle(doc *goquery.Document) string {
	for _, selector := range []string{"h1", "title", ".article-title", ".headline"} {
		if title := strings.TrimSpace(doc.Find(selector).First().Text()); title != "" {
			return title
		}
	}
	return ""
}

// cleanContent drops junk lines, collapses whitespace and caps the length
// at whole paragraphs.
func cleanContent(content string) string {
	var kept []string
	for _, para := range strings.Split(content, "\n\n") {
		para = strings.Join(strings.Fields(para), " ")
		if utf8.RuneCountInString(para) < minParagraph/2 {
			continue
		}
		if isJunk(para) {
			continue
		}
		kept = append(kept, para)
	}

	var sb strings.Builder
	total := 0
	for _, para := range kept {
		n := utf8.RuneCountInString(para)
		if total == 0 && n > maxContentRunes {
			para = string([]rune(para)[:maxContentRunes])
			n = maxContentRunes
		}
		if total > 0 && total+n > maxContentRunes {
			break
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(para)
		total += n + 2
	}
	return strings.TrimSpace(sb.String())
}

func isJunk(line string) bool {
	lower := strings.ToLower(line)
	for _, indicator := range junkIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}
