package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/deusflow/dailybrief/internal/news"
)

const (
	telegramAPI      = "https://api.telegram.org"
	telegramMaxRunes = 4096
)

// Telegram sends the digest as one or more HTML messages. A failed Send
// remembers the undelivered parts, and the next Send of the same digest
// resumes there, so retries never repeat a part the chat already has.
type Telegram struct {
	apiURL string
	token  string
	chatID string
	client *http.Client
	now    func() time.Time

	mu      sync.Mutex
	pending *pendingParts
}

type pendingParts struct {
	key   string
	parts []string
	next  int
}

func digestKey(d news.Digest) string {
	return d.RunID + "|" + d.GeneratedAt.Format(time.RFC3339Nano)
}

func NewTelegram(token, chatID string, timeout time.Duration) *Telegram {
	return &Telegram{
		apiURL: telegramAPI,
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, digest news.Digest) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := digestKey(digest)
	state := t.pending
	if state == nil || state.key != key {
		state = &pendingParts{
			key:   key,
			parts: splitMessage(RenderHTML(digest, t.now()), telegramMaxRunes),
		}
	}

	for ; state.next < len(state.parts); state.next++ {
		if err := t.sendMessageOnce(ctx, state.parts[state.next]); err != nil {
			t.pending = state
			return fmt.Errorf("part %d/%d: %w", state.next+1, len(state.parts), err)
		}
	}
	t.pending = nil
	return nil
}

func (t *Telegram) sendMessageOnce(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token)

	payload := map[string]interface{}{
		"chat_id":                  t.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error make JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: status %d", resp.StatusCode)
	}
	return nil
}

// RenderHTML formats the digest with Telegram's HTML subset.
func RenderHTML(digest news.Digest, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("<b>" + html.EscapeString(headline(now)) + "</b>\n")

	for _, section := range digest.Sections {
		if len(section.Items) == 0 {
			continue
		}
		sb.WriteString("\n<b>" + html.EscapeString(sectionHeading(section)) + "</b>\n")
		for _, ri := range section.Items {
			fmt.Fprintf(&sb, "%d. <a href=\"%s\">%s</a>\n   ▸ %s\n",
				ri.Rank,
				html.EscapeString(ri.Item.URL),
				html.EscapeString(ri.Item.Title),
				html.EscapeString(ri.Item.DisplaySummary()))
		}
	}

	if digest.Empty() {
		sb.WriteString("\n" + emptyDigestText + "\n")
	}
	sb.WriteString("\n" + html.EscapeString(footer(digest.Total(), now)))
	return sb.String()
}

// splitMessage cuts text at line breaks so each part has at most max runes.
// A single line longer than max is cut by runes.
func splitMessage(text string, max int) []string {
	if utf8.RuneCountInString(text) <= max {
		return []string{text}
	}

	var (
		parts []string
		cur   strings.Builder
		n     int
	)
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, strings.TrimRight(cur.String(), "\n"))
			cur.Reset()
			n = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		ln := utf8.RuneCountInString(line)
		if n+ln > max {
			flush()
		}
		for ln > max {
			r := []rune(line)
			parts = append(parts, string(r[:max]))
			line = string(r[max:])
			ln -= max
		}
		cur.WriteString(line)
		n += ln
	}
	flush()
	return parts
}
