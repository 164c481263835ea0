package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/deusflow/dailybrief/internal/news"
)

type cardText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type cardElement struct {
	Tag  string    `json:"tag"`
	Text *cardText `json:"text,omitempty"`
}

type cardHeader struct {
	Title    cardText `json:"title"`
	Template string   `json:"template"`
}

type cardConfig struct {
	WideScreenMode bool `json:"wide_screen_mode"`
}

// Card is a Feishu interactive message card.
type Card struct {
	Config   cardConfig    `json:"config"`
	Header   cardHeader    `json:"header"`
	Elements []cardElement `json:"elements"`
}

type feishuMessage struct {
	Timestamp string `json:"timestamp,omitempty"`
	Sign      string `json:"sign,omitempty"`
	MsgType   string `json:"msg_type"`
	Card      Card   `json:"card"`
}

type feishuResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Feishu posts the digest as an interactive card to a custom bot webhook.
type Feishu struct {
	webhook string
	secret  string
	client  *http.Client
	now     func() time.Time
}

// NewFeishu creates the notifier. An empty secret disables signing.
func NewFeishu(webhook, secret string, timeout time.Duration) *Feishu {
	return &Feishu{
		webhook: webhook,
		secret:  secret,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

func (f *Feishu) Name() string { return "feishu" }

func (f *Feishu) Send(ctx context.Context, digest news.Digest) error {
	now := f.now()
	msg := feishuMessage{MsgType: "interactive", Card: BuildCard(digest, now)}
	if f.secret != "" {
		ts := now.Unix()
		msg.Timestamp = strconv.FormatInt(ts, 10)
		msg.Sign = signFeishu(ts, f.secret)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal card: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.webhook, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feishu API error: status %d: %s", resp.StatusCode, raw)
	}

	var result feishuResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if result.Code != 0 {
		return fmt.Errorf("feishu API error: code %d: %s", result.Code, result.Msg)
	}
	return nil
}

// signFeishu computes the custom bot signature: HMAC-SHA256 keyed with
// "timestamp\nsecret" over an empty message, base64 encoded.
func signFeishu(timestamp int64, secret string) string {
	key := fmt.Sprintf("%d\n%s", timestamp, secret)
	mac := hmac.New(sha256.New, []byte(key))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func markdown(content string) cardElement {
	return cardElement{Tag: "div", Text: &cardText{Tag: "lark_md", Content: content}}
}

func divider() cardElement {
	return cardElement{Tag: "hr"}
}

// BuildCard lays out the digest: date line, one block per section, footer.
func BuildCard(digest news.Digest, now time.Time) Card {
	elements := []cardElement{markdown(headline(now))}

	for _, section := range digest.Sections {
		if len(section.Items) == 0 {
			continue
		}
		elements = append(elements, divider(), markdown("**"+sectionHeading(section)+"**"))
		for _, ri := range section.Items {
			elements = append(elements, markdown(fmt.Sprintf("%d. **%s**\n   ▸ %s\n   ▸ %s",
				ri.Rank, ri.Item.Title, ri.Item.DisplaySummary(), ri.Item.URL)))
		}
	}

	if digest.Empty() {
		elements = append(elements, divider(), markdown(emptyDigestText))
	}

	elements = append(elements, divider(), markdown(footer(digest.Total(), now)))

	return Card{
		Config: cardConfig{WideScreenMode: true},
		Header: cardHeader{
			Title:    cardText{Tag: "plain_text", Content: "每日科技资讯"},
			Template: "blue",
		},
		Elements: elements,
	}
}
