package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/deusflow/dailybrief/internal/news"
)

// Console prints the digest as plain text, used for dry runs.
type Console struct {
	w   io.Writer
	now func() time.Time
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w, now: time.Now}
}

func (c *Console) Name() string { return "console" }

func (c *Console) Send(ctx context.Context, digest news.Digest) error {
	_, err := io.WriteString(c.w, RenderText(digest, c.now()))
	return err
}

func RenderText(digest news.Digest, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(headline(now) + "\n")

	for _, section := range digest.Sections {
		if len(section.Items) == 0 {
			continue
		}
		sb.WriteString("\n" + strings.Repeat("-", 40) + "\n")
		sb.WriteString(sectionHeading(section) + "\n")
		for _, ri := range section.Items {
			fmt.Fprintf(&sb, "%d. %s [%.1f]\n   ▸ %s\n   ▸ %s\n",
				ri.Rank, ri.Item.Title, ri.Item.Score, ri.Item.DisplaySummary(), ri.Item.URL)
		}
	}

	if digest.Empty() {
		sb.WriteString("\n" + emptyDigestText + "\n")
	}
	sb.WriteString("\n" + footer(digest.Total(), now) + "\n")
	return sb.String()
}
