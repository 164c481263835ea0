package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><head><title>Page title</title></head><body>
<h1>Open model beats benchmark</h1>
<article>
<p>The lab released weights for a new open model on Tuesday.</p>
<p>Subscribe to our newsletter for more stories like this one.</p>
<p>Independent testers reproduced the headline results within a day.</p>
<p>short</p>
<p>Researchers expect a wave of fine-tuned variants in the coming weeks.</p>
</article>
</body></html>`

func TestExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "dailybrief")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	got, err := NewExtractor(time.Second).Extract(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Open model beats benchmark", got.Title)
	assert.Contains(t, got.Content, "released weights")
	assert.Contains(t, got.Content, "fine-tuned variants")
	assert.NotContains(t, got.Content, "newsletter")
	assert.NotContains(t, got.Content, "short")
}

func TestExtractHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewExtractor(time.Second).Extract(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "403")
}

func TestExtractEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>tiny</p></body></html>"))
	}))
	defer srv.Close()

	_, err := NewExtractor(time.Second).Extract(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestCleanContentCapsLength(t *testing.T) {
	para := strings.Repeat("字", 700)
	content := strings.Join([]string{para, para, para, para}, "\n\n")

	out := cleanContent(content)
	assert.Equal(t, 1, strings.Count(out, "\n\n"))
	assert.LessOrEqual(t, len([]rune(out)), maxContentRunes+2)
}

func TestCleanContentTruncatesLongFirstParagraph(t *testing.T) {
	long := strings.Repeat("长", maxContentRunes+500)
	out := cleanContent(long + "\n\n" + strings.Repeat("短", 100))

	assert.Equal(t, maxContentRunes, utf8.RuneCountInString(out))
	assert.True(t, utf8.ValidString(out))
	assert.NotContains(t, out, "短")
}
