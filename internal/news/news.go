package news

import (
	"fmt"
	"strings"
	"time"
)

// Category partitions items by topic. Pipeline stages run per category.
type Category string

const (
	CategoryAI      Category = "ai"
	CategoryFinance Category = "finance"
	CategoryTech    Category = "tech"
)

var categoryOrder = []Category{CategoryAI, CategoryFinance, CategoryTech}

var displayNames = map[Category]string{
	CategoryAI:      "🤖 AI 资讯",
	CategoryFinance: "💰 财经资讯",
	CategoryTech:    "💻 科技资讯",
}

// Categories returns the fixed enumeration order used for processing and rendering.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// ParseCategory accepts the lowercase names used in config files and env keys.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown news category %q", s)
	}
	return c, nil
}

func (c Category) Valid() bool {
	_, ok := displayNames[c]
	return ok
}

// DisplayName is the section heading shown in notifications.
func (c Category) DisplayName() string {
	if name, ok := displayNames[c]; ok {
		return name
	}
	return string(c)
}

func (c Category) String() string { return string(c) }

// Item is one fetched story. URL is its identity for deduplication.
// Score and Summary are only meaningful after the pipeline annotates the item.
type Item struct {
	Title       string
	URL         string
	Content     string
	Category    Category
	Source      string
	PublishedAt time.Time // zero when the source did not provide one
	Author      string

	Score   float64
	Summary string
}

// WithScore returns a copy of the item carrying score.
func (it Item) WithScore(score float64) Item {
	it.Score = score
	return it
}

// WithSummary returns a copy of the item carrying summary.
func (it Item) WithSummary(summary string) Item {
	it.Summary = summary
	return it
}

// HasPublishedAt reports whether the source supplied a timestamp.
func (it Item) HasPublishedAt() bool {
	return !it.PublishedAt.IsZero()
}

// DisplaySummary never returns an empty string for a titled item.
func (it Item) DisplaySummary() string {
	if s := strings.TrimSpace(it.Summary); s != "" {
		return s
	}
	return it.Title
}

// RankedItem is the read-only record handed to renderers.
type RankedItem struct {
	Item     Item
	Rank     int
	Category Category
}

// Section holds one category's ranked items, rank 1 first.
type Section struct {
	Category Category
	Items    []RankedItem
}

// Digest is the result of one curation run, sections in category order.
type Digest struct {
	RunID       string
	GeneratedAt time.Time
	Sections    []Section
}

// Total counts ranked items across all sections.
func (d Digest) Total() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Items)
	}
	return n
}

func (d Digest) Empty() bool {
	return d.Total() == 0
}

func (d Digest) Section(c Category) (Section, bool) {
	for _, s := range d.Sections {
		if s.Category == c {
			return s, true
		}
	}
	return Section{}, false
}

// Rank turns an already sorted list into contiguous 1-based ranked records.
func Rank(c Category, items []Item) []RankedItem {
	out := make([]RankedItem, len(items))
	for i, it := range items {
		out[i] = RankedItem{Item: it, Rank: i + 1, Category: c}
	}
	return out
}
