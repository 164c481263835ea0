package fetch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/deusflow/dailybrief/internal/news"
)

// Source is one named RSS feed.
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// FeedsConfig is the YAML layout:
//
//	feeds:
//	  ai:
//	    - name: arXiv CS.AI
//	      url: http://export.arxiv.org/rss/cs.AI
type FeedsConfig struct {
	Feeds map[string][]Source `yaml:"feeds"`
}

// DefaultSources is used when no feeds file exists.
func DefaultSources() map[news.Category][]Source {
	return map[news.Category][]Source{
		news.CategoryAI: {
			{Name: "arXiv CS.AI", URL: "http://export.arxiv.org/rss/cs.AI"},
			{Name: "MIT Tech Review AI", URL: "https://www.technologyreview.com/feed/?post_type=tops"},
		},
		news.CategoryFinance: {
			{Name: "财新网", URL: "https://www.caixin.com/rss/finance.xml"},
			{Name: "FT 中文", URL: "https://www.ftchinese.com/rss/feed"},
		},
		news.CategoryTech: {
			{Name: "36氪", URL: "https://36kr.com/feed"},
			{Name: "The Verge", URL: "https://www.theverge.com/rss/index.xml"},
		},
	}
}

// LoadFeeds reads the per-category feed list from a YAML file. A missing
// file yields DefaultSources; unknown categories and sources without a URL
// are errors.
func LoadFeeds(path string) (map[news.Category][]Source, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultSources(), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg FeedsConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	out := make(map[news.Category][]Source, len(cfg.Feeds))
	for name, sources := range cfg.Feeds {
		cat, err := news.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for i, s := range sources {
			if s.URL == "" {
				return nil, fmt.Errorf("%s: %s source %d has no url", path, cat, i)
			}
			if s.Name == "" {
				sources[i].Name = s.URL
			}
		}
		out[cat] = append(out[cat], sources...)
	}
	return out, nil
}
