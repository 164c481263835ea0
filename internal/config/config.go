// Package config builds the single Config value passed to every component.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/deusflow/dailybrief/internal/news"
)

const (
	NotifierFeishu   = "feishu"
	NotifierTelegram = "telegram"
	NotifierConsole  = "console"

	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
)

type Config struct {
	// Delivery
	Notifiers      []string
	FeishuWebhook  string
	FeishuSecret   string
	TelegramToken  string
	TelegramChatID string

	// Oracle
	OracleProvider      string
	AnthropicAPIKey     string
	AnthropicBaseURL    string
	AnthropicModel      string
	GeminiAPIKey        string
	GeminiModel         string
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	OpenAIModel         string
	OracleTimeout       time.Duration
	OracleConcurrency   int
	OracleRetryAttempts int
	MaxOracleRequests   int     // per run, 0 = unlimited
	MaxScoreRequests    int     // per run, 0 = only the total cap applies
	MaxSummaryRequests  int     // per run, 0 = only the total cap applies
	OracleRPS           float64 // 0 = unpaced

	// Curation
	NewsPerCategory     int
	TopK                map[news.Category]int
	ScoreExcerptRunes   int
	SummaryExcerptRunes int

	// Sources
	FeedsConfigPath string
	FetchLimit      int
	HNEnabled       bool
	EnrichContent   bool
	RequestTimeout  time.Duration

	// App settings
	LogLevel       string
	Debug          bool
	RetryAttempts  int
	RetryDelay     time.Duration
	HTTPMonitoring bool
	MonitoringPort string
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		Notifiers:           []string{NotifierFeishu},
		OracleProvider:      ProviderAnthropic,
		AnthropicBaseURL:    "https://api.anthropic.com",
		AnthropicModel:      "claude-sonnet-4-20250514",
		GeminiModel:         "gemini-1.5-flash",
		OpenAIModel:         "gpt-4o-mini",
		OracleTimeout:       30 * time.Second,
		OracleConcurrency:   1,
		OracleRetryAttempts: 1,
		NewsPerCategory:     10,
		TopK:                map[news.Category]int{},
		ScoreExcerptRunes:   500,
		SummaryExcerptRunes: 1000,
		FeedsConfigPath:     "configs/feeds.yaml",
		FetchLimit:          50,
		HNEnabled:           true,
		EnrichContent:       true,
		RequestTimeout:      10 * time.Second,
		LogLevel:            "info",
		RetryAttempts:       3,
		RetryDelay:          2 * time.Second,
		MonitoringPort:      "8080",
	}
}

// Load reads the environment on top of Default and validates the result.
func Load() (*Config, error) {
	cfg := FromEnv()
	return cfg, cfg.Validate()
}

// FromEnv reads the environment on top of Default without validating, so
// callers can adjust the result (e.g. UseConsoleOnly) first.
func FromEnv() *Config {
	cfg := Default()

	if v := os.Getenv("NOTIFIER"); v != "" {
		cfg.Notifiers = splitList(v)
	}
	cfg.FeishuWebhook = os.Getenv("FEISHU_WEBHOOK")
	cfg.FeishuSecret = os.Getenv("FEISHU_SECRET")
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")

	cfg.OracleProvider = strings.ToLower(getEnvOrDefault("ORACLE_PROVIDER", cfg.OracleProvider))
	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.AnthropicBaseURL = getEnvOrDefault("ANTHROPIC_BASE_URL", cfg.AnthropicBaseURL)
	cfg.AnthropicModel = getEnvOrDefault("ANTHROPIC_MODEL", cfg.AnthropicModel)
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.GeminiModel = getEnvOrDefault("GEMINI_MODEL", cfg.GeminiModel)
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	cfg.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.OracleTimeout = getEnvDurationOrDefault("ORACLE_TIMEOUT", cfg.OracleTimeout)
	cfg.OracleConcurrency = getEnvPositiveIntOrDefault("ORACLE_CONCURRENCY", cfg.OracleConcurrency)
	cfg.OracleRetryAttempts = getEnvPositiveIntOrDefault("ORACLE_RETRY_ATTEMPTS", cfg.OracleRetryAttempts)
	cfg.MaxOracleRequests = getEnvIntOrDefault("MAX_ORACLE_REQUESTS", cfg.MaxOracleRequests)
	cfg.MaxScoreRequests = getEnvIntOrDefault("MAX_SCORE_REQUESTS", cfg.MaxScoreRequests)
	cfg.MaxSummaryRequests = getEnvIntOrDefault("MAX_SUMMARY_REQUESTS", cfg.MaxSummaryRequests)
	if v := os.Getenv("ORACLE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.OracleRPS = f
		}
	}

	cfg.NewsPerCategory = getEnvIntOrDefault("NEWS_PER_CATEGORY", cfg.NewsPerCategory)
	for _, c := range news.Categories() {
		key := "TOP_K_" + strings.ToUpper(string(c))
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				cfg.TopK[c] = n
			}
		}
	}
	cfg.ScoreExcerptRunes = getEnvPositiveIntOrDefault("SCORE_EXCERPT_RUNES", cfg.ScoreExcerptRunes)
	cfg.SummaryExcerptRunes = getEnvPositiveIntOrDefault("SUMMARY_EXCERPT_RUNES", cfg.SummaryExcerptRunes)

	cfg.FeedsConfigPath = getEnvOrDefault("FEEDS_CONFIG_PATH", cfg.FeedsConfigPath)
	cfg.FetchLimit = getEnvPositiveIntOrDefault("FETCH_LIMIT", cfg.FetchLimit)
	cfg.HNEnabled = getEnvBoolOrDefault("HN_ENABLED", cfg.HNEnabled)
	cfg.EnrichContent = getEnvBoolOrDefault("ENRICH_CONTENT", cfg.EnrichContent)
	cfg.RequestTimeout = getEnvDurationOrDefault("REQUEST_TIMEOUT", cfg.RequestTimeout)

	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	cfg.RetryAttempts = getEnvPositiveIntOrDefault("RETRY_ATTEMPTS", cfg.RetryAttempts)
	cfg.RetryDelay = getEnvDurationOrDefault("RETRY_DELAY", cfg.RetryDelay)
	cfg.HTTPMonitoring = getEnvBoolOrDefault("ENABLE_HTTP_MONITORING", cfg.HTTPMonitoring)
	cfg.MonitoringPort = getEnvOrDefault("MONITORING_PORT", cfg.MonitoringPort)

	return cfg
}

// TopKFor returns the per-category override or NewsPerCategory.
func (c *Config) TopKFor(cat news.Category) int {
	if k, ok := c.TopK[cat]; ok {
		return k
	}
	return c.NewsPerCategory
}

// UseConsoleOnly switches delivery to stdout, e.g. for --dry-run.
func (c *Config) UseConsoleOnly() {
	c.Notifiers = []string{NotifierConsole}
}

func (c *Config) Validate() error {
	if c.NewsPerCategory <= 0 {
		return fmt.Errorf("NEWS_PER_CATEGORY must be positive, got %d", c.NewsPerCategory)
	}
	for cat, k := range c.TopK {
		if k <= 0 {
			return fmt.Errorf("TOP_K_%s must be positive, got %d", strings.ToUpper(string(cat)), k)
		}
	}
	if c.MaxOracleRequests < 0 {
		return fmt.Errorf("MAX_ORACLE_REQUESTS must not be negative")
	}
	if c.MaxScoreRequests < 0 || c.MaxSummaryRequests < 0 {
		return fmt.Errorf("MAX_SCORE_REQUESTS and MAX_SUMMARY_REQUESTS must not be negative")
	}

	switch c.OracleProvider {
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	default:
		return fmt.Errorf("ORACLE_PROVIDER must be one of anthropic, gemini, openai")
	}

	if len(c.Notifiers) == 0 {
		return fmt.Errorf("NOTIFIER must name at least one notifier")
	}
	for _, n := range c.Notifiers {
		switch n {
		case NotifierFeishu:
			if c.FeishuWebhook == "" {
				return fmt.Errorf("FEISHU_WEBHOOK is required")
			}
		case NotifierTelegram:
			if c.TelegramToken == "" {
				return fmt.Errorf("TELEGRAM_TOKEN is required")
			}
			if c.TelegramChatID == "" {
				return fmt.Errorf("TELEGRAM_CHAT_ID is required")
			}
		case NotifierConsole:
		default:
			return fmt.Errorf("unknown notifier %q", n)
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvPositiveIntOrDefault(key string, defaultValue int) int {
	if v := getEnvIntOrDefault(key, defaultValue); v > 0 {
		return v
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault accepts Go durations ("45s") or plain seconds ("45").
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
