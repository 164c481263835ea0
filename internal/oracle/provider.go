package oracle

import (
	"context"
	"fmt"

	"github.com/deusflow/dailybrief/internal/config"
)

// NewCompleter picks the backend named by cfg.OracleProvider. Callers should
// close the result when it implements io.Closer.
func NewCompleter(ctx context.Context, cfg *config.Config) (Completer, error) {
	switch cfg.OracleProvider {
	case config.ProviderAnthropic:
		return NewAnthropicCompleter(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL, cfg.AnthropicModel), nil
	case config.ProviderGemini:
		return NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case config.ProviderOpenAI:
		return NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.OracleProvider)
	}
}
