package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/tdscan/internal/model"
)

// NewProvider creates a provider from configuration. An empty provider name
// disables narratives and returns nil, nil.
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)
	case "ollama":
		return NewOllamaProvider(config)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config. The API key falls
// back to OPENAI_API_KEY and proxies to HTTP_PROXY/HTTPS_PROXY.
func ConfigFromModel(cfg model.LLMConfig) Config {
	apiKey := cfg.APIKey
	if apiKey == "" && strings.EqualFold(cfg.Provider, "openai") {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	return Config{
		Provider:       cfg.Provider,
		Model:          cfg.Model,
		APIKey:         apiKey,
		BaseURL:        cfg.BaseURL,
		Timeout:        cfg.Timeout,
		StrictSections: cfg.StrictSections,
		MaxTokens:      cfg.MaxTokens,
		HTTPProxy:      os.Getenv("HTTP_PROXY"),
		HTTPSProxy:     os.Getenv("HTTPS_PROXY"),
	}
}
