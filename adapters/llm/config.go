package llm

import (
	"fmt"
	"time"

	"ideaforge/ports"
)

// Provider names selectable by configuration. Business logic never
// branches on these; they exist only to pick a binding.
const (
	ProviderDoubao = "doubao"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds one provider binding's settings.
type Config struct {
	Provider    string        // "doubao", "openai" or "gemini"
	APIKey      string        // provider API key
	BaseURL     string        // optional endpoint override
	Model       string        // model name
	Temperature float64       // 0.0-1.0, lower = more deterministic
	MaxTokens   int           // max tokens in response
	Timeout     time.Duration // per-call timeout
}

func (c Config) withDefaults() Config {
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1024
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	return c
}

// NewModelPort creates the binding for one provider. The three bindings
// present the identical ModelPort contract; transport differences stay
// inside each file.
func NewModelPort(cfg Config) (ports.ModelPort, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing API key for provider %q", cfg.Provider)
	}
	cfg = cfg.withDefaults()

	switch cfg.Provider {
	case ProviderDoubao:
		return newDoubaoPort(cfg), nil
	case ProviderOpenAI:
		return newOpenAIPort(cfg), nil
	case ProviderGemini:
		return newGeminiPort(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
