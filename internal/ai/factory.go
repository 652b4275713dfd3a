package ai

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/local/lessonplanner/internal/config"
)

// New returns the client for the configured engine.
func New(cfg config.ProvidersConfig, httpClient *http.Client) (Client, error) {
	switch strings.ToLower(cfg.Engine) {
	case "", "gemini":
		return NewGeminiClient(cfg.Gemini, httpClient), nil
	case "openai":
		return NewOpenAIClient(cfg.OpenAI, httpClient), nil
	case "anthropic":
		return NewAnthropicClient(cfg.Anthropic, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown engine %q (want gemini, openai or anthropic)", cfg.Engine)
	}
}
