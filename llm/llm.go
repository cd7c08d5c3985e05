package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/VijayarajParamasivam/PaperMind/config"
)

// Client is a generation endpoint. The workflow composes a single flat
// instruction string, so the contract stays prompt-in, text-out.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Options struct {
	Provider string
	Model    string

	APIKey        string
	OllamaHost    string
	OpenAIBaseURL string
}

// New builds a generation client for the configured provider. The credential
// is the key submitted by the user for the current session; a missing
// credential fails fast, while an invalid-but-well-formed key only surfaces
// on the first real call.
func New(ctx context.Context, cfg config.Config, credential string) (Client, error) {
	opts := Options{
		Provider:      cfg.LLM.Provider,
		Model:         cfg.LLM.Model,
		APIKey:        strings.TrimSpace(credential),
		OllamaHost:    cfg.OllamaHost,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
	}

	switch opts.Provider {
	case config.ProviderOllama:
		return NewOllamaClient(opts), nil
	case config.ProviderOpenAI:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("openai provider selected but no api key supplied")
		}
		return NewOpenAIClient(opts), nil
	case config.ProviderGemini:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("gemini provider selected but no api key supplied")
		}
		return NewGeminiClient(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", opts.Provider)
	}
}
