package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abhisek/studycast/internal/store"
)

// NewProvider creates a Provider from configuration.
// It returns the provider wrapped with retry and logging middleware.
// A nil eventRepo disables event recording.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		return NewMockProvider(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	// caller → retry → logging → base
	logged := WithLogging(base, cfg.Provider, eventRepo)
	return WithRetry(logged, cfg.Retry), nil
}

// NewSpeech returns the OpenAI speech synthesizer, or the offline one when
// no key is configured.
func NewSpeech(cfg SpeechConfig) Speech {
	if cfg.APIKey == "" {
		slog.Warn("no speech API key configured, using offline speech synthesizer")
		return NewOfflineSpeech()
	}
	return NewOpenAISpeech(cfg)
}

// NewEmbedder returns the OpenAI embedder, or the local hashing embedder
// when no key is configured.
func NewEmbedder(cfg EmbeddingConfig) Embedder {
	if cfg.APIKey == "" {
		slog.Warn("no embedding API key configured, using local hashing embedder")
		return NewHashEmbedder(HashEmbedderDim)
	}
	return NewOpenAIEmbedder(cfg)
}
