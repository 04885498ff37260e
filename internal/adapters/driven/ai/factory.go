package ai

import (
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Embedding providers
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

const (
	defaultOpenAIModel   = "text-embedding-3-small"
	defaultOllamaModel   = "all-minilm"
	defaultOllamaBaseURL = "http://localhost:11434/v1"
)

// EmbeddingSettings selects and configures the embedding provider.
type EmbeddingSettings struct {
	Provider   string
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

// NewEmbeddingService creates the embedding service for the configured provider.
func NewEmbeddingService(settings EmbeddingSettings) (driven.EmbeddingService, error) {
	switch settings.Provider {
	case ProviderOpenAI, "":
		if settings.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required: %w", domain.ErrInvalidInput)
		}
		model := settings.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		return NewOpenAIEmbedding(OpenAIEmbeddingConfig{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      model,
			Dimensions: settings.Dimensions,
		})
	case ProviderOllama:
		model := settings.Model
		if model == "" {
			model = defaultOllamaModel
		}
		baseURL := settings.BaseURL
		if baseURL == "" {
			baseURL = defaultOllamaBaseURL
		}
		apiKey := settings.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		return NewOpenAIEmbedding(OpenAIEmbeddingConfig{
			APIKey:     apiKey,
			BaseURL:    baseURL,
			Model:      model,
			Dimensions: settings.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q: %w", settings.Provider, domain.ErrInvalidInput)
	}
}
