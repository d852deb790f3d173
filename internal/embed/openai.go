package embed

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"forg/internal/config"
	"forg/internal/organizer"
)

const defaultEmbeddingModel = "text-embedding-3-small"

// openAIDimensions maps known embedding models to their vector sizes.
var openAIDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedder produces text embeddings via the OpenAI embeddings API
// (or any API-compatible endpoint via base_url).
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dims   int
}

// NewOpenAIEmbedder creates an embedder from configuration. The API key is
// read from the environment variable named by cfg.APIKeyEnv (default
// OPENAI_API_KEY); it is never stored in the config file.
func NewOpenAIEmbedder(cfg config.EmbeddingConfig) (*OpenAIEmbedder, error) {
	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "OPENAI_API_KEY"
	}
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("embedding api key environment variable %s is not set", keyEnv)
	}

	model := cfg.Model
	if model == "" {
		model = defaultEmbeddingModel
	}
	dims := cfg.Dimensions
	if dims == 0 {
		dims = openAIDimensions[model]
	}
	if dims == 0 {
		return nil, fmt.Errorf("unknown embedding model %q: set dimensions explicitly", model)
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		dims:   dims,
	}, nil
}

// Embed returns the embedding vector for the given text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}

	raw := resp.Data[0].Embedding
	vec := make([]float64, len(raw))
	for i, v := range raw {
		vec[i] = float64(v)
	}
	return vec, nil
}

// Dimensions returns the size of vectors produced by this embedder.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dims
}

// Compile-time check that OpenAIEmbedder implements organizer.Embedder interface
var _ organizer.Embedder = (*OpenAIEmbedder)(nil)
