package embed

import (
	"fmt"

	"forg/internal/config"
	"forg/internal/organizer"
)

// NewEmbedderFromConfig creates an Embedder based on the embedding config type.
func NewEmbedderFromConfig(cfg config.EmbeddingConfig) (organizer.Embedder, error) {
	switch cfg.Type {
	case "", "hashing":
		return NewHashingEmbedder(cfg.Dimensions), nil
	case "openai":
		e, err := NewOpenAIEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		return e, nil
	case "none":
		return NewDisabledEmbedder(), nil
	default:
		return nil, fmt.Errorf("unknown embedding type: %s", cfg.Type)
	}
}
