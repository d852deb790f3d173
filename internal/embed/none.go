package embed

import (
	"context"
	"fmt"

	"forg/internal/organizer"
)

// DisabledEmbedder always reports that no embedding model is available.
// Text files fall back to binary-hash signatures, so duplicate detection
// still works for byte-identical content.
type DisabledEmbedder struct{}

// NewDisabledEmbedder creates an embedder that reports no model available.
func NewDisabledEmbedder() *DisabledEmbedder {
	return &DisabledEmbedder{}
}

func (e *DisabledEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, fmt.Errorf("embedding disabled: %w", organizer.ErrModelUnavailable)
}

func (e *DisabledEmbedder) Dimensions() int {
	return 0
}

// Compile-time check that DisabledEmbedder implements organizer.Embedder interface
var _ organizer.Embedder = (*DisabledEmbedder)(nil)
