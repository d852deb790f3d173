package organizer

import "context"

// Embedder is the external embedding capability: it turns text content into a
// fixed-dimension numeric vector. Implementations may be remote (an
// OpenAI-compatible endpoint) or local. When no model is available an
// implementation returns an error wrapping ErrModelUnavailable, and the
// similarity engine degrades to binary-hash signatures.
//
// Latency is the capability's own concern; the core imposes no timeouts.
type Embedder interface {
	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// Dimensions returns the fixed vector dimensionality, or 0 if unknown
	// before the first call.
	Dimensions() int
}
