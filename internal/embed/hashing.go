package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"forg/internal/organizer"
)

const defaultHashingDimensions = 256

// HashingEmbedder is a local, deterministic embedder using the hashing trick:
// each token is hashed into one of a fixed number of buckets and the resulting
// term-frequency vector is L2-normalized. It needs no network access or model
// files, and identical text always produces identical vectors, which makes it
// a dependable default for near-duplicate detection.
type HashingEmbedder struct {
	dims int
}

// NewHashingEmbedder creates a hashing embedder with the given dimensionality.
// dims <= 0 selects the default.
func NewHashingEmbedder(dims int) *HashingEmbedder {
	if dims <= 0 {
		dims = defaultHashingDimensions
	}
	return &HashingEmbedder{dims: dims}
}

// Embed returns the normalized bucket-count vector for the given text.
func (e *HashingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float64, e.dims)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no tokens to embed")
	}

	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[int(h.Sum32())%e.dims]++
	}

	// L2-normalize so cosine similarity reduces to a dot product.
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

// Dimensions returns the size of vectors produced by this embedder.
func (e *HashingEmbedder) Dimensions() int {
	return e.dims
}

// Compile-time check that HashingEmbedder implements organizer.Embedder interface
var _ organizer.Embedder = (*HashingEmbedder)(nil)
