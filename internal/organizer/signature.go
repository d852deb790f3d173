package organizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// SignatureKind tags the two signature representations.
type SignatureKind int

const (
	// KindBinary marks a content-hash signature (non-text files, or text
	// files when no embedding model is available).
	KindBinary SignatureKind = iota
	// KindVector marks an embedding-vector signature (text files).
	KindVector
)

// Signature is a comparable content fingerprint: either an embedding vector
// or a fallback content hash. The two kinds are never compared to each other;
// Similarity on mixed kinds returns 0.0 by policy (see Similarity).
type Signature struct {
	Kind   SignatureKind
	Hash   string    // set when Kind == KindBinary
	Vector []float64 // set when Kind == KindVector
}

// BinarySignature builds a hash-backed signature.
func BinarySignature(hash string) Signature {
	return Signature{Kind: KindBinary, Hash: hash}
}

// VectorSignature builds an embedding-backed signature.
func VectorSignature(vec []float64) Signature {
	return Signature{Kind: KindVector, Vector: vec}
}

// SimilarityEngine computes content signatures and similarity scores.
type SimilarityEngine struct {
	fsmgr    FilesystemManager
	mime     MimeDetector
	hashes   *HashStore
	embedder Embedder
	logger   Logger
}

// NewSimilarityEngine creates a SimilarityEngine. embedder may be nil, in
// which case every file gets a binary-hash signature.
func NewSimilarityEngine(fsmgr FilesystemManager, mime MimeDetector, hashes *HashStore, embedder Embedder, logger Logger) *SimilarityEngine {
	return &SimilarityEngine{
		fsmgr:    fsmgr,
		mime:     mime,
		hashes:   hashes,
		embedder: embedder,
		logger:   logger,
	}
}

// IsTextLike reports whether the file's detected MIME type has top-level
// category "text", which makes it comparable by embedding.
func (e *SimilarityEngine) IsTextLike(path *Path) (bool, error) {
	mimeType, err := e.mime.DetectMimeType(path)
	if err != nil {
		return false, fmt.Errorf("detecting mime type: %w", err)
	}
	return strings.HasPrefix(mimeType, "text/"), nil
}

// Signature computes the content signature for a file. Text-like files are
// embedded; binary files fall back to their content hash. When the embedding
// capability is unavailable the text path degrades to the hash fallback
// instead of failing.
//
// An unreadable file yields an error, not a signature: callers must exclude
// such files from comparison rather than treat them as non-matches.
func (e *SimilarityEngine) Signature(ctx context.Context, path *Path) (Signature, error) {
	textLike, err := e.IsTextLike(path)
	if err != nil {
		return Signature{}, err
	}

	if textLike && e.embedder != nil {
		sig, err := e.embedText(ctx, path)
		if err == nil {
			return sig, nil
		}
		if !errors.Is(err, ErrModelUnavailable) {
			return Signature{}, err
		}
		e.logger.Debug("embedding model unavailable, falling back to hash signature", "path", path.String())
	}

	hash, err := e.hashes.Hash(path)
	if err != nil {
		return Signature{}, err
	}
	return BinarySignature(hash), nil
}

func (e *SimilarityEngine) embedText(ctx context.Context, path *Path) (Signature, error) {
	r, err := e.fsmgr.Open(path)
	if err != nil {
		return Signature{}, fmt.Errorf("opening file for embedding: %w", err)
	}
	defer r.Close()

	text, err := io.ReadAll(r)
	if err != nil {
		return Signature{}, fmt.Errorf("reading %s: %w", path.String(), err)
	}

	vec, err := e.embedder.Embed(ctx, string(text))
	if err != nil {
		return Signature{}, fmt.Errorf("embedding %s: %w", path.String(), err)
	}
	return VectorSignature(vec), nil
}

// Similarity returns a score in [0, 1].
//
// Both binary: 1.0 iff the hashes are equal, else 0.0.
// Both vector: cosine similarity, clamped to [0, 1].
// Mixed kinds: 0.0, always. Hash and vector signatures live in unrelated
// spaces, so a mixed comparison carries no information; returning 0.0 keeps
// pairwise scans total instead of aborting them. Callers that must not mix
// kinds should filter with CompatibleKinds first.
func (e *SimilarityEngine) Similarity(a, b Signature) float64 {
	if a.Kind != b.Kind {
		return 0.0
	}
	if a.Kind == KindBinary {
		if a.Hash == b.Hash {
			return 1.0
		}
		return 0.0
	}
	return clamp01(cosineSimilarity(a.Vector, b.Vector))
}

// CompatibleKinds reports whether two signatures can be meaningfully compared.
func CompatibleKinds(a, b Signature) bool {
	return a.Kind == b.Kind
}

// cosineSimilarity returns the cosine of the angle between two vectors.
// Mismatched lengths or zero vectors score 0.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
