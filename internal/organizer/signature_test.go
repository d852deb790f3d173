package organizer_test

import (
	"context"
	"fmt"
	"math"
	"testing"

	"forg/internal/organizer"
	"forg/internal/testutil"
)

func TestIsTextLike(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.fs.AddFile("/data/notes", []byte("plain text"))
	h.fs.AddFile("/data/blob", []byte{0x00, 0x01, 0x02})

	textLike, err := h.sim.IsTextLike(h.resolve(t, "/data/notes"))
	if err != nil {
		t.Fatalf("IsTextLike failed: %v", err)
	}
	if !textLike {
		t.Error("text content should be text-like")
	}

	textLike, err = h.sim.IsTextLike(h.resolve(t, "/data/blob"))
	if err != nil {
		t.Fatalf("IsTextLike failed: %v", err)
	}
	if textLike {
		t.Error("binary content should not be text-like")
	}
}

func TestSignatureTextUsesEmbedder(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float64{
		"hello world": {1, 0, 0},
	}}
	h := newHarness(t, harnessOptions{embedder: embedder})
	h.fs.AddFile("/data/a.txt", []byte("hello world"))

	sig, err := h.sim.Signature(context.Background(), h.resolve(t, "/data/a.txt"))
	if err != nil {
		t.Fatalf("Signature failed: %v", err)
	}
	if sig.Kind != organizer.KindVector {
		t.Errorf("got kind %v, want vector", sig.Kind)
	}
	if len(sig.Vector) != 3 {
		t.Errorf("got %d dimensions, want 3", len(sig.Vector))
	}
}

func TestSignatureBinaryUsesHash(t *testing.T) {
	h := newHarness(t, harnessOptions{embedder: &stubEmbedder{}})
	content := []byte{0x89, 0x50, 0x4e, 0x47, 0x00}
	h.fs.AddFile("/data/img.bin", content)

	sig, err := h.sim.Signature(context.Background(), h.resolve(t, "/data/img.bin"))
	if err != nil {
		t.Fatalf("Signature failed: %v", err)
	}
	if sig.Kind != organizer.KindBinary {
		t.Errorf("got kind %v, want binary", sig.Kind)
	}
	if want := testutil.SHA256Hex(content); sig.Hash != want {
		t.Errorf("got hash %s, want %s", sig.Hash, want)
	}
}

func TestSignatureNoEmbedderFallsBackToHash(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.fs.AddFile("/data/a.txt", []byte("hello world"))

	sig, err := h.sim.Signature(context.Background(), h.resolve(t, "/data/a.txt"))
	if err != nil {
		t.Fatalf("Signature failed: %v", err)
	}
	if sig.Kind != organizer.KindBinary {
		t.Errorf("got kind %v, want binary fallback without embedder", sig.Kind)
	}
}

func TestSignatureModelUnavailableFallsBackToHash(t *testing.T) {
	embedder := &stubEmbedder{err: fmt.Errorf("no endpoint: %w", organizer.ErrModelUnavailable)}
	h := newHarness(t, harnessOptions{embedder: embedder})
	h.fs.AddFile("/data/a.txt", []byte("hello world"))

	sig, err := h.sim.Signature(context.Background(), h.resolve(t, "/data/a.txt"))
	if err != nil {
		t.Fatalf("Signature failed: %v", err)
	}
	if sig.Kind != organizer.KindBinary {
		t.Errorf("got kind %v, want binary fallback when model is unavailable", sig.Kind)
	}
}

func TestSignatureOtherEmbederrorPropagates(t *testing.T) {
	embedder := &stubEmbedder{err: fmt.Errorf("rate limited")}
	h := newHarness(t, harnessOptions{embedder: embedder})
	h.fs.AddFile("/data/a.txt", []byte("hello world"))

	if _, err := h.sim.Signature(context.Background(), h.resolve(t, "/data/a.txt")); err == nil {
		t.Error("expected non-model embed errors to propagate")
	}
}

func TestSignatureUnreadableFile(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.fs.AddFile("/data/a.txt", []byte("content"))
	path := h.resolve(t, "/data/a.txt")
	h.fs.FailOpen[path.String()] = true

	if _, err := h.sim.Signature(context.Background(), path); err == nil {
		t.Error("expected error for unreadable file, not a signature")
	}
}

func TestSimilarity(t *testing.T) {
	h := newHarness(t, harnessOptions{})

	tests := []struct {
		name string
		a, b organizer.Signature
		want float64
	}{
		{
			name: "equal hashes",
			a:    organizer.BinarySignature("abc"),
			b:    organizer.BinarySignature("abc"),
			want: 1.0,
		},
		{
			name: "different hashes",
			a:    organizer.BinarySignature("abc"),
			b:    organizer.BinarySignature("def"),
			want: 0.0,
		},
		{
			name: "mixed kinds",
			a:    organizer.BinarySignature("abc"),
			b:    organizer.VectorSignature([]float64{1, 0, 0}),
			want: 0.0,
		},
		{
			name: "identical vectors",
			a:    organizer.VectorSignature([]float64{1, 2, 3}),
			b:    organizer.VectorSignature([]float64{1, 2, 3}),
			want: 1.0,
		},
		{
			name: "orthogonal vectors",
			a:    organizer.VectorSignature([]float64{1, 0, 0}),
			b:    organizer.VectorSignature([]float64{0, 1, 0}),
			want: 0.0,
		},
		{
			name: "opposite vectors clamp to zero",
			a:    organizer.VectorSignature([]float64{1, 0, 0}),
			b:    organizer.VectorSignature([]float64{-1, 0, 0}),
			want: 0.0,
		},
		{
			name: "mismatched lengths",
			a:    organizer.VectorSignature([]float64{1, 0}),
			b:    organizer.VectorSignature([]float64{1, 0, 0}),
			want: 0.0,
		},
		{
			name: "zero vector",
			a:    organizer.VectorSignature([]float64{0, 0, 0}),
			b:    organizer.VectorSignature([]float64{1, 0, 0}),
			want: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := h.sim.Similarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSimilarityIsSymmetric(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	a := organizer.VectorSignature([]float64{1, 2, 3})
	b := organizer.VectorSignature([]float64{3, 2, 1})

	if h.sim.Similarity(a, b) != h.sim.Similarity(b, a) {
		t.Error("similarity should be symmetric")
	}
}

func TestCompatibleKinds(t *testing.T) {
	binA := organizer.BinarySignature("a")
	binB := organizer.BinarySignature("b")
	vec := organizer.VectorSignature([]float64{1})

	if !organizer.CompatibleKinds(binA, binB) {
		t.Error("two binary signatures should be compatible")
	}
	if organizer.CompatibleKinds(binA, vec) {
		t.Error("binary and vector signatures should not be compatible")
	}
}
