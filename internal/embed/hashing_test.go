package embed

import (
	"context"
	"errors"
	"math"
	"testing"

	"forg/internal/config"
	"forg/internal/organizer"
)

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashingEmbedder_Deterministic(t *testing.T) {
	e := NewHashingEmbedder(64)
	ctx := context.Background()

	v1, err := e.Embed(ctx, "the quick brown fox")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	v2, err := e.Embed(ctx, "the quick brown fox")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	if len(v1) != 64 {
		t.Fatalf("vector length = %d, want 64", len(v1))
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("vectors differ at index %d: %v vs %v", i, v1[i], v2[i])
		}
	}
}

func TestHashingEmbedder_Normalized(t *testing.T) {
	e := NewHashingEmbedder(128)
	v, err := e.Embed(context.Background(), "some text with several words in it")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	var norm float64
	for _, x := range v {
		norm += x * x
	}
	if math.Abs(norm-1.0) > 1e-9 {
		t.Errorf("squared norm = %v, want 1.0", norm)
	}
}

func TestHashingEmbedder_SimilarTextScoresHigher(t *testing.T) {
	e := NewHashingEmbedder(256)
	ctx := context.Background()

	base, err := e.Embed(ctx, "project meeting notes from january budget planning")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	near, err := e.Embed(ctx, "project meeting notes from february budget planning")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	far, err := e.Embed(ctx, "grilled cheese sandwich recipe with tomato soup")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	simNear := cosine(base, near)
	simFar := cosine(base, far)
	if simNear <= simFar {
		t.Errorf("cosine(near) = %v should exceed cosine(far) = %v", simNear, simFar)
	}

	// Identical text is maximally similar.
	if self := cosine(base, base); math.Abs(self-1.0) > 1e-9 {
		t.Errorf("self similarity = %v, want 1.0", self)
	}
}

func TestHashingEmbedder_EmptyText(t *testing.T) {
	e := NewHashingEmbedder(32)
	if _, err := e.Embed(context.Background(), "   \n\t "); err == nil {
		t.Error("Embed() of whitespace-only text should fail")
	}
}

func TestHashingEmbedder_DefaultDimensions(t *testing.T) {
	e := NewHashingEmbedder(0)
	if e.Dimensions() != defaultHashingDimensions {
		t.Errorf("Dimensions() = %d, want %d", e.Dimensions(), defaultHashingDimensions)
	}
}

func TestDisabledEmbedder(t *testing.T) {
	e := NewDisabledEmbedder()
	_, err := e.Embed(context.Background(), "anything")
	if !errors.Is(err, organizer.ErrModelUnavailable) {
		t.Errorf("Embed() error = %v, want ErrModelUnavailable", err)
	}
	if e.Dimensions() != 0 {
		t.Errorf("Dimensions() = %d, want 0", e.Dimensions())
	}
}

func TestNewEmbedderFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EmbeddingConfig
		wantErr bool
	}{
		{name: "default is hashing", cfg: config.EmbeddingConfig{}, wantErr: false},
		{name: "hashing", cfg: config.EmbeddingConfig{Type: "hashing", Dimensions: 128}, wantErr: false},
		{name: "none", cfg: config.EmbeddingConfig{Type: "none"}, wantErr: false},
		{name: "openai without key env fails", cfg: config.EmbeddingConfig{Type: "openai", APIKeyEnv: "FORG_TEST_MISSING_KEY"}, wantErr: true},
		{name: "unknown type", cfg: config.EmbeddingConfig{Type: "quantum"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewEmbedderFromConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewEmbedderFromConfig() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got == nil {
				t.Error("NewEmbedderFromConfig() returned nil embedder")
			}
		})
	}
}
