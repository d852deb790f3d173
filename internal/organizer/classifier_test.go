package organizer_test

import (
	"context"
	"testing"

	"forg/internal/model"
	"forg/internal/organizer"
)

func TestCategoryForExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want model.Category
		ok   bool
	}{
		{".jpg", model.CategoryImage, true},
		{".PDF", model.CategoryDocument, true},
		{".Mp3", model.CategoryAudio, true},
		{".py", model.CategoryCode, true},
		{".tar", model.CategoryArchive, true},
		{".mov", model.CategoryVideo, true},
		{".xyz", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			got, ok := organizer.CategoryForExtension(tt.ext)
			if ok != tt.ok {
				t.Fatalf("got ok=%v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyByExtension(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.fs.AddFile("/docs/readme.PDF", []byte("%PDF-1.4"))

	cls, err := h.cls.Classify(context.Background(), h.resolve(t, "/docs/readme.PDF"))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if cls.Category != model.CategoryDocument {
		t.Errorf("got category %s, want document", cls.Category)
	}
	if cls.Confidence != 1.0 {
		t.Errorf("got confidence %v, want 1.0", cls.Confidence)
	}
	if cls.Method != model.MethodExtension {
		t.Errorf("got method %s, want extension", cls.Method)
	}
}

func TestClassifyByContent(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.fs.AddFile("/docs/notes.dat", []byte("meeting notes from tuesday"))

	cls, err := h.cls.Classify(context.Background(), h.resolve(t, "/docs/notes.dat"))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if cls.Category != model.CategoryDocument {
		t.Errorf("got category %s, want document", cls.Category)
	}
	if cls.Method != model.MethodContent {
		t.Errorf("got method %s, want content", cls.Method)
	}
}

func TestClassifyUnknownContent(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.fs.AddFile("/data/blob.dat", []byte{0x00, 0xff, 0x12})

	cls, err := h.cls.Classify(context.Background(), h.resolve(t, "/data/blob.dat"))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if cls.Category != model.CategoryUnknown {
		t.Errorf("got category %s, want unknown", cls.Category)
	}
	if cls.Confidence != 0.0 {
		t.Errorf("got confidence %v, want 0.0", cls.Confidence)
	}
}

func TestClassifyIsRepeatable(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.fs.AddFile("/docs/notes.dat", []byte("some text"))
	path := h.resolve(t, "/docs/notes.dat")

	first, err := h.cls.Classify(context.Background(), path)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	second, err := h.cls.Classify(context.Background(), path)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if first != second {
		t.Errorf("got %+v then %+v, want identical results", first, second)
	}
}

func TestClassifyInferenceFailureIsAudited(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.fs.AddFile("/data/broken.dat", []byte("text"))
	path := h.resolve(t, "/data/broken.dat")

	// Rebuild the classifier with an inference strategy that fails for this path.
	cls := organizer.NewClassifier(h.fs, &failingInference{failPath: path.String(), inner: &organizer.HeuristicInference{}}, h.audit, h.clock, organizer.NewNopLogger())

	if _, err := cls.Classify(context.Background(), path); err == nil {
		t.Fatal("expected classification error")
	}

	entries, err := h.audit.History(10)
	if err != nil {
		t.Fatalf("failed to read history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d audit entries, want 1", len(entries))
	}
	if entries[0].Type != model.OpFileClassification {
		t.Errorf("got type %s, want file_classification", entries[0].Type)
	}
	if entries[0].Status != model.StatusFailure {
		t.Errorf("got status %s, want failure", entries[0].Status)
	}
	if entries[0].SourcePath != path.String() {
		t.Errorf("got source %s, want %s", entries[0].SourcePath, path.String())
	}
}

func TestClassifyExtensionHitSkipsContent(t *testing.T) {
	// A table extension classifies without content inference, so a failing
	// strategy must not be consulted.
	h := newHarness(t, harnessOptions{})
	h.fs.AddFile("/docs/a.txt", []byte("text"))
	path := h.resolve(t, "/docs/a.txt")

	cls := organizer.NewClassifier(h.fs, &failingInference{failPath: path.String(), inner: &organizer.HeuristicInference{}}, h.audit, h.clock, organizer.NewNopLogger())

	got, err := cls.Classify(context.Background(), path)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if got.Method != model.MethodExtension {
		t.Errorf("got method %s, want extension", got.Method)
	}
}
