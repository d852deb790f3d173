package organizer_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"forg/internal/model"
	"forg/internal/organizer"
	"forg/internal/testutil"
)

func newTrained(t *testing.T, fs *testutil.MockFilesystemManager) *organizer.TrainedInference {
	t.Helper()
	return organizer.NewTrainedInference(fs, &organizer.HeuristicInference{}, testutil.NewTestAuditLog(t), testutil.FixedClock(), organizer.NewNopLogger())
}

func codeAndProseSamples() []organizer.TrainingSample {
	return []organizer.TrainingSample{
		{Content: "func main package import return error", Category: model.CategoryCode},
		{Content: "type struct interface func method", Category: model.CategoryCode},
		{Content: "dear sir thank you for your letter regards", Category: model.CategoryDocument},
		{Content: "meeting agenda minutes attendees discussion", Category: model.CategoryDocument},
	}
}

func TestTrainedInferenceUntrainedDelegates(t *testing.T) {
	fs := testutil.NewMockFilesystemManager()
	fs.AddFile("/data/a.dat", []byte("func main package"))
	trained := newTrained(t, fs)

	if trained.Trained() {
		t.Fatal("new model should not be trained")
	}

	path, err := fs.Resolve("/data/a.dat")
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	cat, confidence, err := trained.Infer(context.Background(), path, "text/plain")
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	// Heuristic fallback: text is a document at its fixed confidence.
	if cat != model.CategoryDocument || confidence != 0.8 {
		t.Errorf("got %s@%v, want document@0.8 from fallback", cat, confidence)
	}
}

func TestTrainedInferenceClassifiesText(t *testing.T) {
	fs := testutil.NewMockFilesystemManager()
	fs.AddFile("/data/prog.dat", []byte("package main func helper return error"))
	fs.AddFile("/data/letter.dat", []byte("dear sir thank you regards"))
	trained := newTrained(t, fs)

	if err := trained.Train(codeAndProseSamples()); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if !trained.Trained() {
		t.Fatal("model should report trained")
	}

	tests := []struct {
		path string
		want model.Category
	}{
		{"/data/prog.dat", model.CategoryCode},
		{"/data/letter.dat", model.CategoryDocument},
	}
	for _, tt := range tests {
		path, err := fs.Resolve(tt.path)
		if err != nil {
			t.Fatalf("failed to resolve: %v", err)
		}
		cat, confidence, err := trained.Infer(context.Background(), path, "text/plain")
		if err != nil {
			t.Fatalf("Infer failed for %s: %v", tt.path, err)
		}
		if cat != tt.want {
			t.Errorf("%s: got category %s, want %s", tt.path, cat, tt.want)
		}
		if confidence <= 0 || confidence > 1 {
			t.Errorf("%s: confidence %v outside (0,1]", tt.path, confidence)
		}
	}
}

func TestTrainedInferenceNonTextDelegates(t *testing.T) {
	fs := testutil.NewMockFilesystemManager()
	fs.AddFile("/data/img.dat", []byte{0x89, 0x50})
	trained := newTrained(t, fs)
	if err := trained.Train(codeAndProseSamples()); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	path, err := fs.Resolve("/data/img.dat")
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	cat, _, err := trained.Infer(context.Background(), path, "image/png")
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if cat != model.CategoryImage {
		t.Errorf("got %s, want image from heuristic fallback", cat)
	}
}

func TestTrainedInferenceNoTokenOverlapDelegates(t *testing.T) {
	fs := testutil.NewMockFilesystemManager()
	fs.AddFile("/data/other.dat", []byte("zzz qqq xxx"))
	trained := newTrained(t, fs)
	if err := trained.Train(codeAndProseSamples()); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	path, err := fs.Resolve("/data/other.dat")
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	cat, confidence, err := trained.Infer(context.Background(), path, "text/plain")
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if cat != model.CategoryDocument || confidence != 0.8 {
		t.Errorf("got %s@%v, want document@0.8 fallback for zero-score text", cat, confidence)
	}
}

func TestTrainRejectsEmptySamples(t *testing.T) {
	trained := newTrained(t, testutil.NewMockFilesystemManager())
	err := trained.Train(nil)
	if !errors.Is(err, organizer.ErrInvalidArgument) {
		t.Errorf("got %v, want ErrInvalidArgument", err)
	}
}

func TestSaveModelUntrained(t *testing.T) {
	trained := newTrained(t, testutil.NewMockFilesystemManager())
	err := trained.SaveModel(filepath.Join(t.TempDir(), "model.json"))
	if !errors.Is(err, organizer.ErrModelUnavailable) {
		t.Errorf("got %v, want ErrModelUnavailable", err)
	}
}

func TestSaveAndLoadModel(t *testing.T) {
	fs := testutil.NewMockFilesystemManager()
	fs.AddFile("/data/prog.dat", []byte("package main func return"))
	modelPath := filepath.Join(t.TempDir(), "models", "text.json")

	trained := newTrained(t, fs)
	if err := trained.Train(codeAndProseSamples()); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if err := trained.SaveModel(modelPath); err != nil {
		t.Fatalf("SaveModel failed: %v", err)
	}

	restored := newTrained(t, fs)
	if err := restored.LoadModel(modelPath); err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}
	if !restored.Trained() {
		t.Fatal("loaded model should report trained")
	}

	path, err := fs.Resolve("/data/prog.dat")
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	cat, _, err := restored.Infer(context.Background(), path, "text/plain")
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if cat != model.CategoryCode {
		t.Errorf("got %s, want code after model reload", cat)
	}
}

func TestLoadModelMissingFile(t *testing.T) {
	trained := newTrained(t, testutil.NewMockFilesystemManager())
	err := trained.LoadModel(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, organizer.ErrModelUnavailable) {
		t.Errorf("got %v, want ErrModelUnavailable", err)
	}
}

func TestInferTieBreaksDeterministically(t *testing.T) {
	// Two categories trained on identical content score identically; the
	// winner must be the same category on every call, not whichever one a map
	// iteration happens to visit first.
	fs := testutil.NewMockFilesystemManager()
	fs.AddFile("/data/ambiguous.dat", []byte("alpha beta gamma"))
	trained := newTrained(t, fs)

	samples := []organizer.TrainingSample{
		{Content: "alpha beta gamma", Category: model.CategoryDocument},
		{Content: "alpha beta gamma", Category: model.CategoryCode},
	}
	if err := trained.Train(samples); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	path, err := fs.Resolve("/data/ambiguous.dat")
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}

	first, firstConfidence, err := trained.Infer(context.Background(), path, "text/plain")
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if first != model.CategoryCode {
		t.Errorf("got %s, want code (lexicographically first of the tied categories)", first)
	}
	for i := 0; i < 100; i++ {
		cat, confidence, err := trained.Infer(context.Background(), path, "text/plain")
		if err != nil {
			t.Fatalf("Infer failed on call %d: %v", i, err)
		}
		if cat != first || confidence != firstConfidence {
			t.Fatalf("call %d: got %s@%v, want %s@%v on every call", i, cat, confidence, first, firstConfidence)
		}
	}
}

func TestInferConfidenceStaysInRange(t *testing.T) {
	// A document identical to its training sample scores cosine 1.0; rounding
	// must not push the reported confidence past it.
	content := "one two three four five six seven eight nine ten eleven twelve"
	fs := testutil.NewMockFilesystemManager()
	fs.AddFile("/data/exact.dat", []byte(content))
	trained := newTrained(t, fs)

	samples := []organizer.TrainingSample{
		{Content: content, Category: model.CategoryDocument},
		{Content: "unrelated words entirely", Category: model.CategoryCode},
	}
	if err := trained.Train(samples); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	path, err := fs.Resolve("/data/exact.dat")
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	cat, confidence, err := trained.Infer(context.Background(), path, "text/plain")
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if cat != model.CategoryDocument {
		t.Errorf("got category %s, want document", cat)
	}
	if confidence > 1.0 {
		t.Errorf("confidence %v exceeds 1.0", confidence)
	}
	if confidence < 0.99 {
		t.Errorf("got confidence %v, want ~1.0 for content identical to its sample", confidence)
	}
}

func TestTrainingIsAudited(t *testing.T) {
	fs := testutil.NewMockFilesystemManager()
	auditLog := testutil.NewTestAuditLog(t)
	trained := organizer.NewTrainedInference(fs, &organizer.HeuristicInference{}, auditLog, testutil.FixedClock(), organizer.NewNopLogger())

	if err := trained.Train(codeAndProseSamples()); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	entries, err := auditLog.History(10)
	if err != nil {
		t.Fatalf("failed to read history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d audit entries, want 1", len(entries))
	}
	if entries[0].Type != model.OpModelTraining {
		t.Errorf("got type %s, want model_training", entries[0].Type)
	}
	if entries[0].Status != model.StatusSuccess {
		t.Errorf("got status %s, want success", entries[0].Status)
	}
}
