package organizer_test

import (
	"context"
	"fmt"
	"testing"

	"forg/internal/model"
	"forg/internal/organizer"
	"forg/internal/testutil"
)

// stubEmbedder returns preconfigured vectors keyed by exact text content.
// Unconfigured text and a set error both produce an Embed failure.
type stubEmbedder struct {
	vectors map[string][]float64
	err     error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	vec, ok := s.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector configured for %q", text)
	}
	return vec, nil
}

func (s *stubEmbedder) Dimensions() int { return 3 }

var _ organizer.Embedder = (*stubEmbedder)(nil)

// failingInference fails for one path and delegates the rest.
type failingInference struct {
	failPath string
	inner    organizer.InferenceStrategy
}

func (f *failingInference) Infer(ctx context.Context, path *organizer.Path, mimeType string) (model.Category, float64, error) {
	if path.String() == f.failPath {
		return "", 0, fmt.Errorf("inference broke for %s", path.String())
	}
	return f.inner.Infer(ctx, path, mimeType)
}

// harness bundles the collaborators most organizer tests need.
type harness struct {
	fs       *testutil.MockFilesystemManager
	audit    organizer.AuditLog
	clock    *testutil.StubClock
	hashes   *organizer.HashStore
	sim      *organizer.SimilarityEngine
	cls      *organizer.Classifier
	detector *organizer.DuplicateDetector
}

type harnessOptions struct {
	embedder  organizer.Embedder
	inference organizer.InferenceStrategy
	vault     organizer.ArchiveVault
	encryptor organizer.Encryptor
	workers   int
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()

	fs := testutil.NewMockFilesystemManager()
	auditLog := testutil.NewTestAuditLog(t)
	clock := testutil.FixedClock()
	logger := organizer.NewNopLogger()

	if opts.inference == nil {
		opts.inference = &organizer.HeuristicInference{}
	}
	if opts.workers == 0 {
		opts.workers = 2
	}

	hashes := organizer.NewHashStore(fs)
	sim := organizer.NewSimilarityEngine(fs, fs, hashes, opts.embedder, logger)
	cls := organizer.NewClassifier(fs, opts.inference, auditLog, clock, logger)
	detector := organizer.NewDuplicateDetector(hashes, sim, cls, fs, opts.vault, opts.encryptor, auditLog, clock, logger, opts.workers)

	return &harness{
		fs:       fs,
		audit:    auditLog,
		clock:    clock,
		hashes:   hashes,
		sim:      sim,
		cls:      cls,
		detector: detector,
	}
}

// resolve is a shorthand that fails the test on a resolution error.
func (h *harness) resolve(t *testing.T, rawPath string) *organizer.Path {
	t.Helper()
	path, err := h.fs.Resolve(rawPath)
	if err != nil {
		t.Fatalf("failed to resolve %s: %v", rawPath, err)
	}
	return path
}

// historyTypes returns the operation types of recent audit entries, newest first.
func (h *harness) historyTypes(t *testing.T, limit int) []model.OperationType {
	t.Helper()
	entries, err := h.audit.History(limit)
	if err != nil {
		t.Fatalf("failed to read history: %v", err)
	}
	types := make([]model.OperationType, 0, len(entries))
	for _, e := range entries {
		types = append(types, e.Type)
	}
	return types
}
