package organizer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"forg/internal/model"
)

// TrainingSample pairs text content with its known category.
type TrainingSample struct {
	Content  string
	Category model.Category
}

// TrainedInference is a bag-of-words centroid classifier that replaces the
// fixed text heuristic once trained. Each category accumulates a token
// frequency centroid; text files are classified by the nearest centroid with
// cosine similarity as confidence. Non-text content falls through to the
// heuristic rules.
//
// The model is deliberately small: it exists to exercise the trainable
// contract, not to compete with an external classification model.
type TrainedInference struct {
	fsmgr     FilesystemManager
	fallback  InferenceStrategy
	audit     AuditLog
	clock     Clock
	logger    Logger
	centroids map[model.Category]map[string]float64
}

var _ InferenceStrategy = (*TrainedInference)(nil)

// NewTrainedInference creates an untrained model that delegates everything to
// fallback until Train or LoadModel succeeds.
func NewTrainedInference(fsmgr FilesystemManager, fallback InferenceStrategy, audit AuditLog, clock Clock, logger Logger) *TrainedInference {
	return &TrainedInference{
		fsmgr:    fsmgr,
		fallback: fallback,
		audit:    audit,
		clock:    clock,
		logger:   logger,
	}
}

// Trained reports whether the model has centroids to classify with.
func (t *TrainedInference) Trained() bool {
	return len(t.centroids) > 0
}

// Train fits category centroids from labeled samples. Training is recorded
// in the audit log as a model_training operation.
func (t *TrainedInference) Train(samples []TrainingSample) error {
	if len(samples) == 0 {
		t.recordModelOp(model.OpModelTraining, model.StatusFailure, "no training samples")
		return fmt.Errorf("%w: no training samples", ErrInvalidArgument)
	}

	centroids := make(map[model.Category]map[string]float64)
	for _, s := range samples {
		c := centroids[s.Category]
		if c == nil {
			c = make(map[string]float64)
			centroids[s.Category] = c
		}
		for token, count := range tokenize(s.Content) {
			c[token] += count
		}
	}
	t.centroids = centroids

	t.recordModelOp(model.OpModelTraining, model.StatusSuccess, fmt.Sprintf("trained on %d samples", len(samples)))
	return nil
}

// Infer classifies text content by its nearest category centroid. Equal scores
// go to the lexicographically first category, so repeated calls on unchanged
// content return the same category and confidence. Untrained models and
// non-text content delegate to the fallback strategy.
func (t *TrainedInference) Infer(ctx context.Context, path *Path, mimeType string) (model.Category, float64, error) {
	if !t.Trained() || !strings.HasPrefix(mimeType, "text/") {
		return t.fallback.Infer(ctx, path, mimeType)
	}

	r, err := t.fsmgr.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("opening file for inference: %w", err)
	}
	defer r.Close()

	content, err := io.ReadAll(r)
	if err != nil {
		return "", 0, fmt.Errorf("reading %s: %w", path.String(), err)
	}

	doc := tokenize(string(content))

	// Scan categories in sorted order so ties resolve to the lexicographically
	// first category; map iteration order must not leak into the result.
	categories := make([]model.Category, 0, len(t.centroids))
	for cat := range t.centroids {
		categories = append(categories, cat)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	best, bestScore := model.CategoryUnknown, 0.0
	for _, cat := range categories {
		if score := sparseCosine(doc, t.centroids[cat]); score > bestScore {
			best, bestScore = cat, score
		}
	}
	if bestScore == 0 {
		return t.fallback.Infer(ctx, path, mimeType)
	}
	return best, clamp01(bestScore), nil
}

// modelFile is the on-disk JSON layout of a trained model.
type modelFile struct {
	Centroids map[model.Category]map[string]float64 `json:"centroids"`
}

// SaveModel persists the trained centroids to path as JSON.
func (t *TrainedInference) SaveModel(path string) error {
	if !t.Trained() {
		t.recordModelOp(model.OpModelSave, model.StatusFailure, "model not trained")
		return fmt.Errorf("%w: model not trained", ErrModelUnavailable)
	}

	data, err := json.Marshal(modelFile{Centroids: t.centroids})
	if err != nil {
		t.recordModelOp(model.OpModelSave, model.StatusFailure, err.Error())
		return fmt.Errorf("encoding model: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.recordModelOp(model.OpModelSave, model.StatusFailure, err.Error())
		return fmt.Errorf("creating model directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.recordModelOp(model.OpModelSave, model.StatusFailure, err.Error())
		return fmt.Errorf("writing model: %w", err)
	}

	t.recordModelOp(model.OpModelSave, model.StatusSuccess, path)
	return nil
}

// LoadModel restores centroids previously written by SaveModel.
func (t *TrainedInference) LoadModel(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		t.recordModelOp(model.OpModelLoad, model.StatusFailure, err.Error())
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrModelUnavailable, path)
		}
		return fmt.Errorf("reading model: %w", err)
	}

	var mf modelFile
	if err := json.Unmarshal(data, &mf); err != nil {
		t.recordModelOp(model.OpModelLoad, model.StatusFailure, err.Error())
		return fmt.Errorf("decoding model: %w", err)
	}

	t.centroids = mf.Centroids
	t.recordModelOp(model.OpModelLoad, model.StatusSuccess, path)
	return nil
}

func (t *TrainedInference) recordModelOp(op model.OperationType, status model.OperationStatus, details string) {
	if err := AppendOperation(t.audit, t.clock, op, "text_classifier", "", status, details); err != nil {
		t.logger.Warn("recording model operation", "operation", string(op), "error", err)
	}
}

// tokenize splits text into lowercase word tokens with counts.
func tokenize(text string) map[string]float64 {
	counts := make(map[string]float64)
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		counts[tok]++
	}
	return counts
}

// sparseCosine is cosine similarity over sparse token-count vectors.
func sparseCosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for tok, av := range a {
		normA += av * av
		if bv, ok := b[tok]; ok {
			dot += av * bv
		}
	}
	for _, bv := range b {
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
