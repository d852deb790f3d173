package organizer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"forg/internal/model"
)

// extensionCategories is the fixed extension lookup table. Extensions are
// matched case-insensitively; a hit classifies with confidence 1.0 without
// reading file content.
var extensionCategories = map[string]model.Category{
	".jpg": model.CategoryImage, ".jpeg": model.CategoryImage, ".png": model.CategoryImage,
	".gif": model.CategoryImage, ".bmp": model.CategoryImage, ".tiff": model.CategoryImage,

	".pdf": model.CategoryDocument, ".doc": model.CategoryDocument, ".docx": model.CategoryDocument,
	".txt": model.CategoryDocument, ".rtf": model.CategoryDocument,

	".mp4": model.CategoryVideo, ".avi": model.CategoryVideo, ".mov": model.CategoryVideo,
	".wmv": model.CategoryVideo, ".flv": model.CategoryVideo,

	".mp3": model.CategoryAudio, ".wav": model.CategoryAudio, ".ogg": model.CategoryAudio,
	".flac": model.CategoryAudio,

	".py": model.CategoryCode, ".java": model.CategoryCode, ".cpp": model.CategoryCode,
	".js": model.CategoryCode, ".html": model.CategoryCode, ".css": model.CategoryCode,

	".zip": model.CategoryArchive, ".rar": model.CategoryArchive, ".7z": model.CategoryArchive,
	".tar": model.CategoryArchive, ".gz": model.CategoryArchive,
}

// CategoryForExtension returns the table category for a file extension
// (with leading dot, any case). ok is false when the extension is not listed.
func CategoryForExtension(ext string) (model.Category, bool) {
	cat, ok := extensionCategories[strings.ToLower(ext)]
	return cat, ok
}

// InferenceStrategy classifies a file from its content when the extension is
// not decisive. Implementations can be swapped (heuristic vs trained model)
// without changing Classifier callers.
type InferenceStrategy interface {
	Infer(ctx context.Context, path *Path, mimeType string) (model.Category, float64, error)
}

// Classifier maps files to category labels. Extension lookup is the fast
// path; content inference runs only for unknown extensions.
type Classifier struct {
	mime      MimeDetector
	inference InferenceStrategy
	audit     AuditLog
	clock     Clock
	logger    Logger
}

// NewClassifier creates a Classifier with the given inference fallback.
func NewClassifier(mime MimeDetector, inference InferenceStrategy, audit AuditLog, clock Clock, logger Logger) *Classifier {
	return &Classifier{
		mime:      mime,
		inference: inference,
		audit:     audit,
		clock:     clock,
		logger:    logger,
	}
}

// Classify determines the category of a file. Classification is pure with
// respect to the file's content: repeated calls on an unchanged file return
// the same category and confidence. Failures are recorded in the audit log
// and reported to the caller; the file is then skipped by batch callers.
func (c *Classifier) Classify(ctx context.Context, path *Path) (model.Classification, error) {
	ext := filepath.Ext(path.String())
	if cat, ok := CategoryForExtension(ext); ok {
		return model.Classification{
			Path:       path.String(),
			Category:   cat,
			Confidence: 1.0,
			Method:     model.MethodExtension,
		}, nil
	}

	mimeType, err := c.mime.DetectMimeType(path)
	if err != nil {
		c.recordFailure(path.String(), fmt.Sprintf("detecting mime type: %v", err))
		return model.Classification{}, fmt.Errorf("detecting mime type: %w", err)
	}

	cat, confidence, err := c.inference.Infer(ctx, path, mimeType)
	if err != nil {
		c.recordFailure(path.String(), fmt.Sprintf("content inference: %v", err))
		return model.Classification{}, fmt.Errorf("content inference for %s: %w", path.String(), err)
	}

	return model.Classification{
		Path:       path.String(),
		Category:   cat,
		Confidence: confidence,
		Method:     model.MethodContent,
	}, nil
}

func (c *Classifier) recordFailure(path, details string) {
	err := AppendOperation(c.audit, c.clock, model.OpFileClassification, path, "", model.StatusFailure, details)
	if err != nil {
		c.logger.Warn("recording classification failure", "path", path, "error", err)
	}
}
