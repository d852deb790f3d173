package organizer

import (
	"context"
	"strings"

	"forg/internal/model"
)

// Fixed confidences for heuristic content inference. Text content is assumed
// to be a document with moderate confidence; images score higher when an
// image model is present and lower without one.
const (
	textConfidence         = 0.8
	imageConfidence        = 0.9
	imageNoModelConfidence = 0.5
)

// HeuristicInference is the default InferenceStrategy: fixed rules on the
// detected MIME type. It reads no file content.
type HeuristicInference struct {
	// HasImageModel reports that an image-content model is loaded, which
	// raises the confidence of image classifications.
	HasImageModel bool
}

var _ InferenceStrategy = (*HeuristicInference)(nil)

// Infer classifies by MIME top-level category: text is a document, image is
// an image, anything else is unknown with zero confidence.
func (h *HeuristicInference) Infer(_ context.Context, _ *Path, mimeType string) (model.Category, float64, error) {
	switch {
	case strings.HasPrefix(mimeType, "text/"):
		return model.CategoryDocument, textConfidence, nil
	case strings.HasPrefix(mimeType, "image/"):
		if h.HasImageModel {
			return model.CategoryImage, imageConfidence, nil
		}
		return model.CategoryImage, imageNoModelConfidence, nil
	default:
		return model.CategoryUnknown, 0.0, nil
	}
}
