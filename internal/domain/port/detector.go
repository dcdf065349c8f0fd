package port

import (
	"context"

	"leaf-doctor/internal/domain/entity"
)

// Detector runs object detection on an encoded image.
type Detector interface {
	// Detect returns detections in backend order, possibly none.
	Detect(ctx context.Context, imageData []byte) ([]entity.DetectionResult, error)
}

// Classifier assigns a single class to an encoded image.
type Classifier interface {
	// Classify returns the best class and its confidence.
	Classify(ctx context.Context, imageData []byte) (label string, confidence float64, err error)
}

// Annotator draws detections on top of an image.
type Annotator interface {
	// Annotate returns a JPEG with boxes and captions drawn.
	Annotate(imageData []byte, detections []entity.DetectionResult) ([]byte, error)
}
