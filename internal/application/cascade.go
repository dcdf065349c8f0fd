package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"leaf-doctor/internal/domain/entity"
	"leaf-doctor/internal/domain/port"
)

// CropFunc cuts box out of an encoded image and returns the encoded crop.
type CropFunc func(imageData []byte, box entity.BoundingBox) ([]byte, error)

// CascadeService finds spots with one model and classifies every spot
// with a second model.
type CascadeService struct {
	spots      port.Detector
	classifier port.Classifier
	crop       CropFunc
	log        logrus.FieldLogger
}

// NewCascadeService creates the two-stage pipeline.
func NewCascadeService(spots port.Detector, classifier port.Classifier, crop CropFunc, log logrus.FieldLogger) *CascadeService {
	return &CascadeService{
		spots:      spots,
		classifier: classifier,
		crop:       crop,
		log:        log,
	}
}

// Enabled reports whether both stages are configured.
func (s *CascadeService) Enabled() bool {
	return s != nil && s.spots != nil && s.classifier != nil && s.crop != nil
}

// Run returns one result per boxed spot, in detection order. A spot that
// cannot be cropped or classified carries Err and does not stop the rest.
func (s *CascadeService) Run(ctx context.Context, photo []byte) ([]entity.CropResult, error) {
	if !s.Enabled() {
		return nil, ErrDetectorNotConfigured
	}

	spots, err := s.spots.Detect(ctx, photo)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetectionFailed, err)
	}

	results := make([]entity.CropResult, 0, len(spots))
	for _, spot := range spots {
		if !spot.HasBox() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res := entity.CropResult{Index: len(results), Box: *spot.Box}
		res.Label, res.Confidence, res.Err = s.classify(ctx, photo, res.Box)
		if res.Err != nil {
			s.log.WithError(res.Err).WithField("crop", res.Index).Warn("classify crop")
		}
		results = append(results, res)
	}

	return results, nil
}

func (s *CascadeService) classify(ctx context.Context, photo []byte, box entity.BoundingBox) (string, float64, error) {
	crop, err := s.crop(photo, box)
	if err != nil {
		return "", 0, fmt.Errorf("crop: %w", err)
	}
	label, confidence, err := s.classifier.Classify(ctx, crop)
	if err != nil {
		return "", 0, fmt.Errorf("classify: %w", err)
	}
	return label, confidence, nil
}
