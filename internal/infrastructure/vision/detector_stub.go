//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"

	"leaf-doctor/internal/domain/entity"
)

var errNoGoCV = errors.New("gocv build tag is not enabled")

// YOLODetector is unavailable without OpenCV.
type YOLODetector struct{}

// NewYOLODetector always fails when built without the gocv tag.
func NewYOLODetector(cfg ModelConfig) (*YOLODetector, error) {
	_ = cfg
	return nil, errNoGoCV
}

// Detect returns an error when built without the gocv tag.
func (d *YOLODetector) Detect(ctx context.Context, imageData []byte) ([]entity.DetectionResult, error) {
	return nil, errNoGoCV
}

// Close is a no-op.
func (d *YOLODetector) Close() error { return nil }

// YOLOClassifier is unavailable without OpenCV.
type YOLOClassifier struct{}

// NewYOLOClassifier always fails when built without the gocv tag.
func NewYOLOClassifier(cfg ModelConfig) (*YOLOClassifier, error) {
	_ = cfg
	return nil, errNoGoCV
}

// Classify returns an error when built without the gocv tag.
func (c *YOLOClassifier) Classify(ctx context.Context, imageData []byte) (string, float64, error) {
	return "", 0, errNoGoCV
}

// Close is a no-op.
func (c *YOLOClassifier) Close() error { return nil }
