package app

import (
	"context"
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"leaf-doctor/internal/domain/entity"
)

type stubDetector struct {
	detections []entity.DetectionResult
	err        error
	calls      int
}

func (d *stubDetector) Detect(ctx context.Context, imageData []byte) ([]entity.DetectionResult, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.detections, nil
}

type stubAnnotator struct {
	out   []byte
	err   error
	calls int
}

func (a *stubAnnotator) Annotate(imageData []byte, detections []entity.DetectionResult) ([]byte, error) {
	a.calls++
	return a.out, a.err
}

// stubClassifier answers by crop content; crops named "bad" fail.
type stubClassifier struct {
	labels map[string]string
	seen   []string
}

func (c *stubClassifier) Classify(ctx context.Context, imageData []byte) (string, float64, error) {
	key := string(imageData)
	c.seen = append(c.seen, key)
	if key == "bad" {
		return "", 0, errors.New("model rejected crop")
	}
	return c.labels[key], 0.9, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func box(x1, y1, x2, y2 int) *entity.BoundingBox {
	return &entity.BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}
