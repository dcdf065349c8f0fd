package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"leaf-doctor/internal/domain/entity"
)

// cropByX names each crop after its left edge so the stub classifier can answer.
func cropByX(imageData []byte, b entity.BoundingBox) ([]byte, error) {
	if b.X1 < 0 {
		return nil, errors.New("out of bounds")
	}
	if b.X1 == 99 {
		return []byte("bad"), nil
	}
	return []byte(fmt.Sprintf("x%d", b.X1)), nil
}

func TestCascade_ClassifiesEachCrop(t *testing.T) {
	spots := &stubDetector{detections: []entity.DetectionResult{
		{Label: "spot", Box: box(0, 0, 10, 10)},
		{Label: "spot", Box: box(20, 0, 30, 10)},
		{Label: "spot", Box: box(0, 0, 10, 10)},
	}}
	cls := &stubClassifier{labels: map[string]string{"x0": "Septoria", "x20": "Leaf Mold"}}
	svc := NewCascadeService(spots, cls, cropByX, quietLogger())

	res, err := svc.Run(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Len(t, res, 3)
	require.Equal(t, "Septoria", res[0].Label)
	require.Equal(t, "Leaf Mold", res[1].Label)
	require.Equal(t, "Septoria", res[2].Label)
	require.Equal(t, 2, res[2].Index)
	require.Equal(t, []string{"x0", "x20", "x0"}, cls.seen)
}

func TestCascade_FailingCropDoesNotAbort(t *testing.T) {
	spots := &stubDetector{detections: []entity.DetectionResult{
		{Label: "spot", Box: box(99, 0, 120, 10)},
		{Label: "spot", Box: box(-5, 0, 10, 10)},
		{Label: "spot", Box: box(20, 0, 30, 10)},
		{Label: "spot"},
	}}
	cls := &stubClassifier{labels: map[string]string{"x20": "Healthy"}}
	svc := NewCascadeService(spots, cls, cropByX, quietLogger())

	res, err := svc.Run(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Len(t, res, 3)
	require.True(t, res[0].Failed())
	require.True(t, res[1].Failed())
	require.False(t, res[2].Failed())
	require.Equal(t, "Healthy", res[2].Label)
}

func TestCascade_StageOneFailure(t *testing.T) {
	svc := NewCascadeService(&stubDetector{err: errors.New("boom")}, &stubClassifier{}, cropByX, quietLogger())

	_, err := svc.Run(context.Background(), []byte("img"))
	require.ErrorIs(t, err, ErrDetectionFailed)
}

func TestCascade_Disabled(t *testing.T) {
	svc := NewCascadeService(&stubDetector{}, nil, cropByX, quietLogger())
	require.False(t, svc.Enabled())

	var nilSvc *CascadeService
	require.False(t, nilSvc.Enabled())

	_, err := svc.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrDetectorNotConfigured)
}
