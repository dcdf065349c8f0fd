//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"leaf-doctor/internal/domain/entity"
)

// YOLODetector runs an ultralytics YOLOv8 detection export through the
// OpenCV DNN module. The net is loaded once and shared; forward passes are
// serialized.
type YOLODetector struct {
	cfg ModelConfig
	net gocv.Net
	mu  sync.Mutex
}

// NewYOLODetector loads the model. Any error here is fatal for the caller.
func NewYOLODetector(cfg ModelConfig) (*YOLODetector, error) {
	net, err := loadNet(cfg.Path)
	if err != nil {
		return nil, err
	}
	return &YOLODetector{cfg: cfg, net: net}, nil
}

// Detect decodes imageData and returns detections above the threshold after NMS.
func (d *YOLODetector) Detect(ctx context.Context, imageData []byte) ([]entity.DetectionResult, error) {
	mat, err := decodeToMat(imageData)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	size := image.Pt(d.cfg.InputSize, d.cfg.InputSize)
	blob := gocv.BlobFromImage(mat, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	rows, err := d.forward(blob)
	if err != nil {
		return nil, err
	}

	xScale := float32(mat.Cols()) / float32(d.cfg.InputSize)
	yScale := float32(mat.Rows()) / float32(d.cfg.InputSize)
	bounds := image.Rect(0, 0, mat.Cols(), mat.Rows())

	cands := decodeYOLOv8(rows, xScale, yScale, bounds, d.cfg.ConfThreshold)
	if len(cands.Boxes) == 0 {
		return []entity.DetectionResult{}, nil
	}

	keep := gocv.NMSBoxes(cands.Boxes, cands.Scores, d.cfg.ConfThreshold, d.cfg.IoUThreshold)
	results := make([]entity.DetectionResult, 0, len(keep))
	for _, k := range keep {
		r := cands.Boxes[k]
		results = append(results, entity.DetectionResult{
			Label:      d.cfg.className(cands.Classes[k]),
			Confidence: float64(cands.Scores[k]),
			Box:        &entity.BoundingBox{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y},
		})
	}

	return results, nil
}

// forward runs the net and copies the [1, 4+nc, N] output into one row per
// candidate. The output Mat aliases the net's own buffer, so it is read
// before the lock is released.
func (d *YOLODetector) forward(blob gocv.Mat) ([][]float32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	dims := output.Size()
	if len(dims) != 3 || dims[1] <= 4 {
		return nil, fmt.Errorf("unexpected detector output shape %v", dims)
	}
	attrs, candidates := dims[1], dims[2]

	flat := output.Reshape(1, attrs)
	defer flat.Close()
	transposed := gocv.NewMat()
	defer transposed.Close()
	gocv.Transpose(flat, &transposed)

	rows := make([][]float32, candidates)
	for i := range rows {
		row := make([]float32, attrs)
		for j := range row {
			row[j] = transposed.GetFloatAt(i, j)
		}
		rows[i] = row
	}
	return rows, nil
}

// Close releases the network.
func (d *YOLODetector) Close() error {
	return d.net.Close()
}

// YOLOClassifier runs a YOLOv8 classification export.
type YOLOClassifier struct {
	cfg ModelConfig
	net gocv.Net
	mu  sync.Mutex
}

// NewYOLOClassifier loads the model. Any error here is fatal for the caller.
func NewYOLOClassifier(cfg ModelConfig) (*YOLOClassifier, error) {
	net, err := loadNet(cfg.Path)
	if err != nil {
		return nil, err
	}
	return &YOLOClassifier{cfg: cfg, net: net}, nil
}

// Classify returns the top class of the image.
func (c *YOLOClassifier) Classify(ctx context.Context, imageData []byte) (string, float64, error) {
	mat, err := decodeToMat(imageData)
	if err != nil {
		return "", 0, err
	}
	defer mat.Close()

	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	size := image.Pt(c.cfg.InputSize, c.cfg.InputSize)
	blob := gocv.BlobFromImage(mat, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	probs := c.forward(blob)
	best, score := topScore(probs)
	if best < 0 {
		return "", 0, errors.New("classifier returned no scores")
	}

	return c.cfg.className(best), float64(score), nil
}

// forward runs the net and copies the class scores out of its output buffer.
func (c *YOLOClassifier) forward(blob gocv.Mat) []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.net.SetInput(blob, "")
	output := c.net.Forward("")
	defer output.Close()

	flat := output.Reshape(1, 1)
	defer flat.Close()

	probs := make([]float32, flat.Cols())
	for i := range probs {
		probs[i] = flat.GetFloatAt(0, i)
	}
	return probs
}

// Close releases the network.
func (c *YOLOClassifier) Close() error {
	return c.net.Close()
}

func loadNet(path string) (gocv.Net, error) {
	if _, err := os.Stat(path); err != nil {
		return gocv.Net{}, fmt.Errorf("model file: %w", err)
	}

	net := gocv.ReadNet(path, "")
	if net.Empty() {
		return gocv.Net{}, fmt.Errorf("failed to load network from %s", path)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return gocv.Net{}, fmt.Errorf("set backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return gocv.Net{}, fmt.Errorf("set target: %w", err)
	}
	return net, nil
}

// decodeToMat turns encoded image bytes into a BGR gocv.Mat.
func decodeToMat(imageData []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	if !mat.Empty() {
		mat.Close()
	}
	return gocv.NewMat(), errors.New("failed to decode image")
}
