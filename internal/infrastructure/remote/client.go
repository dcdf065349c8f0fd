// Package remote talks to a hosted inference API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/google/uuid"

	"leaf-doctor/internal/domain/entity"
	"leaf-doctor/internal/infrastructure/vision"
)

// ErrNoPrediction is returned by Classify when the API returned nothing.
var ErrNoPrediction = errors.New("inference api returned no predictions")

// StatusError is a non-200 answer from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("inference api: status %d: %s", e.Code, e.Body)
}

type prediction struct {
	Class      string   `json:"class"`
	Confidence float64  `json:"confidence"`
	X          *float64 `json:"x,omitempty"` // box center
	Y          *float64 `json:"y,omitempty"`
	Width      *float64 `json:"width,omitempty"`
	Height     *float64 `json:"height,omitempty"`
}

type response struct {
	Predictions []prediction `json:"predictions"`
}

// Client posts images to one endpoint. It serves both as a detector and
// as a classifier.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
}

// NewClient creates a client for url with the given credential and timeout.
func NewClient(url, apiKey string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
}

// Detect implements port.Detector.
func (c *Client) Detect(ctx context.Context, imageData []byte) ([]entity.DetectionResult, error) {
	preds, err := c.predict(ctx, imageData)
	if err != nil {
		return nil, err
	}

	out := make([]entity.DetectionResult, 0, len(preds))
	for _, p := range preds {
		out = append(out, entity.DetectionResult{
			Label:      p.Class,
			Confidence: p.Confidence,
			Box:        p.box(),
		})
	}
	return out, nil
}

// Classify implements port.Classifier with the top scoring prediction.
func (c *Client) Classify(ctx context.Context, imageData []byte) (string, float64, error) {
	preds, err := c.predict(ctx, imageData)
	if err != nil {
		return "", 0, err
	}
	if len(preds) == 0 {
		return "", 0, ErrNoPrediction
	}

	best := preds[0]
	for _, p := range preds[1:] {
		if p.Confidence > best.Confidence {
			best = p
		}
	}
	return best.Class, best.Confidence, nil
}

func (c *Client) predict(ctx context.Context, imageData []byte) ([]prediction, error) {
	jpg, err := vision.ToJPEG(imageData)
	if err != nil {
		return nil, err
	}

	body, contentType, err := multipartBody(jpg)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(data)}
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return parsed.Predictions, nil
}

func multipartBody(jpg []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s.jpg"`, uuid.NewString()))
	h.Set("Content-Type", vision.TypeJPEG)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(jpg); err != nil {
		return nil, "", fmt.Errorf("write form part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func (p prediction) box() *entity.BoundingBox {
	if p.X == nil || p.Y == nil || p.Width == nil || p.Height == nil {
		return nil
	}
	halfW, halfH := *p.Width/2, *p.Height/2
	return &entity.BoundingBox{
		X1: int(*p.X - halfW),
		Y1: int(*p.Y - halfH),
		X2: int(*p.X + halfW),
		Y2: int(*p.Y + halfH),
	}
}
