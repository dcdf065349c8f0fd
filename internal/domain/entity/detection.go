package entity

// BoundingBox is a detection box in source image pixels.
type BoundingBox struct {
	X1 int // left
	Y1 int // top
	X2 int // right, exclusive
	Y2 int // bottom, exclusive
}

// Width returns the box width in pixels.
func (b BoundingBox) Width() int {
	return b.X2 - b.X1
}

// Height returns the box height in pixels.
func (b BoundingBox) Height() int {
	return b.Y2 - b.Y1
}

// Center returns the coordinates of the box center.
func (b BoundingBox) Center() (x, y int) {
	return b.X1 + b.Width()/2, b.Y1 + b.Height()/2
}

// Empty reports whether the box has no area.
func (b BoundingBox) Empty() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

// DetectionResult is one labeled detection returned by a backend.
type DetectionResult struct {
	Label      string       `json:"label"`
	Confidence float64      `json:"confidence"`
	Box        *BoundingBox `json:"box,omitempty"`
}

// HasBox reports whether the detection carries a usable box.
func (d DetectionResult) HasBox() bool {
	return d.Box != nil && !d.Box.Empty()
}
