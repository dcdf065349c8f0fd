package entity

// DiseaseInfo is one entry of the disease reference table.
type DiseaseInfo struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	Remedy      string `json:"remedy"`
}

// Finding is the rendered block for one distinct detected label.
type Finding struct {
	DiseaseInfo
	Known         bool    `json:"known"`
	Count         int     `json:"count"`          // detections carrying the label
	MaxConfidence float64 `json:"max_confidence"` // best score among them
}

// Diagnosis is the outcome of one upload.
type Diagnosis struct {
	Detections []DetectionResult `json:"detections"`
	Findings   []Finding         `json:"findings"`
	Annotated  []byte            `json:"-"` // JPEG with boxes drawn, nil when nothing to draw
}

// CropResult is the stage-two classification of one cropped region.
type CropResult struct {
	Index      int         `json:"index"`
	Box        BoundingBox `json:"box"`
	Label      string      `json:"label,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
	Err        error       `json:"-"`
}

// Failed reports whether the crop could not be classified.
func (c CropResult) Failed() bool {
	return c.Err != nil
}
