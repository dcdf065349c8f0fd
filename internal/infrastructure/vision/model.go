package vision

import "strconv"

// ModelConfig describes an exported ONNX model and how to read its output.
type ModelConfig struct {
	Path          string
	Classes       []string // class names by index
	InputSize     int      // square network input side
	ConfThreshold float32  // minimum score to keep a detection
	IoUThreshold  float32  // NMS overlap threshold
}

// className resolves a class index through the model's class list.
func (c ModelConfig) className(idx int) string {
	if idx >= 0 && idx < len(c.Classes) {
		return c.Classes[idx]
	}
	return "class_" + strconv.Itoa(idx)
}
