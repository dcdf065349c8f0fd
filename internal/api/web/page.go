package web

import (
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"

	"leaf-doctor/internal/domain/entity"
)

//go:embed templates/index.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

type pageData struct {
	Classes        []string
	CascadeEnabled bool

	Error      string
	Uploaded   bool
	Filename   string
	Original   template.URL
	Annotated  template.URL
	Detections []entity.DetectionResult
	Findings   []entity.Finding
	Crops      []string
}

func dataURI(contentType string, data []byte) template.URL {
	if len(data) == 0 {
		return ""
	}
	return template.URL("data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data))
}

// cropLine renders one cascade result.
func cropLine(c entity.CropResult) string {
	if c.Failed() {
		return fmt.Sprintf("Spot %d: could not be classified", c.Index+1)
	}
	return fmt.Sprintf("Spot %d: %s (%.2f)", c.Index+1, c.Label, c.Confidence)
}
