package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"leaf-doctor/internal/domain/entity"
	"leaf-doctor/internal/domain/port"
)

// DiagnosisService runs detection on an upload and joins the labels
// against the disease reference table.
type DiagnosisService struct {
	detector  port.Detector
	describer port.DiseaseDescriber
	annotator port.Annotator
	log       logrus.FieldLogger
}

// NewDiagnosisService creates the service. annotator may be nil.
func NewDiagnosisService(detector port.Detector, describer port.DiseaseDescriber, annotator port.Annotator, log logrus.FieldLogger) *DiagnosisService {
	return &DiagnosisService{
		detector:  detector,
		describer: describer,
		annotator: annotator,
		log:       log,
	}
}

// Diagnose detects diseases on photo. Backend failures are wrapped in
// ErrDetectionFailed and no partial result is returned.
func (s *DiagnosisService) Diagnose(ctx context.Context, photo []byte) (*entity.Diagnosis, error) {
	if s.detector == nil {
		return nil, ErrDetectorNotConfigured
	}

	detections, err := s.detector.Detect(ctx, photo)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetectionFailed, err)
	}

	out := &entity.Diagnosis{
		Detections: detections,
		Findings:   s.findings(detections),
	}

	if s.annotator != nil && anyBox(detections) {
		annotated, err := s.annotator.Annotate(photo, detections)
		if err != nil {
			s.log.WithError(err).Warn("annotate image")
		} else {
			out.Annotated = annotated
		}
	}

	return out, nil
}

// findings builds one block per distinct label, in first-seen order.
func (s *DiagnosisService) findings(detections []entity.DetectionResult) []entity.Finding {
	findings := make([]entity.Finding, 0, len(detections))
	seen := make(map[string]int, len(detections))

	for _, d := range detections {
		if i, ok := seen[d.Label]; ok {
			findings[i].Count++
			if d.Confidence > findings[i].MaxConfidence {
				findings[i].MaxConfidence = d.Confidence
			}
			continue
		}

		info, known := s.describer.Describe(d.Label)
		if !known {
			s.log.WithField("label", d.Label).Warn("no reference entry for detected label")
		}
		seen[d.Label] = len(findings)
		findings = append(findings, entity.Finding{
			DiseaseInfo:   info,
			Known:         known,
			Count:         1,
			MaxConfidence: d.Confidence,
		})
	}

	return findings
}

func anyBox(detections []entity.DetectionResult) bool {
	for _, d := range detections {
		if d.HasBox() {
			return true
		}
	}
	return false
}
