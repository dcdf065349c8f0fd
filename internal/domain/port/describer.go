package port

import "leaf-doctor/internal/domain/entity"

// DiseaseDescriber resolves a detected label to reference text.
type DiseaseDescriber interface {
	// Describe never fails; unknown labels get fallback text and known=false.
	Describe(label string) (info entity.DiseaseInfo, known bool)
}
