package container

import (
	"github.com/sirupsen/logrus"

	app "leaf-doctor/internal/application"
	"leaf-doctor/internal/domain/catalog"
	"leaf-doctor/internal/domain/port"
	"leaf-doctor/internal/infrastructure/vision"
)

// Backends are the inference collaborators built once at startup.
type Backends struct {
	Detector   port.Detector
	Spots      port.Detector   // cascade stage one; nil reuses Detector
	Classifier port.Classifier // cascade stage two; nil disables the cascade
}

type Container struct {
	UserService      *app.UserService
	DiagnosisService *app.DiagnosisService
	CascadeService   *app.CascadeService
}

func New(userRepo port.UserRepository, backends Backends, log logrus.FieldLogger) *Container {
	userService := app.NewUserService(userRepo)
	diagnosisService := app.NewDiagnosisService(backends.Detector, catalog.Describer{}, vision.NewBoxAnnotator(), log)

	var cascadeService *app.CascadeService
	if backends.Classifier != nil {
		spots := backends.Spots
		if spots == nil {
			spots = backends.Detector
		}
		cascadeService = app.NewCascadeService(spots, backends.Classifier, vision.CropJPEG, log)
	}

	return &Container{
		UserService:      userService,
		DiagnosisService: diagnosisService,
		CascadeService:   cascadeService,
	}
}
