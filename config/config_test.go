package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"HTTP_ADDR", "TELEGRAM_TOKEN", "DETECTOR_BACKEND", "MODEL_PATH", "MODEL_CLASSES",
	"MODEL_INPUT_SIZE", "CONFIDENCE_THRESHOLD", "IOU_THRESHOLD", "SPOT_MODEL_PATH",
	"SPOT_CLASSES", "CLASSIFIER_MODEL_PATH", "CLASSIFIER_CLASSES", "CLASSIFIER_INPUT_SIZE",
	"INFERENCE_URL", "INFERENCE_API_KEY", "SPOT_URL", "CLASSIFIER_URL",
	"INFERENCE_TIMEOUT_SECONDS", "MAX_UPLOAD_MB", "LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv runs the test in an empty directory so no .env file is picked up.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8501", cfg.HTTPAddr)
	require.Equal(t, BackendLocal, cfg.Backend)
	require.Equal(t, "best.onnx", cfg.Detector.Path)
	require.Len(t, cfg.Detector.Classes, 11)
	require.Equal(t, 640, cfg.Detector.InputSize)
	require.InDelta(t, 0.25, cfg.ConfidenceThreshold, 1e-9)
	require.Equal(t, []string{"spot"}, cfg.Spot.Classes)
	require.Equal(t, 224, cfg.Classifier.InputSize)
	require.Equal(t, 30*time.Second, cfg.InferenceTimeout)
	require.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	require.False(t, cfg.CascadeEnabled())
}

func TestLoad_Remote(t *testing.T) {
	clearEnv(t)
	t.Setenv("DETECTOR_BACKEND", "Remote")
	t.Setenv("INFERENCE_URL", "https://detect.example/tomato/1")
	t.Setenv("INFERENCE_API_KEY", "k")
	t.Setenv("CLASSIFIER_URL", "https://classify.example/tomato/1")
	t.Setenv("INFERENCE_TIMEOUT_SECONDS", "5")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, BackendRemote, cfg.Backend)
	require.Equal(t, "k", cfg.InferenceAPIKey)
	require.Equal(t, 5*time.Second, cfg.InferenceTimeout)
	require.True(t, cfg.CascadeEnabled())
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("DETECTOR_BACKEND", "remote")
	_, err := Load()
	require.ErrorContains(t, err, "INFERENCE_URL")

	t.Setenv("DETECTOR_BACKEND", "magic")
	_, err = Load()
	require.ErrorContains(t, err, "unknown DETECTOR_BACKEND")

	t.Setenv("DETECTOR_BACKEND", "local")
	t.Setenv("CONFIDENCE_THRESHOLD", "1.5")
	_, err = Load()
	require.ErrorContains(t, err, "CONFIDENCE_THRESHOLD")
}

func TestLoad_ClassList(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL_CLASSES", " Healthy, Early Blight ,,Septoria")
	t.Setenv("CLASSIFIER_MODEL_PATH", "cls.onnx")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"Healthy", "Early Blight", "Septoria"}, cfg.Detector.Classes)
	require.Equal(t, cfg.Detector.Classes, cfg.Classifier.Classes)
	require.True(t, cfg.CascadeEnabled())
}

func TestLoad_IgnoresBadNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL_INPUT_SIZE", "big")
	t.Setenv("MAX_UPLOAD_MB", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 640, cfg.Detector.InputSize)
}

func TestLoad_RejectsNonPositiveInputSize(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL_INPUT_SIZE", "0")
	_, err := Load()
	require.ErrorContains(t, err, "MODEL_INPUT_SIZE")

	t.Setenv("MODEL_INPUT_SIZE", "640")
	t.Setenv("CLASSIFIER_MODEL_PATH", "cls.onnx")
	t.Setenv("CLASSIFIER_INPUT_SIZE", "-224")
	_, err = Load()
	require.ErrorContains(t, err, "CLASSIFIER_INPUT_SIZE")

	// remote backends never read the input sizes
	t.Setenv("DETECTOR_BACKEND", "remote")
	t.Setenv("INFERENCE_URL", "https://detect.example/tomato/1")
	_, err = Load()
	require.NoError(t, err)
}
