package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"leaf-doctor/internal/domain/catalog"
)

const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Model points at one exported ONNX model.
type Model struct {
	Path      string
	Classes   []string
	InputSize int
}

type Config struct {
	HTTPAddr      string
	TelegramToken string

	Backend             string
	Detector            Model
	ConfidenceThreshold float64
	IoUThreshold        float64
	Spot                Model // cascade stage one; empty Path reuses Detector
	Classifier          Model // cascade stage two; empty Path disables the cascade

	InferenceURL     string
	InferenceAPIKey  string
	SpotURL          string
	ClassifierURL    string
	InferenceTimeout time.Duration

	MaxUploadBytes int64
	LogLevel       string
	LogFormat      string
}

func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	detectorClasses := getEnvAsList("MODEL_CLASSES", catalog.Labels())

	cfg := &Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8501"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),

		Backend: strings.ToLower(getEnv("DETECTOR_BACKEND", BackendLocal)),
		Detector: Model{
			Path:      getEnv("MODEL_PATH", "best.onnx"),
			Classes:   detectorClasses,
			InputSize: getEnvAsInt("MODEL_INPUT_SIZE", 640),
		},
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.25),
		IoUThreshold:        getEnvAsFloat("IOU_THRESHOLD", 0.7),
		Spot: Model{
			Path:      os.Getenv("SPOT_MODEL_PATH"),
			Classes:   getEnvAsList("SPOT_CLASSES", []string{"spot"}),
			InputSize: getEnvAsInt("MODEL_INPUT_SIZE", 640),
		},
		Classifier: Model{
			Path:      os.Getenv("CLASSIFIER_MODEL_PATH"),
			Classes:   getEnvAsList("CLASSIFIER_CLASSES", detectorClasses),
			InputSize: getEnvAsInt("CLASSIFIER_INPUT_SIZE", 224),
		},

		InferenceURL:     os.Getenv("INFERENCE_URL"),
		InferenceAPIKey:  os.Getenv("INFERENCE_API_KEY"),
		SpotURL:          os.Getenv("SPOT_URL"),
		ClassifierURL:    os.Getenv("CLASSIFIER_URL"),
		InferenceTimeout: time.Duration(getEnvAsInt("INFERENCE_TIMEOUT_SECONDS", 30)) * time.Second,

		MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_MB", 10)) << 20,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the backend selection and model settings.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLocal:
		if c.Detector.Path == "" {
			return fmt.Errorf("MODEL_PATH is required for the %s backend", BackendLocal)
		}
		if len(c.Detector.Classes) == 0 {
			return fmt.Errorf("MODEL_CLASSES is required for the %s backend", BackendLocal)
		}
		if c.Detector.InputSize <= 0 {
			return fmt.Errorf("MODEL_INPUT_SIZE must be positive, got %d", c.Detector.InputSize)
		}
		if c.Classifier.Path != "" && c.Classifier.InputSize <= 0 {
			return fmt.Errorf("CLASSIFIER_INPUT_SIZE must be positive, got %d", c.Classifier.InputSize)
		}
	case BackendRemote:
		if c.InferenceURL == "" {
			return fmt.Errorf("INFERENCE_URL is required for the %s backend", BackendRemote)
		}
	default:
		return fmt.Errorf("unknown DETECTOR_BACKEND %q (want %s or %s)", c.Backend, BackendLocal, BackendRemote)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be within [0,1], got %v", c.ConfidenceThreshold)
	}
	return nil
}

// CascadeEnabled reports whether a stage-two classifier is configured.
func (c *Config) CascadeEnabled() bool {
	if c.Backend == BackendRemote {
		return c.ClassifierURL != ""
	}
	return c.Classifier.Path != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, trimming blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
