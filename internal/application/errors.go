package app

import "errors"

var (
	// ErrDetectorNotConfigured is returned when no backend was injected.
	ErrDetectorNotConfigured = errors.New("detector is not configured")
	// ErrDetectionFailed wraps any backend failure. It is recoverable.
	ErrDetectionFailed = errors.New("detection failed")
)
