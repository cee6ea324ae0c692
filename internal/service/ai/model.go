package ai

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrModelNotLoaded is returned by Detect when the model failed to load at startup.
	ErrModelNotLoaded = errors.New("detection model not loaded")
	// ErrInvalidThreshold is returned for confidence thresholds outside [0, 1].
	ErrInvalidThreshold = errors.New("confidence threshold must be between 0 and 1")
)

// Prediction is one raw box reported by a model, before class-name mapping.
type Prediction struct {
	ClassIndex int             `json:"class_id"`
	Confidence float64         `json:"confidence"`
	Box        image.Rectangle `json:"-"`
}

// Model is a pretrained object detector. Predict reports every box scoring at least threshold.
type Model interface {
	Predict(ctx context.Context, frame image.Image, threshold float64) ([]Prediction, error)
	Close() error
}
