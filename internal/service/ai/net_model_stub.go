//go:build !gocv
// +build !gocv

package ai

import (
	"context"
	"errors"
	"image"
)

var errNoGoCV = errors.New("gocv build tag is not enabled")

// NetModel is a placeholder used when the binary is built without OpenCV.
type NetModel struct{}

// NewNetModel always fails without the gocv build tag.
func NewNetModel(path string, inputSize int, nmsThreshold float64) (*NetModel, error) {
	_ = path
	_ = inputSize
	_ = nmsThreshold
	return nil, errNoGoCV
}

// Predict returns an error if the build lacks the gocv tag.
func (m *NetModel) Predict(ctx context.Context, frame image.Image, threshold float64) ([]Prediction, error) {
	return nil, errNoGoCV
}

// Close is a no-op.
func (m *NetModel) Close() error {
	return nil
}
