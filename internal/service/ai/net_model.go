//go:build gocv
// +build gocv

package ai

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// NetModel runs an ONNX export of a YOLOv8 detector through OpenCV DNN.
type NetModel struct {
	net          gocv.Net
	inputSize    int
	nmsThreshold float32
	mu           sync.Mutex
}

// NewNetModel loads the ONNX network at path and selects the CPU target.
func NewNetModel(path string, inputSize int, nmsThreshold float64) (*NetModel, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file not found: %w", err)
	}

	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", path)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	return &NetModel{net: net, inputSize: inputSize, nmsThreshold: float32(nmsThreshold)}, nil
}

// Predict runs one forward pass and returns the boxes surviving non-maximum suppression.
func (m *NetModel) Predict(ctx context.Context, frame image.Image, threshold float64) ([]Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(m.inputSize, m.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	m.mu.Lock()
	m.net.SetInput(blob, "")
	output := m.net.Forward("")
	m.mu.Unlock()
	defer output.Close()

	// [1, 4+classes, candidates]
	dims := output.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read output: %w", err)
	}

	bounds := frame.Bounds()
	scaleX := float64(bounds.Dx()) / float64(m.inputSize)
	scaleY := float64(bounds.Dy()) / float64(m.inputSize)
	candidates := decodeYOLO(data, dims[1], dims[2], threshold, scaleX, scaleY, bounds)
	if len(candidates) == 0 {
		return nil, nil
	}

	boxes := make([]image.Rectangle, len(candidates))
	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		boxes[i] = c.box
		scores[i] = c.score
	}

	keep := gocv.NMSBoxes(boxes, scores, float32(threshold), m.nmsThreshold)
	predictions := make([]Prediction, 0, len(keep))
	for _, idx := range keep {
		c := candidates[idx]
		predictions = append(predictions, Prediction{
			ClassIndex: c.classIndex,
			Confidence: float64(c.score),
			Box:        c.box,
		})
	}
	return predictions, nil
}

// Close releases the network.
func (m *NetModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.net.Close()
}
