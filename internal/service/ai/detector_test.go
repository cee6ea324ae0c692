package ai

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"accidentwatch/internal/config"
	"accidentwatch/internal/logger"
	"accidentwatch/internal/metrics"
)

type fakeModel struct {
	predictions   []Prediction
	err           error
	lastThreshold float64
	calls         int
	closed        bool
}

func (f *fakeModel) Predict(ctx context.Context, frame image.Image, threshold float64) ([]Prediction, error) {
	f.calls++
	f.lastThreshold = threshold
	return f.predictions, f.err
}

func (f *fakeModel) Close() error {
	f.closed = true
	return nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&config.Config{LogDirectory: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l
}

func testFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func pred(class int, conf float64) Prediction {
	return Prediction{ClassIndex: class, Confidence: conf, Box: image.Rect(5, 5, 30, 30)}
}

func TestDetect_KeepsOnlyInRangeClasses(t *testing.T) {
	m := &fakeModel{predictions: []Prediction{pred(-1, 0.9), pred(0, 0.8), pred(1, 0.7), pred(2, 0.6), pred(5, 0.5)}}
	met := metrics.New()
	d := NewDetector(m, []string{"accident", "vehicle"}, newTestLogger(t), met)

	_, detections, err := d.Detect(context.Background(), testFrame(), 0.5)
	require.NoError(t, err)
	require.Len(t, detections, 2)
	require.Equal(t, "accident", detections[0].Class)
	require.Equal(t, 0.8, detections[0].Confidence)
	require.Equal(t, "vehicle", detections[1].Class)
	require.Equal(t, [4]int{5, 5, 30, 30}, detections[1].BBox())

	require.EqualValues(t, 2, met.DetectionsKept.Load())
	require.EqualValues(t, 3, met.DetectionsDropped.Load())
	require.EqualValues(t, 1, met.FramesProcessed.Load())
}

func TestDetect_RecordCountMatchesInRangeBoxes(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	classes := []string{"a", "b", "c"}
	d := NewDetector(&fakeModel{}, classes, newTestLogger(t), metrics.New())

	for i := 0; i < 50; i++ {
		n := r.Intn(20)
		preds := make([]Prediction, n)
		inRange := 0
		for j := range preds {
			idx := r.Intn(8) - 2
			if idx >= 0 && idx < len(classes) {
				inRange++
			}
			preds[j] = pred(idx, r.Float64())
		}
		d.model = &fakeModel{predictions: preds}

		_, detections, err := d.Detect(context.Background(), testFrame(), r.Float64())
		require.NoError(t, err)
		require.Len(t, detections, inRange)
	}
}

func TestDetect_EmptyClassListReturnsNothing(t *testing.T) {
	m := &fakeModel{predictions: []Prediction{pred(0, 0.99), pred(1, 0.9)}}
	d := NewDetector(m, nil, newTestLogger(t), metrics.New())

	for _, threshold := range []float64{0, 0.25, 1} {
		_, detections, err := d.Detect(context.Background(), testFrame(), threshold)
		require.NoError(t, err)
		require.Empty(t, detections)
	}
}

func TestDetect_PassesThresholdToModel(t *testing.T) {
	m := &fakeModel{}
	d := NewDetector(m, []string{"accident"}, newTestLogger(t), metrics.New())

	_, _, err := d.Detect(context.Background(), testFrame(), 0.35)
	require.NoError(t, err)
	require.Equal(t, 0.35, m.lastThreshold)
}

func TestDetect_InvalidThreshold(t *testing.T) {
	m := &fakeModel{}
	d := NewDetector(m, []string{"accident"}, newTestLogger(t), metrics.New())

	for _, threshold := range []float64{-0.01, 1.01} {
		_, _, err := d.Detect(context.Background(), testFrame(), threshold)
		require.ErrorIs(t, err, ErrInvalidThreshold)
	}
	require.Zero(t, m.calls)
}

func TestDetect_ModelNotLoaded(t *testing.T) {
	d := NewDetector(nil, []string{"accident"}, newTestLogger(t), metrics.New())

	_, _, err := d.Detect(context.Background(), testFrame(), 0.5)
	require.ErrorIs(t, err, ErrModelNotLoaded)
}

func TestDetect_ModelErrorIsWrapped(t *testing.T) {
	boom := errors.New("inference failed")
	met := metrics.New()
	d := NewDetector(&fakeModel{err: boom}, []string{"accident"}, newTestLogger(t), met)

	_, _, err := d.Detect(context.Background(), testFrame(), 0.5)
	require.ErrorIs(t, err, boom)
	require.EqualValues(t, 1, met.DetectErrors.Load())
}

func TestDetect_AnnotatesCopy(t *testing.T) {
	frame := testFrame()
	d := NewDetector(&fakeModel{predictions: []Prediction{pred(0, 0.9)}}, []string{"accident"}, newTestLogger(t), metrics.New())

	annotated, _, err := d.Detect(context.Background(), frame, 0.5)
	require.NoError(t, err)
	require.Equal(t, color.RGBA{G: 255, A: 255}, annotated.RGBAAt(5, 20))
	require.Equal(t, color.RGBA{A: 255}, frame.RGBAAt(5, 20))
}

func TestNewDetectorService_LoadFailures(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		ModelBackend:  config.BackendONNX,
		ModelPath:     filepath.Join(dir, "missing.onnx"),
		ClassListPath: filepath.Join(dir, "missing.txt"),
	}

	d := NewDetectorService(cfg, newTestLogger(t), metrics.New())
	status := d.Status()

	require.False(t, status.ModelLoaded)
	require.Contains(t, status.ModelError, "Error loading model")
	require.Contains(t, status.ClassWarning, "not found")
	require.Zero(t, status.ClassCount)

	_, _, err := d.Detect(context.Background(), testFrame(), 0.5)
	require.ErrorIs(t, err, ErrModelNotLoaded)
	require.NoError(t, d.Close())
}

func TestNewDetectorService_UnknownBackend(t *testing.T) {
	cfg := &config.Config{
		ModelBackend:  "tensorrt",
		ClassListPath: writeClassFile(t, "accident\n"),
	}

	d := NewDetectorService(cfg, newTestLogger(t), metrics.New())
	status := d.Status()
	require.False(t, status.ModelLoaded)
	require.Contains(t, status.ModelError, "unknown model backend")
	require.Equal(t, 1, status.ClassCount)
	require.Empty(t, status.ClassWarning)
	require.Equal(t, []string{"accident"}, d.Classes())
}

func TestDetectorService_Close(t *testing.T) {
	m := &fakeModel{}
	d := NewDetector(m, nil, newTestLogger(t), metrics.New())
	require.NoError(t, d.Close())
	require.True(t, m.closed)
}
