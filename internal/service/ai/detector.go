package ai

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"time"

	"accidentwatch/internal/config"
	"accidentwatch/internal/dto"
	"accidentwatch/internal/logger"
	"accidentwatch/internal/metrics"
	"accidentwatch/internal/model"
	"accidentwatch/internal/service/annotate"
)

// DetectorService maps model predictions to named detections and annotates frames.
type DetectorService struct {
	model    Model
	classes  []string
	modelErr error
	classErr error
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// NewDetectorService loads the configured model backend and class list.
// Load failures are logged and recorded for Status; the service is always returned.
func NewDetectorService(cfg *config.Config, logger *logger.Logger, m *metrics.Metrics) *DetectorService {
	s := &DetectorService{logger: logger, metrics: m, classes: []string{}}

	if err := s.loadModel(cfg); err != nil {
		s.modelErr = err
		s.logger.Error("Error loading model: %v", err)
	}

	classes, err := LoadClasses(cfg.ClassListPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.classErr = fmt.Errorf("class list file %q not found", cfg.ClassListPath)
		s.logger.Warning("Class list file '%s' not found!", cfg.ClassListPath)
	case err != nil:
		s.classErr = err
		s.logger.Warning("Could not read class list: %v", err)
	default:
		s.classes = classes
		s.logger.Info("Loaded %d classes from %s", len(classes), cfg.ClassListPath)
	}

	return s
}

// NewDetector builds a service around an already loaded model and class list.
func NewDetector(model Model, classes []string, logger *logger.Logger, m *metrics.Metrics) *DetectorService {
	if classes == nil {
		classes = []string{}
	}
	return &DetectorService{model: model, classes: classes, logger: logger, metrics: m}
}

// loadModel initializes the backend selected in the configuration.
func (s *DetectorService) loadModel(cfg *config.Config) error {
	var (
		m   Model
		err error
	)
	switch cfg.ModelBackend {
	case config.BackendRemote:
		m, err = NewRemoteModel(cfg.RemoteDetectorURL)
	case config.BackendONNX:
		m, err = NewNetModel(cfg.ModelPath, cfg.ModelInputSize, cfg.NMSThreshold)
	default:
		err = fmt.Errorf("unknown model backend %q", cfg.ModelBackend)
	}
	if err != nil {
		return err
	}

	s.model = m
	s.logger.Info("Detection model initialized (%s backend)", cfg.ModelBackend)
	return nil
}

// Detect runs the model on frame and returns an annotated copy plus the detections
// whose class index resolves within the class list. Other boxes are dropped.
func (s *DetectorService) Detect(ctx context.Context, frame image.Image, threshold float64) (*image.RGBA, []model.Detection, error) {
	if threshold < 0 || threshold > 1 {
		return nil, nil, ErrInvalidThreshold
	}
	if s.model == nil {
		return nil, nil, ErrModelNotLoaded
	}

	start := time.Now()
	predictions, err := s.model.Predict(ctx, frame, threshold)
	s.metrics.UpdateInferenceLatency(time.Since(start))
	if err != nil {
		s.metrics.DetectErrors.Add(1)
		return nil, nil, fmt.Errorf("predict: %w", err)
	}

	detections := MapPredictions(predictions, s.classes)

	s.metrics.FramesProcessed.Add(1)
	s.metrics.DetectionsKept.Add(uint64(len(detections)))
	s.metrics.DetectionsDropped.Add(uint64(len(predictions) - len(detections)))

	return annotate.Draw(frame, detections), detections, nil
}

// MapPredictions names each prediction from classes, skipping indices outside the list.
func MapPredictions(predictions []Prediction, classes []string) []model.Detection {
	detections := make([]model.Detection, 0, len(predictions))
	for _, p := range predictions {
		if p.ClassIndex < 0 || p.ClassIndex >= len(classes) {
			continue
		}
		detections = append(detections, model.Detection{
			Class:      classes[p.ClassIndex],
			ClassIndex: p.ClassIndex,
			Confidence: p.Confidence,
			Box:        p.Box,
		})
	}
	return detections
}

// Status reports load problems for the UI banners.
func (s *DetectorService) Status() dto.StatusData {
	status := dto.StatusData{
		ModelLoaded: s.model != nil,
		ClassCount:  len(s.classes),
	}
	if s.modelErr != nil {
		status.ModelError = fmt.Sprintf("Error loading model: %v", s.modelErr)
	}
	if s.classErr != nil {
		status.ClassWarning = s.classErr.Error()
	}
	return status
}

// Classes returns the loaded class list.
func (s *DetectorService) Classes() []string {
	return s.classes
}

// Close releases the model.
func (s *DetectorService) Close() error {
	if s.model == nil {
		return nil
	}
	return s.model.Close()
}
