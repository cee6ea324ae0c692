package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"accidentwatch/internal/config"
	"accidentwatch/internal/dto"
	"accidentwatch/internal/logger"
	"accidentwatch/internal/metrics"
	"accidentwatch/internal/model"
	"accidentwatch/internal/service/ai"
	"accidentwatch/internal/service/capture"
	"accidentwatch/internal/service/session"
)

var (
	// ErrCameraRunning is returned when a session already has a live camera loop.
	ErrCameraRunning = errors.New("camera is already running")
	// ErrCameraNotRunning is returned when stopping a session without a camera loop.
	ErrCameraNotRunning = errors.New("camera is not running")
)

// CameraFailureMessage is sent to viewers when a frame cannot be read.
const CameraFailureMessage = "Failed to access camera"

// Detector runs the model on one frame.
type Detector interface {
	Detect(ctx context.Context, frame image.Image, threshold float64) (*image.RGBA, []model.Detection, error)
	Status() dto.StatusData
}

// EvidenceWriter persists frames with detections.
type EvidenceWriter interface {
	Save(frame image.Image, detections []model.Detection, location string) (string, error)
}

// Broadcaster delivers messages to the viewers of a session.
type Broadcaster interface {
	Send(session string, v interface{}) error
}

type cameraRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager coordinates detection for uploads and live camera loops.
type Manager struct {
	detector Detector
	evidence EvidenceWriter
	hub      Broadcaster
	logger   *logger.Logger
	metrics  *metrics.Metrics

	openCamera capture.CameraOpener
	openVideo  capture.VideoOpener
	now        func() time.Time

	cameraDevice   int
	frameInterval  time.Duration
	sampleInterval int

	cameras map[string]*cameraRun
	mu      sync.Mutex
	wg      sync.WaitGroup
}

// NewManager wires the detection pipeline. Frames come from OpenCV capture by default.
func NewManager(cfg *config.Config, detector Detector, evidence EvidenceWriter, hub Broadcaster, logger *logger.Logger, m *metrics.Metrics) *Manager {
	sampleInterval := cfg.VideoSampleInterval
	if sampleInterval < 1 {
		sampleInterval = 1
	}
	return &Manager{
		detector:       detector,
		evidence:       evidence,
		hub:            hub,
		logger:         logger,
		metrics:        m,
		openCamera:     capture.OpenCamera,
		openVideo:      capture.OpenVideo,
		now:            time.Now,
		cameraDevice:   cfg.CameraDevice,
		frameInterval:  cfg.CameraFrameInterval,
		sampleInterval: sampleInterval,
		cameras:        make(map[string]*cameraRun),
	}
}

// SetCameraOpener replaces the function used to open capture devices.
func (m *Manager) SetCameraOpener(open capture.CameraOpener) {
	m.openCamera = open
}

// SetVideoOpener replaces the function used to open uploaded videos.
func (m *Manager) SetVideoOpener(open capture.VideoOpener) {
	m.openVideo = open
}

// SetClock replaces the time source used for log timestamps.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// Status reports detector state together with the session's camera state.
func (m *Manager) Status(sessionID string) dto.StatusData {
	status := m.detector.Status()
	status.CameraRunning = m.IsCameraRunning(sessionID)
	return status
}

// ProcessImage detects objects in an uploaded image. Detections are logged to
// the session and saved as evidence when enabled.
func (m *Manager) ProcessImage(ctx context.Context, sess *session.Session, img image.Image) (dto.ImageResult, error) {
	settings := sess.Settings()

	annotated, detections, err := m.detector.Detect(ctx, img, settings.Confidence)
	if err != nil {
		return dto.ImageResult{}, err
	}
	m.metrics.ImagesAnalyzed.Add(1)

	encoded, err := EncodeJPEG(annotated)
	if err != nil {
		return dto.ImageResult{}, err
	}
	result := dto.ImageResult{
		Image:      encoded,
		Detections: dto.ToDetectionInfos(detections),
	}

	if len(detections) > 0 {
		result.Evidence = m.record(sess, settings, img, detections)
	}
	return result, nil
}

// record logs detections to the session and saves evidence when enabled.
// It returns the evidence file name, if any.
func (m *Manager) record(sess *session.Session, settings session.Settings, frame image.Image, detections []model.Detection) string {
	sess.RecordDetections(m.now(), settings.Location, detections)

	if !settings.SaveEvidence || m.evidence == nil {
		return ""
	}
	filename, err := m.evidence.Save(frame, detections, settings.Location)
	if err != nil {
		m.logger.Error("Error saving evidence: %v", err)
		return ""
	}
	return filename
}

// StartCamera opens the capture device and starts a detection loop for the session.
func (m *Manager) StartCamera(sess *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.cameras[sess.ID]; ok {
		return ErrCameraRunning
	}

	src, err := m.openCamera(m.cameraDevice)
	if err != nil {
		m.metrics.CameraErrors.Add(1)
		return fmt.Errorf("%s: %w", CameraFailureMessage, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &cameraRun{cancel: cancel, done: make(chan struct{})}
	m.cameras[sess.ID] = run
	m.metrics.ActiveCameras.Add(1)

	m.wg.Add(1)
	go m.cameraLoop(ctx, sess, src, run)

	m.logger.Info("Camera %d started for session %s", m.cameraDevice, shortID(sess.ID))
	return nil
}

// StopCamera cancels the session's camera loop and waits for it to release the device.
func (m *Manager) StopCamera(sessionID string) error {
	m.mu.Lock()
	run, ok := m.cameras[sessionID]
	m.mu.Unlock()

	if !ok {
		return ErrCameraNotRunning
	}
	run.cancel()
	<-run.done
	return nil
}

// IsCameraRunning reports whether the session has a live camera loop.
func (m *Manager) IsCameraRunning(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.cameras[sessionID]
	return ok
}

// Shutdown stops every camera loop and waits for them to exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	for _, run := range m.cameras {
		run.cancel()
	}
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("All camera loops stopped")
}

// cameraLoop reads, detects and streams frames until ctx is cancelled or a read fails.
// The capture device is always released on exit.
func (m *Manager) cameraLoop(ctx context.Context, sess *session.Session, src capture.FrameSource, run *cameraRun) {
	defer m.wg.Done()
	defer func() {
		if err := src.Close(); err != nil {
			m.logger.Error("Error releasing camera: %v", err)
		}

		m.mu.Lock()
		delete(m.cameras, sess.ID)
		m.mu.Unlock()
		m.metrics.ActiveCameras.Add(-1)

		m.send(sess.ID, dto.ViewerMessage{Type: dto.MessageStopped})
		close(run.done)
		m.logger.Info("Camera stopped for session %s", shortID(sess.ID))
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		frame, err := src.Read()
		if err != nil {
			m.metrics.CameraErrors.Add(1)
			m.logger.Error("Camera read failed: %v", err)
			m.send(sess.ID, dto.ViewerMessage{Type: dto.MessageError, Message: CameraFailureMessage})
			return
		}

		if !m.processFrame(ctx, sess, frame) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.frameInterval):
		}
	}
}

// processFrame handles one live frame and reports whether the loop should continue.
func (m *Manager) processFrame(ctx context.Context, sess *session.Session, frame image.Image) bool {
	settings := sess.Settings()

	annotated, detections, err := m.detector.Detect(ctx, frame, settings.Confidence)
	switch {
	case ctx.Err() != nil:
		return false
	case errors.Is(err, ai.ErrModelNotLoaded):
		m.send(sess.ID, dto.ViewerMessage{Type: dto.MessageError, Message: err.Error()})
		return false
	case err != nil:
		m.logger.Warning("Detection failed: %v", err)
		return true
	}

	encoded, err := EncodeJPEG(annotated)
	if err != nil {
		m.logger.Error("Error encoding frame: %v", err)
		return true
	}
	m.send(sess.ID, dto.ViewerMessage{
		Type:       dto.MessageFrame,
		Image:      encoded,
		Detections: dto.ToDetectionInfos(detections),
	})

	if len(detections) > 0 {
		msg := dto.ViewerMessage{Type: dto.MessageAlert, Message: "Accident detected!"}
		if filename := m.record(sess, settings, frame, detections); filename != "" {
			msg.Evidence = filename
			msg.Message = "Accident detected! Evidence saved: " + filename
		}
		m.send(sess.ID, msg)
	}
	return true
}

// AnalyzeVideo reads every frame of the video at path and runs detection on
// every sampled frame. Frame numbers start at 1. Results are not logged to the session.
// Progress is pushed to the session's viewers as frames are read.
func (m *Manager) AnalyzeVideo(ctx context.Context, sess *session.Session, path string) (dto.VideoReport, error) {
	report := dto.VideoReport{
		SampleInterval:  m.sampleInterval,
		DetectionFrames: []dto.FrameDetections{},
	}

	src, err := m.openVideo(path)
	if err != nil {
		return report, err
	}
	defer src.Close()

	total := src.FrameCount()
	threshold := sess.Settings().Confidence
	lastPercent := 0

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		frame, err := src.Read()
		if errors.Is(err, capture.ErrEndOfStream) {
			break
		}
		if err != nil {
			return report, fmt.Errorf("failed to read frame %d: %w", report.FramesRead+1, err)
		}
		report.FramesRead++

		// Progress follows every frame read, at most one message per percent.
		if total > 0 {
			if percent := min(report.FramesRead*100/total, 100); percent > lastPercent {
				lastPercent = percent
				m.send(sess.ID, dto.ViewerMessage{
					Type:     dto.MessageProgress,
					Progress: float64(percent) / 100,
				})
			}
		}

		if report.FramesRead%m.sampleInterval != 0 {
			continue
		}

		_, detections, err := m.detector.Detect(ctx, frame, threshold)
		if err != nil {
			return report, err
		}
		if len(detections) > 0 {
			report.DetectionFrames = append(report.DetectionFrames, dto.FrameDetections{
				Frame:      report.FramesRead,
				Count:      len(detections),
				Detections: dto.ToDetectionInfos(detections),
			})
		}
	}

	m.metrics.VideosAnalyzed.Add(1)
	m.send(sess.ID, dto.ViewerMessage{Type: dto.MessageProgress, Progress: 1})
	m.logger.Info("Video analysis complete: %d frames, detections in %d", report.FramesRead, len(report.DetectionFrames))
	return report, nil
}

func (m *Manager) send(sessionID string, msg dto.ViewerMessage) {
	if m.hub == nil {
		return
	}
	if err := m.hub.Send(sessionID, msg); err != nil {
		m.logger.Error("Error sending %s message: %v", msg.Type, err)
	}
}

// EncodeJPEG returns img as a base64 JPEG string.
func EncodeJPEG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return "", fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
