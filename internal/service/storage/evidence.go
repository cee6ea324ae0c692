package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"accidentwatch/internal/config"
	"accidentwatch/internal/logger"
	"accidentwatch/internal/metrics"
	"accidentwatch/internal/model"
	"accidentwatch/internal/repository"
)

const (
	// EvidenceTimeLayout is the timestamp part of an evidence filename.
	EvidenceTimeLayout = "20060102_150405"
	evidenceExt        = ".jpg"
	jpegQuality        = 95
)

// ErrInvalidFilename is returned for names that are not plain evidence file names.
var ErrInvalidFilename = errors.New("invalid evidence filename")

// EvidenceService writes evidence frames to disk and indexes them in the repository.
type EvidenceService struct {
	dir     string
	prefix  string
	now     func() time.Time
	repo    repository.EvidenceRepository
	logger  *logger.Logger
	metrics *metrics.Metrics
	mu      sync.Mutex
}

// NewEvidenceService creates the evidence directory. repo may be nil, in which
// case frames are only written to disk.
func NewEvidenceService(cfg *config.Config, logger *logger.Logger, repo repository.EvidenceRepository, m *metrics.Metrics) (*EvidenceService, error) {
	if err := os.MkdirAll(cfg.EvidenceDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create evidence directory: %w", err)
	}
	return &EvidenceService{
		dir:     cfg.EvidenceDirectory,
		prefix:  cfg.EvidencePrefix,
		now:     time.Now,
		repo:    repo,
		logger:  logger,
		metrics: m,
	}, nil
}

// SetClock replaces the time source used for filenames.
func (s *EvidenceService) SetClock(now func() time.Time) {
	s.now = now
}

// Dir returns the evidence directory.
func (s *EvidenceService) Dir() string {
	return s.dir
}

// Filename returns the evidence file name for a save at t. Saves within the
// same second share a name.
func (s *EvidenceService) Filename(t time.Time) string {
	return s.prefix + "_" + t.Format(EvidenceTimeLayout) + evidenceExt
}

// Save writes frame as JPEG and records the detections. It returns the file name.
// A save within the same second as a previous one overwrites it.
func (s *EvidenceService) Save(frame image.Image, detections []model.Detection, location string) (string, error) {
	ts := s.now()
	filename := s.Filename(ts)
	fullpath := filepath.Join(s.dir, filename)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: jpegQuality}); err != nil {
		s.metrics.EvidenceErrors.Add(1)
		return "", fmt.Errorf("failed to encode evidence: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(fullpath, buf.Bytes(), 0644); err != nil {
		s.metrics.EvidenceErrors.Add(1)
		return "", fmt.Errorf("failed to write evidence %s: %w", filename, err)
	}

	if s.repo != nil {
		ev := &model.Evidence{
			Filename:  filename,
			Location:  location,
			Timestamp: ts.Truncate(time.Second),
			FilePath:  fullpath,
			FileSize:  int64(buf.Len()),
		}
		if _, err := s.repo.Save(ev, toEvidenceDetections(detections)); err != nil {
			// The file is on disk; a later reindex picks it up.
			s.logger.Error("Error saving evidence %s to database: %v", filename, err)
		}
	}

	s.metrics.EvidenceSaved.Add(1)
	s.logger.Info("Evidence saved: %s (%d detections)", filename, len(detections))
	return filename, nil
}

// Path resolves a plain evidence file name inside the evidence directory.
func (s *EvidenceService) Path(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", ErrInvalidFilename
	}
	return filepath.Join(s.dir, filename), nil
}

// Delete removes an evidence file and its index record.
func (s *EvidenceService) Delete(filename string) error {
	path, err := s.Path(filename)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", filename, err)
	}
	if s.repo != nil {
		if err := s.repo.DeleteByFilename(filename); err != nil {
			return fmt.Errorf("failed to delete %s from database: %w", filename, err)
		}
	}
	s.logger.Info("Deleted evidence: %s", filename)
	return nil
}

// Clear removes every file in the evidence directory and empties the index.
func (s *EvidenceService) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read evidence directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, file.Name())); err != nil {
			s.logger.Error("Error deleting file %s: %v", file.Name(), err)
		}
	}

	if s.repo != nil {
		if err := s.repo.DeleteAll(); err != nil {
			return fmt.Errorf("failed to clear evidence index: %w", err)
		}
	}

	s.logger.Info("All evidence cleared from directory: %s", s.dir)
	return nil
}

// Reindex adds files found in the evidence directory that have no index record.
// Files whose names do not parse are skipped.
func (s *EvidenceService) Reindex() (indexed, skipped int, err error) {
	if s.repo == nil {
		return 0, 0, errors.New("no evidence repository configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read evidence directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != evidenceExt {
			continue
		}

		ts, err := ParseEvidenceFilename(s.prefix, file.Name())
		if err != nil {
			s.logger.Warning("Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}

		existing, err := s.repo.GetByFilename(file.Name())
		if err != nil {
			return indexed, skipped, err
		}
		if existing != nil {
			continue
		}

		info, err := file.Info()
		if err != nil {
			s.logger.Warning("Failed to get info for %s: %v", file.Name(), err)
			skipped++
			continue
		}

		ev := &model.Evidence{
			Filename:  file.Name(),
			Timestamp: ts,
			FilePath:  filepath.Join(s.dir, file.Name()),
			FileSize:  info.Size(),
		}
		if _, err := s.repo.Save(ev, nil); err != nil {
			return indexed, skipped, err
		}
		indexed++
	}

	return indexed, skipped, nil
}

// ParseEvidenceFilename extracts the save time from a name like
// accident_20240309_140507.jpg, interpreted in local time.
func ParseEvidenceFilename(prefix, name string) (time.Time, error) {
	stem := strings.TrimSuffix(name, evidenceExt)
	if stem == name || !strings.HasPrefix(stem, prefix+"_") {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidFilename, name)
	}
	ts, err := time.ParseInLocation(EvidenceTimeLayout, strings.TrimPrefix(stem, prefix+"_"), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidFilename, name)
	}
	return ts, nil
}

func toEvidenceDetections(detections []model.Detection) []model.EvidenceDetection {
	out := make([]model.EvidenceDetection, 0, len(detections))
	for _, d := range detections {
		b := d.BBox()
		out = append(out, model.EvidenceDetection{
			ClassName:  d.Class,
			Confidence: d.Confidence,
			X1:         b[0],
			Y1:         b[1],
			X2:         b[2],
			Y2:         b[3],
		})
	}
	return out
}
