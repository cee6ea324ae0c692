package repository

import (
	"accidentwatch/internal/dto"
	"accidentwatch/internal/model"
)

// EvidenceRepository defines the interface for evidence frame records.
type EvidenceRepository interface {
	// Create operations
	Save(ev *model.Evidence, detections []model.EvidenceDetection) (int64, error)

	// Read operations
	GetByFilename(filename string) (*model.Evidence, error)
	GetAll(filter *dto.EvidenceFilters) ([]model.Evidence, error)
	GetTotalCount(filter *dto.EvidenceFilters) (int, error)
	GetTotalSize() (int64, error)
	GetLocations() ([]string, error)

	// Delete operations
	DeleteByFilename(filename string) error
	DeleteAll() error
}

// DetectionRepository defines read access to detections stored with evidence.
type DetectionRepository interface {
	GetByEvidenceID(evidenceID int64) ([]model.EvidenceDetection, error)
	GetClassNamesByEvidenceID(evidenceID int64) ([]string, error)
	GetAllClassNames() ([]string, error)
}
