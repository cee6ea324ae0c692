package sqlite

import (
	"fmt"

	"accidentwatch/internal/model"
)

// DetectionRepository implements repository.DetectionRepository for SQLite.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new SQLite detection repository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

// GetByEvidenceID retrieves all detections stored with an evidence frame.
func (r *DetectionRepository) GetByEvidenceID(evidenceID int64) ([]model.EvidenceDetection, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, evidence_id, class_name, confidence, x1, y1, x2, y2
		FROM evidence_detections WHERE evidence_id = ? ORDER BY id
	`, evidenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var detections []model.EvidenceDetection
	for rows.Next() {
		var det model.EvidenceDetection
		if err := rows.Scan(&det.ID, &det.EvidenceID, &det.ClassName, &det.Confidence, &det.X1, &det.Y1, &det.X2, &det.Y2); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		detections = append(detections, det)
	}
	return detections, rows.Err()
}

// GetClassNamesByEvidenceID returns the distinct class names for an evidence frame.
func (r *DetectionRepository) GetClassNamesByEvidenceID(evidenceID int64) ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.queryStrings(`SELECT DISTINCT class_name FROM evidence_detections WHERE evidence_id = ? ORDER BY class_name`, evidenceID)
}

// GetAllClassNames returns every class name that appears in stored evidence.
func (r *DetectionRepository) GetAllClassNames() ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.queryStrings(`SELECT DISTINCT class_name FROM evidence_detections ORDER BY class_name`)
}

func (r *DetectionRepository) queryStrings(query string, args ...interface{}) ([]string, error) {
	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query class names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan class name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
