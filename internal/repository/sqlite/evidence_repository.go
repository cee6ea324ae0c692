package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"accidentwatch/internal/dto"
	"accidentwatch/internal/model"
)

// EvidenceRepository implements repository.EvidenceRepository for SQLite.
type EvidenceRepository struct {
	db *DB
}

// NewEvidenceRepository creates a new SQLite evidence repository.
func NewEvidenceRepository(db *DB) *EvidenceRepository {
	return &EvidenceRepository{db: db}
}

// Save stores an evidence record with its detections in one transaction.
// A record with the same filename is replaced, matching the overwritten file on disk.
func (r *EvidenceRepository) Save(ev *model.Evidence, detections []model.EvidenceDetection) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteByFilename(tx, ev.Filename); err != nil {
		return 0, err
	}

	result, err := tx.Exec(`
		INSERT INTO evidence (filename, location, timestamp, filepath, filesize)
		VALUES (?, ?, ?, ?, ?)
	`, ev.Filename, ev.Location, formatTimestamp(ev.Timestamp), ev.FilePath, ev.FileSize)
	if err != nil {
		return 0, fmt.Errorf("failed to insert evidence: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read evidence id: %w", err)
	}

	if len(detections) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO evidence_detections (evidence_id, class_name, confidence, x1, y1, x2, y2)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return 0, fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, det := range detections {
			if _, err := stmt.Exec(id, det.ClassName, det.Confidence, det.X1, det.Y1, det.X2, det.Y2); err != nil {
				return 0, fmt.Errorf("failed to insert detection: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit evidence: %w", err)
	}
	ev.ID = id
	return id, nil
}

// GetByFilename retrieves an evidence record by its filename, or nil if absent.
func (r *EvidenceRepository) GetByFilename(filename string) (*model.Evidence, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`
		SELECT id, filename, location, timestamp, filepath, filesize
		FROM evidence WHERE filename = ?
	`, filename)

	ev, err := scanEvidence(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evidence: %w", err)
	}
	return ev, nil
}

// GetAll retrieves evidence records based on filter criteria, newest first.
func (r *EvidenceRepository) GetAll(filter *dto.EvidenceFilters) ([]model.Evidence, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := buildFilter(filter)
	query := `
		SELECT DISTINCT e.id, e.filename, e.location, e.timestamp, e.filepath, e.filesize
		FROM evidence e
		LEFT JOIN evidence_detections d ON e.id = d.evidence_id
		WHERE 1=1` + where + `
		ORDER BY e.timestamp DESC, e.id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query evidence: %w", err)
	}
	defer rows.Close()

	var evidence []model.Evidence
	for rows.Next() {
		ev, err := scanEvidence(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evidence: %w", err)
		}
		evidence = append(evidence, *ev)
	}
	return evidence, rows.Err()
}

// GetTotalCount returns the number of evidence records matching the filter.
func (r *EvidenceRepository) GetTotalCount(filter *dto.EvidenceFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := buildFilter(filter)
	query := `
		SELECT COUNT(DISTINCT e.id)
		FROM evidence e
		LEFT JOIN evidence_detections d ON e.id = d.evidence_id
		WHERE 1=1` + where

	var count int
	if err := r.db.Conn().QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count evidence: %w", err)
	}
	return count, nil
}

// GetTotalSize returns the summed size in bytes of all indexed evidence files.
func (r *EvidenceRepository) GetTotalSize() (int64, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var size int64
	if err := r.db.Conn().QueryRow(`SELECT COALESCE(SUM(filesize), 0) FROM evidence`).Scan(&size); err != nil {
		return 0, fmt.Errorf("failed to sum evidence size: %w", err)
	}
	return size, nil
}

// GetLocations returns the distinct camera locations seen in evidence.
func (r *EvidenceRepository) GetLocations() ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT DISTINCT location FROM evidence WHERE location != '' ORDER BY location`)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locations []string
	for rows.Next() {
		var location string
		if err := rows.Scan(&location); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, location)
	}
	return locations, rows.Err()
}

// DeleteByFilename removes an evidence record and its detections.
func (r *EvidenceRepository) DeleteByFilename(filename string) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteByFilename(tx, filename); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteAll removes all evidence records and their detections.
func (r *EvidenceRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM evidence_detections`); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	if _, err := r.db.Conn().Exec(`DELETE FROM evidence`); err != nil {
		return fmt.Errorf("failed to delete evidence: %w", err)
	}
	return nil
}

func deleteByFilename(tx *sql.Tx, filename string) error {
	var id int64
	err := tx.QueryRow(`SELECT id FROM evidence WHERE filename = ?`, filename).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get evidence id: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM evidence_detections WHERE evidence_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM evidence WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete evidence: %w", err)
	}
	return nil
}

// buildFilter returns the AND clauses and arguments for a gallery filter.
func buildFilter(filter *dto.EvidenceFilters) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}

	query := ""
	args := []interface{}{}

	if filter.Location != "" {
		query += " AND e.location = ?"
		args = append(args, filter.Location)
	}

	if filter.Class != "" {
		query += " AND d.class_name = ?"
		args = append(args, filter.Class)
	}

	if !filter.DateAfter.IsZero() {
		query += " AND DATE(e.timestamp) >= DATE(?)"
		args = append(args, filter.DateAfter.Format("2006-01-02"))
	}

	if !filter.DateBefore.IsZero() {
		query += " AND DATE(e.timestamp) <= DATE(?)"
		args = append(args, filter.DateBefore.Format("2006-01-02"))
	}

	return query, args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvidence(row rowScanner) (*model.Evidence, error) {
	var (
		ev        model.Evidence
		timestamp string
	)
	if err := row.Scan(&ev.ID, &ev.Filename, &ev.Location, &timestamp, &ev.FilePath, &ev.FileSize); err != nil {
		return nil, err
	}
	ts, err := parseTimestamp(timestamp)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", timestamp, err)
	}
	ev.Timestamp = ts
	return &ev, nil
}
