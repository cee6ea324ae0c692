package model

import "time"

// Evidence represents a saved evidence frame.
type Evidence struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
	FilePath  string    `json:"filepath"`
	FileSize  int64     `json:"filesize"`
}

// EvidenceDetection is a detection recorded alongside an evidence frame.
type EvidenceDetection struct {
	ID         int64   `json:"id"`
	EvidenceID int64   `json:"evidence_id"`
	ClassName  string  `json:"class_name"`
	Confidence float64 `json:"confidence"`
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
}
