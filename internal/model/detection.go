package model

import "image"

// Detection is one object instance reported by the model and kept by the detector.
type Detection struct {
	Class      string          `json:"class"`
	ClassIndex int             `json:"class_index"`
	Confidence float64         `json:"confidence"`
	Box        image.Rectangle `json:"-"`
}

// BBox returns the box as (x1, y1, x2, y2) pixel coordinates.
func (d Detection) BBox() [4]int {
	return [4]int{d.Box.Min.X, d.Box.Min.Y, d.Box.Max.X, d.Box.Max.Y}
}

// LogEntry is one row of the per-session detection log.
type LogEntry struct {
	Timestamp  string  `json:"timestamp"`
	Location   string  `json:"location"`
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}
