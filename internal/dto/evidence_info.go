package dto

import (
	"encoding/json"
	"time"
)

// EvidenceInfo represents metadata about a stored evidence frame.
type EvidenceInfo struct {
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	TimeOfDay time.Time `json:"timeOfDay"`
	Location  string    `json:"location"`
	Classes   []string  `json:"classes"`
	Size      int64     `json:"size"`
}

// MarshalJSON customizes JSON output for EvidenceInfo to format date and time-of-day.
func (e EvidenceInfo) MarshalJSON() ([]byte, error) {
	type Alias EvidenceInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      e.Date.Format("2006-01-02"),
		TimeOfDay: e.TimeOfDay.Format("15:04:05"),
		Alias:     (Alias)(e),
	})
}
