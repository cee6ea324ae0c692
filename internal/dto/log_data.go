package dto

import "accidentwatch/internal/model"

// LogAnalysis holds the summary metrics shown under the detection log.
type LogAnalysis struct {
	Total           int     `json:"total"`
	MostCommonClass string  `json:"mostCommonClass"`
	AvgConfidence   float64 `json:"avgConfidence"`
}

// LogData is the payload of the detection log endpoint.
type LogData struct {
	DetectionCount int              `json:"detectionCount"`
	Entries        []model.LogEntry `json:"entries"`
	Analysis       LogAnalysis      `json:"analysis"`
}
