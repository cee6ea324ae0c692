package session

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"accidentwatch/internal/model"
)

// CSVHeader is the first row of an exported detection log.
var CSVHeader = []string{"timestamp", "location", "class", "confidence"}

// ExportFilename names a CSV download created at t.
func ExportFilename(t time.Time) string {
	return "accident_log_" + t.Format("20060102_150405") + ".csv"
}

// WriteCSV writes entries with a header row. Confidences use the shortest
// representation that parses back to the same value.
func WriteCSV(w io.Writer, entries []model.LogEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, e := range entries {
		record := []string{
			e.Timestamp,
			e.Location,
			e.Class,
			strconv.FormatFloat(e.Confidence, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
