// EvidenceFilters describe user-provided filters to narrow the evidence list.
package dto

import "time"

type EvidenceFilters struct {
	Location   string
	Class      string
	DateAfter  time.Time
	DateBefore time.Time
	Limit      int
	Offset     int
}
