// EvidenceData is a paginated response payload for the evidence gallery.
package dto

type EvidenceData struct {
	Evidence    []EvidenceInfo `json:"evidence"`
	Directory   string         `json:"directory"`
	Size        int64          `json:"size"`
	Length      int            `json:"length"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
	Limit       int            `json:"pageSize"`
	Classes     []string       `json:"classes"`
	Locations   []string       `json:"locations"`
}
