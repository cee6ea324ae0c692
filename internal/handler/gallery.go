package handler

import (
	"errors"
	"net/http"
	"os"

	"accidentwatch/internal/dto"
	"accidentwatch/internal/logger"
	"accidentwatch/internal/repository"
	"accidentwatch/internal/service/storage"
)

// GetEvidenceHandler returns a filtered, paginated list of evidence frames from the database.
func GetEvidenceHandler(evidence *storage.EvidenceService, logger *logger.Logger,
	evidenceRepo repository.EvidenceRepository, detectionRepo repository.DetectionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &dto.EvidenceFilters{
			Location:   q.Get("location"),
			Class:      q.Get("class"),
			DateAfter:  parseDate(q.Get("dateAfter")),
			DateBefore: parseDate(q.Get("dateBefore")),
			Limit:      limit,
			Offset:     (page - 1) * limit,
		}

		records, err := evidenceRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying evidence from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalSize, err := evidenceRepo.GetTotalSize()
		if err != nil {
			logger.Error("Error getting evidence size: %v", err)
			totalSize = 0
		}

		totalCount, err := evidenceRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting evidence: %v", err)
			totalCount = len(records)
		}

		items := make([]dto.EvidenceInfo, 0, len(records))
		for _, ev := range records {
			classes, err := detectionRepo.GetClassNamesByEvidenceID(ev.ID)
			if err != nil {
				logger.Error("Error getting classes for evidence %d: %v", ev.ID, err)
			}
			if classes == nil {
				classes = []string{}
			}

			items = append(items, dto.EvidenceInfo{
				Name:      ev.Filename,
				Date:      ev.Timestamp,
				TimeOfDay: ev.Timestamp,
				Location:  ev.Location,
				Classes:   classes,
				Size:      ev.FileSize,
			})
		}

		allClasses, err := detectionRepo.GetAllClassNames()
		if err != nil {
			logger.Error("Error listing classes: %v", err)
		}
		locations, err := evidenceRepo.GetLocations()
		if err != nil {
			logger.Error("Error listing locations: %v", err)
		}

		data := dto.EvidenceData{
			Evidence:    items,
			Directory:   evidence.Dir(),
			Size:        totalSize,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
			Classes:     nonNil(allClasses),
			Locations:   nonNil(locations),
		}

		writeJSON(w, logger, http.StatusOK, data)
	}
}

// DeleteEvidenceHandler removes an evidence frame from disk and database.
func DeleteEvidenceHandler(evidence *storage.EvidenceService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodPost, http.MethodDelete) {
			return
		}
		filename := r.URL.Query().Get("filename")
		if filename == "" {
			http.Error(w, "Filename required", http.StatusBadRequest)
			return
		}

		err := evidence.Delete(filename)
		if errors.Is(err, storage.ErrInvalidFilename) {
			http.Error(w, "Invalid filename", http.StatusBadRequest)
			return
		}
		if err != nil {
			logger.Error("Failed to delete evidence %s: %v", filename, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "deleted", "filename": filename})
	}
}

// ClearEvidenceHandler deletes all evidence files and clears the index.
func ClearEvidenceHandler(evidence *storage.EvidenceService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodPost, http.MethodDelete) {
			return
		}
		if err := evidence.Clear(); err != nil {
			logger.Error("Error clearing evidence: %v", err)
			http.Error(w, "Unable to clear evidence", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ViewEvidenceHandler serves a single evidence frame specified via the "image" query parameter.
func ViewEvidenceHandler(evidence *storage.EvidenceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("image")
		if name == "" {
			http.Error(w, "Image parameter is required", http.StatusBadRequest)
			return
		}
		path, err := evidence.Path(name)
		if err != nil {
			http.Error(w, "Invalid image name", http.StatusBadRequest)
			return
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, path)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
