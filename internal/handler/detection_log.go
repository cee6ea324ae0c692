package handler

import (
	"net/http"
	"time"

	"accidentwatch/internal/logger"
	"accidentwatch/internal/service/session"
)

// DetectionLogHandler returns the session's detection log, counter and analysis.
func DetectionLogHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := currentSession(w, r, logger)
		if sess == nil {
			return
		}
		writeJSON(w, logger, http.StatusOK, sess.Snapshot())
	}
}

// ExportLogHandler downloads the session's detection log as CSV.
func ExportLogHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := currentSession(w, r, logger)
		if sess == nil {
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+session.ExportFilename(time.Now())+`"`)
		if err := session.WriteCSV(w, sess.Entries()); err != nil {
			logger.Error("Error writing CSV export: %v", err)
		}
	}
}

// ClearStatsHandler resets the session's detection counter and log.
func ClearStatsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodPost) {
			return
		}
		sess := currentSession(w, r, logger)
		if sess == nil {
			return
		}
		sess.Clear()
		writeJSON(w, logger, http.StatusOK, sess.Snapshot())
	}
}
