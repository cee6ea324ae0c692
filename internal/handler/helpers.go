package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"accidentwatch/internal/logger"
	"accidentwatch/internal/middleware"
	"accidentwatch/internal/service/session"
)

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// writeError sends {"error": msg} with the given status.
func writeError(w http.ResponseWriter, logger *logger.Logger, status int, msg string) {
	writeJSON(w, logger, status, map[string]string{"error": msg})
}

// allowMethods rejects requests whose method is not listed.
func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

// currentSession returns the request's session or writes a 500 when the
// session middleware is missing.
func currentSession(w http.ResponseWriter, r *http.Request, logger *logger.Logger) *session.Session {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		logger.Error("No session attached to request %s", r.URL.Path)
		writeError(w, logger, http.StatusInternalServerError, "session unavailable")
	}
	return sess
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}
