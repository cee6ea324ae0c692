package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"accidentwatch/internal/logger"
	"accidentwatch/internal/service/session"
)

// SettingsHandler returns the session settings on GET and replaces them on POST.
// The notification token is never echoed back.
func SettingsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodGet, http.MethodPost) {
			return
		}
		sess := currentSession(w, r, logger)
		if sess == nil {
			return
		}

		if r.Method == http.MethodGet {
			writeJSON(w, logger, http.StatusOK, sess.Settings().Redacted())
			return
		}

		var next session.Settings
		if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid settings payload")
			return
		}

		updated, err := sess.UpdateSettings(next)
		if errors.Is(err, session.ErrInvalidThreshold) {
			writeError(w, logger, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			writeError(w, logger, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, logger, http.StatusOK, updated.Redacted())
	}
}
