package handler

import (
	"net/http"

	"accidentwatch/internal/logger"
	"accidentwatch/internal/service"
)

// StatusHandler reports model and class list load problems and the camera state.
func StatusHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := currentSession(w, r, logger)
		if sess == nil {
			return
		}
		writeJSON(w, logger, http.StatusOK, manager.Status(sess.ID))
	}
}
