package handler

import (
	"errors"
	"net/http"

	"accidentwatch/internal/logger"
	"accidentwatch/internal/service"
)

// StartCameraHandler starts the live detection loop for the caller's session.
func StartCameraHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodPost) {
			return
		}
		sess := currentSession(w, r, logger)
		if sess == nil {
			return
		}

		err := manager.StartCamera(sess)
		switch {
		case errors.Is(err, service.ErrCameraRunning):
			writeError(w, logger, http.StatusConflict, err.Error())
		case err != nil:
			logger.Error("Error starting camera: %v", err)
			writeError(w, logger, http.StatusInternalServerError, err.Error())
		default:
			writeJSON(w, logger, http.StatusOK, manager.Status(sess.ID))
		}
	}
}

// StopCameraHandler stops the caller's live detection loop.
func StopCameraHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodPost) {
			return
		}
		sess := currentSession(w, r, logger)
		if sess == nil {
			return
		}

		if err := manager.StopCamera(sess.ID); errors.Is(err, service.ErrCameraNotRunning) {
			writeError(w, logger, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, logger, http.StatusOK, manager.Status(sess.ID))
	}
}
