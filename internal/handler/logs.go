package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"accidentwatch/internal/logger"
)

const (
	infoLog    = logger.InfoFile
	warningLog = logger.WarningFile
	errorLog   = logger.ErrorFile
)

// ShowInfoLogsHandler serves the info.log file as text/plain.
func ShowInfoLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveLogFile(w, r, logger.Dir(), infoLog)
	}
}

// ShowWarningLogsHandler serves the warning.log file as text/plain.
func ShowWarningLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveLogFile(w, r, logger.Dir(), warningLog)
	}
}

// ShowErrorLogsHandler serves the error.log file as text/plain.
func ShowErrorLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveLogFile(w, r, logger.Dir(), errorLog)
	}
}

// serveLogFile is a helper that sets headers and serves a log file if it exists.
func serveLogFile(w http.ResponseWriter, r *http.Request, logDir, filename string) {
	filePath := filepath.Join(logDir, filename)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Log file not found: " + filename))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	http.ServeFile(w, r, filePath)
}

// ClearInfoLogsHandler truncates info.log via the logger utility.
func ClearInfoLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return clearLogHandler(logger, infoLog)
}

// ClearWarningLogsHandler truncates warning.log via the logger utility.
func ClearWarningLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return clearLogHandler(logger, warningLog)
}

// ClearErrorLogsHandler truncates error.log via the logger utility.
func ClearErrorLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return clearLogHandler(logger, errorLog)
}

func clearLogHandler(logger *logger.Logger, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := logger.CleanLogs(name); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
