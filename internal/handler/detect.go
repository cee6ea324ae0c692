package handler

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"accidentwatch/internal/config"
	"accidentwatch/internal/logger"
	"accidentwatch/internal/service"
	"accidentwatch/internal/service/ai"
)

const multipartMemory = 32 << 20

var (
	imageExtensions = []string{".jpg", ".jpeg", ".png"}
	videoExtensions = []string{".mp4", ".avi", ".mov"}
)

// DetectImageHandler runs detection on an uploaded image (multipart field "file").
func DetectImageHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodPost) {
			return
		}
		sess := currentSession(w, r, logger)
		if sess == nil {
			return
		}

		file, header, ok := uploadedFile(w, r, cfg, logger, imageExtensions)
		if !ok {
			return
		}
		defer file.Close()

		img, _, err := image.Decode(file)
		if err != nil {
			writeError(w, logger, http.StatusBadRequest, "could not decode image")
			return
		}

		result, err := manager.ProcessImage(r.Context(), sess, img)
		if err != nil {
			writeDetectError(w, logger, err)
			return
		}

		logger.Info("Analyzed image %s: %d detections", header.Filename, len(result.Detections))
		writeJSON(w, logger, http.StatusOK, result)
	}
}

// DetectVideoHandler stores an uploaded video in a temporary file and analyzes it.
func DetectVideoHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodPost) {
			return
		}
		sess := currentSession(w, r, logger)
		if sess == nil {
			return
		}

		file, header, ok := uploadedFile(w, r, cfg, logger, videoExtensions)
		if !ok {
			return
		}
		defer file.Close()

		path, err := saveTemp(file, strings.ToLower(filepath.Ext(header.Filename)))
		if err != nil {
			logger.Error("Error storing uploaded video: %v", err)
			writeError(w, logger, http.StatusInternalServerError, "could not store upload")
			return
		}
		defer os.Remove(path)

		report, err := manager.AnalyzeVideo(r.Context(), sess, path)
		if err != nil {
			writeDetectError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, report)
	}
}

// uploadedFile extracts the "file" form field and checks its extension.
func uploadedFile(w http.ResponseWriter, r *http.Request, cfg *config.Config, logger *logger.Logger,
	allowed []string) (multipart.File, *multipart.FileHeader, bool) {
	if cfg.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadSize)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, logger, http.StatusRequestEntityTooLarge, "upload too large")
			return nil, nil, false
		}
		writeError(w, logger, http.StatusBadRequest, "invalid multipart form")
		return nil, nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, logger, http.StatusBadRequest, "missing file")
		return nil, nil, false
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	for _, a := range allowed {
		if ext == a {
			return file, header, true
		}
	}
	file.Close()
	writeError(w, logger, http.StatusBadRequest,
		fmt.Sprintf("unsupported file type %q, expected one of %s", ext, strings.Join(allowed, ", ")))
	return nil, nil, false
}

func saveTemp(src io.Reader, ext string) (string, error) {
	tmp, err := os.CreateTemp("", "accidentwatch-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func writeDetectError(w http.ResponseWriter, logger *logger.Logger, err error) {
	switch {
	case errors.Is(err, ai.ErrModelNotLoaded):
		writeError(w, logger, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, ai.ErrInvalidThreshold):
		writeError(w, logger, http.StatusBadRequest, err.Error())
	default:
		logger.Error("Detection failed: %v", err)
		writeError(w, logger, http.StatusInternalServerError, err.Error())
	}
}
