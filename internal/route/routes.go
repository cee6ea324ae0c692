package route

import (
	"net/http"
	"os"
	"path/filepath"

	"accidentwatch/internal/config"
	"accidentwatch/internal/handler"
	"accidentwatch/internal/logger"
	"accidentwatch/internal/metrics"
	"accidentwatch/internal/middleware"
	"accidentwatch/internal/repository"
	"accidentwatch/internal/service"
	"accidentwatch/internal/service/session"
	"accidentwatch/internal/service/storage"
	wshub "accidentwatch/internal/service/websocket"
)

// dynamicHTMLHandler serves /path as <static>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware. Only /api/ routes
// carry a browser session.
func SetupRoutes(cfg *config.Config, logger *logger.Logger, m *metrics.Metrics,
	manager *service.Manager, hub *wshub.HubService, sessions *session.Store, evidence *storage.EvidenceService,
	evidenceRepo repository.EvidenceRepository, detectionRepo repository.DetectionRepository) http.Handler {
	mux := http.NewServeMux()
	withSession := middleware.SessionMiddleware(sessions)
	api := func(path string, h http.HandlerFunc) {
		mux.Handle(path, withSession(h))
	}

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))
	mux.Handle("/metrics", m.Handler())

	// Detection API
	api("/api/status", handler.StatusHandler(manager, logger))
	api("/api/settings", handler.SettingsHandler(logger))
	api("/api/view", handler.ViewWebsocketHandler(hub, logger))
	api("/api/detect/image", handler.DetectImageHandler(manager, cfg, logger))
	api("/api/detect/video", handler.DetectVideoHandler(manager, cfg, logger))
	api("/api/camera/start", handler.StartCameraHandler(manager, logger))
	api("/api/camera/stop", handler.StopCameraHandler(manager, logger))

	// Detection log
	api("/api/log", handler.DetectionLogHandler(logger))
	api("/api/log/export", handler.ExportLogHandler(logger))
	api("/api/stats/clear", handler.ClearStatsHandler(logger))

	// Evidence gallery
	api("/api/evidence", handler.GetEvidenceHandler(evidence, logger, evidenceRepo, detectionRepo))
	api("/api/evidence/view", handler.ViewEvidenceHandler(evidence))
	api("/api/evidence/delete", handler.DeleteEvidenceHandler(evidence, logger))
	api("/api/evidence/clear", handler.ClearEvidenceHandler(evidence, logger))

	// Log endpoints
	mux.HandleFunc("/logs/info", handler.ShowInfoLogsHandler(logger))
	mux.HandleFunc("/logs/warning", handler.ShowWarningLogsHandler(logger))
	mux.HandleFunc("/logs/error", handler.ShowErrorLogsHandler(logger))

	mux.HandleFunc("/logs/info/clear", handler.ClearInfoLogsHandler(logger))
	mux.HandleFunc("/logs/warning/clear", handler.ClearWarningLogsHandler(logger))
	mux.HandleFunc("/logs/error/clear", handler.ClearErrorLogsHandler(logger))

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /login -> /static/login.html
	mux.HandleFunc("/", dynamicHTMLHandler(cfg.StaticDirectory))

	return middleware.AuthMiddleware(cfg)(mux)
}
