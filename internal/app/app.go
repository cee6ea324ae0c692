package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"accidentwatch/internal/config"
	"accidentwatch/internal/logger"
	"accidentwatch/internal/metrics"
	"accidentwatch/internal/repository/sqlite"
	"accidentwatch/internal/route"
	"accidentwatch/internal/service"
	"accidentwatch/internal/service/ai"
	"accidentwatch/internal/service/session"
	"accidentwatch/internal/service/storage"
	"accidentwatch/internal/service/websocket"
)

const (
	sessionIdleTimeout = 12 * time.Hour
	shutdownTimeout    = 10 * time.Second
)

type App struct {
	config          *config.Config
	logger          *logger.Logger
	metrics         *metrics.Metrics
	db              *sqlite.DB
	detectorService *ai.DetectorService
	evidenceService *storage.EvidenceService
	hubService      *websocket.HubService
	sessions        *session.Store
	manager         *service.Manager
	server          *http.Server
}

// NewApp loads configuration and builds every service. A model that fails to
// load is reported through /api/status instead of aborting startup.
func NewApp() (*App, error) {
	cfg := config.Load()

	log, err := logger.New(cfg)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Close()
		return nil, err
	}
	evidenceRepo := sqlite.NewEvidenceRepository(db)
	detectionRepo := sqlite.NewDetectionRepository(db)

	m := metrics.New()
	detector := ai.NewDetectorService(cfg, log, m)

	evidence, err := storage.NewEvidenceService(cfg, log, evidenceRepo, m)
	if err != nil {
		db.Close()
		log.Close()
		return nil, err
	}

	hub := websocket.NewHubService(log, m)
	sessions := session.NewStore(cfg)
	mng := service.NewManager(cfg, detector, evidence, hub, log, m)

	router := route.SetupRoutes(cfg, log, m, mng, hub, sessions, evidence, evidenceRepo, detectionRepo)

	return &App{
		config:          cfg,
		logger:          log,
		metrics:         m,
		db:              db,
		detectorService: detector,
		evidenceService: evidence,
		hubService:      hub,
		sessions:        sessions,
		manager:         mng,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves HTTP until ctx is cancelled, then stops camera loops and releases resources.
func (a *App) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	// Start background services
	go a.hubService.Run(hubCtx)
	go a.pruneSessions(hubCtx)

	fmt.Printf("🚨 Accident Watch\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	if a.config.Password != "" {
		fmt.Printf("🔑 Password protection enabled\n")
	}
	fmt.Printf("📁 Evidence: %s\n", a.config.EvidenceDirectory)
	fmt.Printf("🤖 AI Model: %s (%s)\n", a.config.ModelPath, a.config.ModelBackend)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		a.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Error during server shutdown: %v", err)
		}
		cancel()
	}

	a.manager.Shutdown()
	stopHub()
	a.close()
	return serveErr
}

// pruneSessions drops sessions idle for longer than sessionIdleTimeout,
// except those with a running camera.
func (a *App) pruneSessions(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := a.sessions.Prune(sessionIdleTimeout, a.manager.IsCameraRunning)
			if len(removed) > 0 {
				a.logger.Info("Removed %d idle sessions", len(removed))
			}
		}
	}
}

func (a *App) close() {
	if err := a.detectorService.Close(); err != nil {
		a.logger.Error("Error closing detector: %v", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Error closing database: %v", err)
	}
	a.logger.Close()
}
