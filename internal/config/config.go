package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// BackendONNX runs the model in-process through OpenCV DNN.
	BackendONNX = "onnx"
	// BackendRemote forwards frames to an inference server over WebSocket.
	BackendRemote = "remote"
)

type Config struct {
	Port     int
	Password string // empty disables the login gate

	ModelBackend      string
	ModelPath         string
	ClassListPath     string
	RemoteDetectorURL string
	ModelInputSize    int
	NMSThreshold      float64

	EvidenceDirectory string
	EvidencePrefix    string
	DatabasePath      string
	LogDirectory      string
	StaticDirectory   string

	CameraDevice        int
	CameraFrameInterval time.Duration
	VideoSampleInterval int // run detection on every N-th video frame
	MaxUploadSize       int64

	DefaultConfidence float64
	DefaultLocation   string
}

// Load reads the configuration from the environment, after merging an optional .env file.
func Load() *Config {
	// .env is optional
	_ = godotenv.Load()

	return &Config{
		Port:     getEnvAsInt("PORT", 8501),
		Password: getEnv("PASSWORD", ""),

		ModelBackend:      getEnv("MODEL_BACKEND", BackendONNX),
		ModelPath:         getEnv("MODEL_PATH", filepath.Join(".", "best.onnx")),
		ClassListPath:     getEnv("CLASS_LIST_PATH", filepath.Join(".", "coco1.txt")),
		RemoteDetectorURL: getEnv("REMOTE_DETECTOR_URL", "ws://localhost:9000/ws"),
		ModelInputSize:    getEnvAsInt("MODEL_INPUT_SIZE", 640),
		NMSThreshold:      getEnvAsFloat("NMS_THRESHOLD", 0.45),

		EvidenceDirectory: getEnv("EVIDENCE_DIR", filepath.Join(".", "accident_evidence")),
		EvidencePrefix:    getEnv("EVIDENCE_PREFIX", "accident"),
		DatabasePath:      getEnv("DB_PATH", filepath.Join(".", "data", "evidence.db")),
		LogDirectory:      getEnv("LOG_DIR", filepath.Join(".", "logs")),
		StaticDirectory:   getEnv("STATIC_DIR", filepath.Join(".", "static")),

		CameraDevice:        getEnvAsInt("CAMERA_DEVICE", 0),
		CameraFrameInterval: time.Duration(getEnvAsInt("CAMERA_FRAME_INTERVAL_MS", 100)) * time.Millisecond,
		VideoSampleInterval: getEnvAsInt("VIDEO_SAMPLE_INTERVAL", 10),
		MaxUploadSize:       getEnvAsInt64("MAX_UPLOAD_MB", 200) << 20,

		DefaultConfidence: getEnvAsFloat("DEFAULT_CONFIDENCE", 0.5),
		DefaultLocation:   getEnv("DEFAULT_LOCATION", "Main Entrance"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
