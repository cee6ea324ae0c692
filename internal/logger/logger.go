package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"accidentwatch/internal/config"
)

// Log file names, one per level.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	files      []*os.File
	logDir     string
	mu         sync.Mutex
}

// New creates a Logger and ensures the log directory exists.
func New(cfg *config.Config) (*Logger, error) {
	if err := os.MkdirAll(cfg.LogDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{logDir: cfg.LogDirectory}
	if err := l.setupLoggers(os.Stdout, os.Stderr); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// setupLoggers initializes writers and per-level loggers.
func (l *Logger) setupLoggers(stdout, stderr io.Writer) error {
	infoFile, err := l.openLogFile(InfoFile)
	if err != nil {
		return err
	}
	warningFile, err := l.openLogFile(WarningFile)
	if err != nil {
		return err
	}
	errorFile, err := l.openLogFile(ErrorFile)
	if err != nil {
		return err
	}

	flags := log.Ldate | log.Ltime | log.Lshortfile
	l.infoLog = log.New(io.MultiWriter(stdout, infoFile), "ℹ️  INFO    ", flags)
	l.warningLog = log.New(io.MultiWriter(stdout, warningFile), "⚠️  WARNING ", flags)
	l.errorLog = log.New(io.MultiWriter(stderr, errorFile), "❌ ERROR   ", flags)
	return nil
}

// openLogFile opens or creates a log file for appending.
func (l *Logger) openLogFile(name string) (*os.File, error) {
	file, err := os.OpenFile(filepath.Join(l.logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", name, err)
	}
	l.files = append(l.files, file)
	return file, nil
}

// Dir returns the directory the log files live in.
func (l *Logger) Dir() string {
	return l.logDir
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Output(2, fmt.Sprintf(format, v...))
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Output(2, fmt.Sprintf(format, v...))
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Output(2, fmt.Sprintf(format, v...))
}

// CleanLogs truncates the specified log file. Only the three level files are accepted.
func (l *Logger) CleanLogs(fileName string) error {
	switch fileName {
	case InfoFile, WarningFile, ErrorFile:
	default:
		return fmt.Errorf("unknown log file: %s", fileName)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Appending writers keep working after truncation.
	if err := os.Truncate(filepath.Join(l.logDir, fileName), 0); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", fileName, err)
	}
	return nil
}

// Close releases the underlying log files.
func (l *Logger) Close() {
	for _, f := range l.files {
		f.Close()
	}
	l.files = nil
}
