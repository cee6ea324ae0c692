package sqlite

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// timestampLayout is how evidence timestamps are stored, in local time.
const timestampLayout = "2006-01-02 15:04:05"

// DB wraps the SQLite database connection with thread-safe access.
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// New creates and initializes a new SQLite database connection.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// migrate creates the necessary tables if they don't exist.
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS evidence (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL UNIQUE,
		location TEXT NOT NULL DEFAULT '',
		timestamp TEXT NOT NULL,
		filepath TEXT NOT NULL,
		filesize INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS evidence_detections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		evidence_id INTEGER NOT NULL,
		class_name TEXT NOT NULL,
		confidence REAL DEFAULT 0,
		x1 INTEGER DEFAULT 0,
		y1 INTEGER DEFAULT 0,
		x2 INTEGER DEFAULT 0,
		y2 INTEGER DEFAULT 0,
		FOREIGN KEY (evidence_id) REFERENCES evidence(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_evidence_location ON evidence(location);
	CREATE INDEX IF NOT EXISTS idx_evidence_timestamp ON evidence(timestamp);
	CREATE INDEX IF NOT EXISTS idx_evidence_detections_class ON evidence_detections(class_name);
	CREATE INDEX IF NOT EXISTS idx_evidence_detections_evidence_id ON evidence_detections(evidence_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection for use by repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Lock acquires a write lock.
func (db *DB) Lock() {
	db.mu.Lock()
}

// Unlock releases the write lock.
func (db *DB) Unlock() {
	db.mu.Unlock()
}

// RLock acquires a read lock.
func (db *DB) RLock() {
	db.mu.RLock()
}

// RUnlock releases the read lock.
func (db *DB) RUnlock() {
	db.mu.RUnlock()
}

func formatTimestamp(t time.Time) string {
	return t.Local().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(timestampLayout, s, time.Local)
}
