package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"accidentwatch/internal/config"
	"accidentwatch/internal/dto"
	"accidentwatch/internal/logger"
	"accidentwatch/internal/metrics"
	"accidentwatch/internal/repository/sqlite"
	"accidentwatch/internal/service/storage"
)

func main() {
	cfg := config.Load()

	evidenceDir := flag.String("evidence", cfg.EvidenceDirectory, "Directory containing evidence frames")
	dbPath := flag.String("db", cfg.DatabasePath, "Database path")
	prefix := flag.String("prefix", cfg.EvidencePrefix, "Evidence filename prefix")
	flag.Parse()

	cfg.EvidenceDirectory = *evidenceDir
	cfg.DatabasePath = *dbPath
	cfg.EvidencePrefix = *prefix

	fmt.Printf("Indexing evidence from %s into database %s\n", cfg.EvidenceDirectory, cfg.DatabasePath)

	// Ensure database directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("Failed to open logs: %v", err)
	}
	defer appLogger.Close()

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repo := sqlite.NewEvidenceRepository(db)
	evidence, err := storage.NewEvidenceService(cfg, appLogger, repo, metrics.New())
	if err != nil {
		log.Fatalf("Failed to open evidence directory: %v", err)
	}

	indexed, skipped, err := evidence.Reindex()
	if err != nil {
		log.Fatalf("Failed to index evidence: %v", err)
	}

	if indexed == 0 {
		fmt.Println("No new evidence found to index")
	} else {
		fmt.Printf("✅ Successfully indexed %d evidence frames\n", indexed)
	}
	if skipped > 0 {
		fmt.Printf("⚠️  Skipped %d files (invalid name or errors)\n", skipped)
	}

	// Show stats
	total, err := repo.GetTotalCount(&dto.EvidenceFilters{})
	if err != nil {
		return
	}
	size, _ := repo.GetTotalSize()
	locations, _ := repo.GetLocations()

	fmt.Printf("\n📊 Database Statistics:\n")
	fmt.Printf("   Total evidence: %d\n", total)
	fmt.Printf("   Total size: %d bytes\n", size)
	if len(locations) > 0 {
		fmt.Printf("   Locations:\n")
		for _, location := range locations {
			fmt.Printf("      - %s\n", location)
		}
	}
}
