package sqlite_test

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"accidentwatch/internal/dto"
	"accidentwatch/internal/model"
	"accidentwatch/internal/repository"
	"accidentwatch/internal/repository/sqlite"
)

var (
	_ repository.EvidenceRepository  = (*sqlite.EvidenceRepository)(nil)
	_ repository.DetectionRepository = (*sqlite.DetectionRepository)(nil)
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func evidenceAt(name, location string, ts time.Time) *model.Evidence {
	return &model.Evidence{
		Filename:  name,
		Location:  location,
		Timestamp: ts,
		FilePath:  "/evidence/" + name,
		FileSize:  1024,
	}
}

// ========================================
// Database Integration Tests
// ========================================

func TestDatabase_Connection(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
}

func TestDatabase_ConcurrentAccess(t *testing.T) {
	repo := sqlite.NewEvidenceRepository(setupTestDB(t))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			ev := evidenceAt(fmt.Sprintf("accident_concurrent_%d.jpg", idx), "Gate", time.Now())
			if _, err := repo.Save(ev, nil); err != nil {
				t.Errorf("Concurrent save %d failed: %v", idx, err)
			}
		}(i)
	}
	wg.Wait()

	count, err := repo.GetTotalCount(&dto.EvidenceFilters{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 10 {
		t.Errorf("Expected 10 evidence records, got %d", count)
	}
}

// ========================================
// Evidence Repository Tests
// ========================================

func TestEvidenceRepository_SaveWithDetections(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewEvidenceRepository(db)
	detRepo := sqlite.NewDetectionRepository(db)

	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	ev := evidenceAt("accident_20240309_140507.jpg", "Main Entrance", ts)
	id, err := repo.Save(ev, []model.EvidenceDetection{
		{ClassName: "accident", Confidence: 0.91, X1: 10, Y1: 20, X2: 110, Y2: 220},
		{ClassName: "vehicle", Confidence: 0.66, X1: 5, Y1: 5, X2: 50, Y2: 50},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if ev.ID != id {
		t.Errorf("Expected ID %d to be set on evidence, got %d", id, ev.ID)
	}

	got, err := repo.GetByFilename(ev.Filename)
	if err != nil || got == nil {
		t.Fatalf("GetByFilename failed: %v", err)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("Timestamp mismatch: expected %v, got %v", ts, got.Timestamp)
	}
	if got.Location != "Main Entrance" {
		t.Errorf("Location mismatch: got %s", got.Location)
	}

	dets, err := detRepo.GetByEvidenceID(id)
	if err != nil {
		t.Fatalf("GetByEvidenceID failed: %v", err)
	}
	if len(dets) != 2 {
		t.Fatalf("Expected 2 detections, got %d", len(dets))
	}
	if dets[0].ClassName != "accident" || dets[0].X2 != 110 || dets[0].Y2 != 220 {
		t.Errorf("Unexpected first detection: %+v", dets[0])
	}

	classes, err := detRepo.GetClassNamesByEvidenceID(id)
	if err != nil {
		t.Fatalf("GetClassNamesByEvidenceID failed: %v", err)
	}
	if len(classes) != 2 || classes[0] != "accident" || classes[1] != "vehicle" {
		t.Errorf("Unexpected classes: %v", classes)
	}
}

func TestEvidenceRepository_SaveSameFilenameReplaces(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewEvidenceRepository(db)
	detRepo := sqlite.NewDetectionRepository(db)

	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	first, err := repo.Save(evidenceAt("accident_20240309_140507.jpg", "Gate", ts),
		[]model.EvidenceDetection{{ClassName: "accident", Confidence: 0.5}})
	if err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	second, err := repo.Save(evidenceAt("accident_20240309_140507.jpg", "Gate", ts),
		[]model.EvidenceDetection{{ClassName: "fire", Confidence: 0.7}})
	if err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	count, _ := repo.GetTotalCount(nil)
	if count != 1 {
		t.Errorf("Expected 1 record after same-second save, got %d", count)
	}

	if old, _ := detRepo.GetByEvidenceID(first); len(old) != 0 {
		t.Errorf("Expected detections of replaced record to be removed, got %d", len(old))
	}
	classes, _ := detRepo.GetClassNamesByEvidenceID(second)
	if len(classes) != 1 || classes[0] != "fire" {
		t.Errorf("Expected replacement detections, got %v", classes)
	}
}

func TestEvidenceRepository_GetByFilenameMissing(t *testing.T) {
	repo := sqlite.NewEvidenceRepository(setupTestDB(t))

	ev, err := repo.GetByFilename("nope.jpg")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ev != nil {
		t.Errorf("Expected nil evidence, got %+v", ev)
	}
}

func TestEvidenceRepository_Filters(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewEvidenceRepository(db)

	day1 := time.Date(2024, 1, 10, 8, 0, 0, 0, time.Local)
	day2 := time.Date(2024, 1, 12, 23, 30, 0, 0, time.Local)
	day3 := time.Date(2024, 1, 15, 0, 15, 0, 0, time.Local)

	repo.Save(evidenceAt("a.jpg", "Gate", day1), []model.EvidenceDetection{{ClassName: "accident"}})
	repo.Save(evidenceAt("b.jpg", "Parking", day2), []model.EvidenceDetection{{ClassName: "accident"}, {ClassName: "fire"}})
	repo.Save(evidenceAt("c.jpg", "Gate", day3), []model.EvidenceDetection{{ClassName: "fire"}})

	tests := []struct {
		name     string
		filter   dto.EvidenceFilters
		expected []string
	}{
		{"no filter, newest first", dto.EvidenceFilters{}, []string{"c.jpg", "b.jpg", "a.jpg"}},
		{"by location", dto.EvidenceFilters{Location: "Gate"}, []string{"c.jpg", "a.jpg"}},
		{"by class", dto.EvidenceFilters{Class: "accident"}, []string{"b.jpg", "a.jpg"}},
		{"date after", dto.EvidenceFilters{DateAfter: day2}, []string{"c.jpg", "b.jpg"}},
		{"date before", dto.EvidenceFilters{DateBefore: day2}, []string{"b.jpg", "a.jpg"}},
		{"paged", dto.EvidenceFilters{Limit: 1, Offset: 1}, []string{"b.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := tt.filter
			got, err := repo.GetAll(&filter)
			if err != nil {
				t.Fatalf("GetAll failed: %v", err)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %d results, got %d", len(tt.expected), len(got))
			}
			for i, ev := range got {
				if ev.Filename != tt.expected[i] {
					t.Errorf("Result %d: expected %s, got %s", i, tt.expected[i], ev.Filename)
				}
			}
		})
	}

	count, err := repo.GetTotalCount(&dto.EvidenceFilters{Class: "fire", Limit: 1})
	if err != nil {
		t.Fatalf("GetTotalCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected count 2 ignoring paging, got %d", count)
	}
}

func TestEvidenceRepository_SizeAndLocations(t *testing.T) {
	repo := sqlite.NewEvidenceRepository(setupTestDB(t))

	repo.Save(evidenceAt("a.jpg", "Gate", time.Now()), nil)
	repo.Save(evidenceAt("b.jpg", "", time.Now()), nil)
	repo.Save(evidenceAt("c.jpg", "Dock", time.Now()), nil)

	size, err := repo.GetTotalSize()
	if err != nil {
		t.Fatalf("GetTotalSize failed: %v", err)
	}
	if size != 3*1024 {
		t.Errorf("Expected size %d, got %d", 3*1024, size)
	}

	locations, err := repo.GetLocations()
	if err != nil {
		t.Fatalf("GetLocations failed: %v", err)
	}
	if len(locations) != 2 || locations[0] != "Dock" || locations[1] != "Gate" {
		t.Errorf("Unexpected locations: %v", locations)
	}
}

func TestEvidenceRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewEvidenceRepository(db)
	detRepo := sqlite.NewDetectionRepository(db)

	id, _ := repo.Save(evidenceAt("a.jpg", "Gate", time.Now()), []model.EvidenceDetection{{ClassName: "accident"}})
	repo.Save(evidenceAt("b.jpg", "Gate", time.Now()), []model.EvidenceDetection{{ClassName: "fire"}})

	if err := repo.DeleteByFilename("a.jpg"); err != nil {
		t.Fatalf("DeleteByFilename failed: %v", err)
	}
	if err := repo.DeleteByFilename("missing.jpg"); err != nil {
		t.Errorf("Deleting a missing file should not fail: %v", err)
	}
	if dets, _ := detRepo.GetByEvidenceID(id); len(dets) != 0 {
		t.Errorf("Expected detections removed with evidence, got %d", len(dets))
	}

	classes, _ := detRepo.GetAllClassNames()
	if len(classes) != 1 || classes[0] != "fire" {
		t.Errorf("Unexpected remaining classes: %v", classes)
	}

	if err := repo.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	count, _ := repo.GetTotalCount(nil)
	if count != 0 {
		t.Errorf("Expected 0 records after DeleteAll, got %d", count)
	}
}
