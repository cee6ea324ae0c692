package storage

import (
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"accidentwatch/internal/config"
	"accidentwatch/internal/dto"
	"accidentwatch/internal/logger"
	"accidentwatch/internal/metrics"
	"accidentwatch/internal/model"
	"accidentwatch/internal/repository/sqlite"
)

type testEnv struct {
	svc     *EvidenceService
	repo    *sqlite.EvidenceRepository
	dets    *sqlite.DetectionRepository
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		EvidenceDirectory: filepath.Join(dir, "evidence"),
		EvidencePrefix:    "accident",
		LogDirectory:      filepath.Join(dir, "logs"),
	}

	log, err := logger.New(cfg)
	require.NoError(t, err)
	t.Cleanup(log.Close)

	db, err := sqlite.New(filepath.Join(dir, "evidence.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := sqlite.NewEvidenceRepository(db)
	m := metrics.New()
	svc, err := NewEvidenceService(cfg, log, repo, m)
	require.NoError(t, err)

	return &testEnv{svc: svc, repo: repo, dets: sqlite.NewDetectionRepository(db), metrics: m}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testDetections() []model.Detection {
	return []model.Detection{{Class: "accident", Confidence: 0.87, Box: image.Rect(2, 3, 20, 30)}}
}

func TestEvidence_CreatesDirectory(t *testing.T) {
	env := newTestEnv(t)
	info, err := os.Stat(env.svc.Dir())
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestEvidence_SaveWritesJPEGAndIndexes(t *testing.T) {
	env := newTestEnv(t)
	env.svc.SetClock(fixedClock(time.Date(2024, 3, 9, 14, 5, 7, 250, time.Local)))

	frame := image.NewRGBA(image.Rect(0, 0, 32, 24))
	name, err := env.svc.Save(frame, testDetections(), "Main Entrance")
	require.NoError(t, err)
	require.Equal(t, "accident_20240309_140507.jpg", name)

	f, err := os.Open(filepath.Join(env.svc.Dir(), name))
	require.NoError(t, err)
	defer f.Close()
	decoded, err := jpeg.Decode(f)
	require.NoError(t, err)
	require.Equal(t, frame.Bounds(), decoded.Bounds())

	ev, err := env.repo.GetByFilename(name)
	require.NoError(t, err)
	require.NotNil(t, ev)
	require.Equal(t, "Main Entrance", ev.Location)
	require.True(t, time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local).Equal(ev.Timestamp))

	dets, err := env.dets.GetByEvidenceID(ev.ID)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	require.Equal(t, model.EvidenceDetection{
		ID: dets[0].ID, EvidenceID: ev.ID, ClassName: "accident", Confidence: 0.87,
		X1: 2, Y1: 3, X2: 20, Y2: 30,
	}, dets[0])

	require.EqualValues(t, 1, env.metrics.EvidenceSaved.Load())
}

func TestEvidence_SameSecondSavesShareFilename(t *testing.T) {
	env := newTestEnv(t)
	base := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

	env.svc.SetClock(fixedClock(base.Add(100 * time.Millisecond)))
	first, err := env.svc.Save(image.NewRGBA(image.Rect(0, 0, 8, 8)), testDetections(), "Gate")
	require.NoError(t, err)

	env.svc.SetClock(fixedClock(base.Add(900 * time.Millisecond)))
	second, err := env.svc.Save(image.NewRGBA(image.Rect(0, 0, 16, 16)), nil, "Gate")
	require.NoError(t, err)
	require.Equal(t, first, second)

	entries, err := os.ReadDir(env.svc.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	f, err := os.Open(filepath.Join(env.svc.Dir(), second))
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	require.Equal(t, 16, cfg.Width)

	count, err := env.repo.GetTotalCount(&dto.EvidenceFilters{})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	env.svc.SetClock(fixedClock(base.Add(time.Second)))
	third, err := env.svc.Save(image.NewRGBA(image.Rect(0, 0, 8, 8)), nil, "Gate")
	require.NoError(t, err)
	require.NotEqual(t, first, third)
}

func TestEvidence_WithoutRepository(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{EvidenceDirectory: dir, EvidencePrefix: "accident", LogDirectory: filepath.Join(dir, "logs")}
	log, err := logger.New(cfg)
	require.NoError(t, err)
	defer log.Close()

	svc, err := NewEvidenceService(cfg, log, nil, metrics.New())
	require.NoError(t, err)

	name, err := svc.Save(image.NewRGBA(image.Rect(0, 0, 4, 4)), nil, "Gate")
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, name))

	_, _, err = svc.Reindex()
	require.Error(t, err)
}

func TestEvidence_DeleteAndClear(t *testing.T) {
	env := newTestEnv(t)
	base := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

	var names []string
	for i := 0; i < 3; i++ {
		env.svc.SetClock(fixedClock(base.Add(time.Duration(i) * time.Second)))
		name, err := env.svc.Save(image.NewRGBA(image.Rect(0, 0, 4, 4)), testDetections(), "Gate")
		require.NoError(t, err)
		names = append(names, name)
	}

	require.NoError(t, env.svc.Delete(names[0]))
	require.NoFileExists(t, filepath.Join(env.svc.Dir(), names[0]))
	ev, err := env.repo.GetByFilename(names[0])
	require.NoError(t, err)
	require.Nil(t, ev)

	require.ErrorIs(t, env.svc.Delete("../evidence.db"), ErrInvalidFilename)
	require.ErrorIs(t, env.svc.Delete(""), ErrInvalidFilename)

	require.NoError(t, env.svc.Clear())
	entries, err := os.ReadDir(env.svc.Dir())
	require.NoError(t, err)
	require.Empty(t, entries)
	count, err := env.repo.GetTotalCount(nil)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestEvidence_Reindex(t *testing.T) {
	env := newTestEnv(t)

	env.svc.SetClock(fixedClock(time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)))
	indexedName, err := env.svc.Save(image.NewRGBA(image.Rect(0, 0, 4, 4)), testDetections(), "Gate")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(env.svc.Dir(), "accident_20240310_080000.jpg"), []byte("jpeg"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(env.svc.Dir(), "holiday.jpg"), []byte("jpeg"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(env.svc.Dir(), "notes.txt"), []byte("x"), 0644))

	indexed, skipped, err := env.svc.Reindex()
	require.NoError(t, err)
	require.Equal(t, 1, indexed)
	require.Equal(t, 1, skipped)

	ev, err := env.repo.GetByFilename("accident_20240310_080000.jpg")
	require.NoError(t, err)
	require.NotNil(t, ev)
	require.True(t, time.Date(2024, 3, 10, 8, 0, 0, 0, time.Local).Equal(ev.Timestamp))
	require.EqualValues(t, 4, ev.FileSize)

	// Existing records keep their detections.
	kept, err := env.repo.GetByFilename(indexedName)
	require.NoError(t, err)
	classes, err := env.dets.GetClassNamesByEvidenceID(kept.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"accident"}, classes)
}

func TestParseEvidenceFilename(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"valid", "accident_20240309_140507.jpg", time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local), false},
		{"wrong prefix", "crash_20240309_140507.jpg", time.Time{}, true},
		{"wrong extension", "accident_20240309_140507.png", time.Time{}, true},
		{"bad time", "accident_2024-03-09.jpg", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEvidenceFilename("accident", tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidFilename)
				return
			}
			require.NoError(t, err)
			require.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}
