// Package session holds per-browser detection settings, counters and logs.
package session

import (
	"sort"
	"sync"
	"time"

	"accidentwatch/internal/dto"
	"accidentwatch/internal/model"
)

// TimestampLayout formats log entry timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// Session is the state of one browser session. It is safe for concurrent use.
type Session struct {
	ID string

	mu             sync.Mutex
	settings       Settings
	detectionCount int
	log            []model.LogEntry
	lastSeen       time.Time
}

func newSession(id string, defaults Settings, now time.Time) *Session {
	return &Session{
		ID:       id,
		settings: defaults,
		log:      []model.LogEntry{},
		lastSeen: now,
	}
}

// Settings returns the current settings.
func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings validates and stores new settings. An empty location keeps the
// current one and a masked token keeps the stored token.
func (s *Session) UpdateSettings(next Settings) (Settings, error) {
	next, err := next.Normalize()
	if err != nil {
		return Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if next.Location == "" {
		next.Location = s.settings.Location
	}
	if next.Notifications.TwilioToken == s.settings.Redacted().Notifications.TwilioToken {
		next.Notifications.TwilioToken = s.settings.Notifications.TwilioToken
	}
	s.settings = next
	return next, nil
}

// RecordDetections appends one log entry per detection and counts the frame
// once when it had any detection.
func (s *Session) RecordDetections(at time.Time, location string, detections []model.Detection) {
	if len(detections) == 0 {
		return
	}
	ts := at.Format(TimestampLayout)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.detectionCount++
	for _, d := range detections {
		s.log = append(s.log, model.LogEntry{
			Timestamp:  ts,
			Location:   location,
			Class:      d.Class,
			Confidence: d.Confidence,
		})
	}
}

// Clear resets the detection counter and empties the log.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detectionCount = 0
	s.log = []model.LogEntry{}
}

// DetectionCount returns the number of frames with detections since the last clear.
func (s *Session) DetectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detectionCount
}

// Entries returns a copy of the detection log.
func (s *Session) Entries() []model.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.LogEntry, len(s.log))
	copy(out, s.log)
	return out
}

// Snapshot returns the log, counter and analysis as one consistent view.
func (s *Session) Snapshot() dto.LogData {
	s.mu.Lock()
	entries := make([]model.LogEntry, len(s.log))
	copy(entries, s.log)
	count := s.detectionCount
	s.mu.Unlock()

	return dto.LogData{
		DetectionCount: count,
		Entries:        entries,
		Analysis:       Analyze(entries),
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Analyze summarizes log entries. Ties for the most common class go to the
// lexicographically smallest name.
func Analyze(entries []model.LogEntry) dto.LogAnalysis {
	if len(entries) == 0 {
		return dto.LogAnalysis{MostCommonClass: "N/A"}
	}

	counts := make(map[string]int)
	sum := 0.0
	for _, e := range entries {
		counts[e.Class]++
		sum += e.Confidence
	}

	classes := make([]string, 0, len(counts))
	for c := range counts {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	best := classes[0]
	for _, c := range classes[1:] {
		if counts[c] > counts[best] {
			best = c
		}
	}

	return dto.LogAnalysis{
		Total:           len(entries),
		MostCommonClass: best,
		AvgConfidence:   sum / float64(len(entries)),
	}
}
