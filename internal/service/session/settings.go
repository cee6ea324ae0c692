package session

import (
	"errors"
	"math"
	"strings"
)

// ConfidenceStep is the granularity of the confidence threshold.
const ConfidenceStep = 0.05

// ErrInvalidThreshold is returned when a confidence threshold is outside [0, 1].
var ErrInvalidThreshold = errors.New("confidence threshold must be between 0 and 1")

// NotificationSettings are stored with the session. Nothing sends notifications.
type NotificationSettings struct {
	Enabled     bool   `json:"enabled"`
	TwilioSID   string `json:"twilioSid"`
	TwilioToken string `json:"twilioToken"`
	TwilioPhone string `json:"twilioPhone"`
	Recipient   string `json:"recipient"`
}

// Settings are the user-adjustable values of a session.
type Settings struct {
	Confidence    float64              `json:"confidence"`
	SaveEvidence  bool                 `json:"saveEvidence"`
	Location      string               `json:"location"`
	Notifications NotificationSettings `json:"notifications"`
}

// Normalize validates s and snaps the confidence to ConfidenceStep.
func (s Settings) Normalize() (Settings, error) {
	if math.IsNaN(s.Confidence) || s.Confidence < 0 || s.Confidence > 1 {
		return s, ErrInvalidThreshold
	}
	steps := math.Round(s.Confidence / ConfidenceStep)
	s.Confidence = math.Round(steps*ConfidenceStep*100) / 100
	s.Location = strings.TrimSpace(s.Location)
	return s, nil
}

// Redacted returns a copy safe to send back to the browser.
func (s Settings) Redacted() Settings {
	if s.Notifications.TwilioToken != "" {
		s.Notifications.TwilioToken = "********"
	}
	return s
}
