package dto

// Viewer message types pushed over the session WebSocket.
const (
	MessageFrame    = "frame"
	MessageAlert    = "alert"
	MessageProgress = "progress"
	MessageError    = "error"
	MessageStopped  = "stopped"
)

// ViewerMessage is a JSON message sent to a session's viewers.
type ViewerMessage struct {
	Type       string          `json:"type"`
	Image      string          `json:"image,omitempty"`
	Detections []DetectionInfo `json:"detections,omitempty"`
	Evidence   string          `json:"evidence,omitempty"`
	Progress   float64         `json:"progress,omitempty"`
	Message    string          `json:"message,omitempty"`
}
