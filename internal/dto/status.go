package dto

// StatusData reports startup problems and the live camera state to the UI.
type StatusData struct {
	ModelLoaded   bool   `json:"modelLoaded"`
	ModelError    string `json:"modelError,omitempty"`
	ClassCount    int    `json:"classCount"`
	ClassWarning  string `json:"classWarning,omitempty"`
	CameraRunning bool   `json:"cameraRunning"`
}
