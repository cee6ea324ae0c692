package dto

import "accidentwatch/internal/model"

// DetectionInfo is the wire shape of a single detection.
type DetectionInfo struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	BBox       [4]int  `json:"bbox"`
}

// ImageResult is returned by the image upload endpoint.
type ImageResult struct {
	Image      string          `json:"image"` // base64 JPEG, annotated
	Detections []DetectionInfo `json:"detections"`
	Evidence   string          `json:"evidence,omitempty"`
}

// FrameDetections summarizes one analyzed video frame that had detections.
type FrameDetections struct {
	Frame      int             `json:"frame"`
	Count      int             `json:"count"`
	Detections []DetectionInfo `json:"detections"`
}

// VideoReport is returned once a video upload has been analyzed.
type VideoReport struct {
	FramesRead      int               `json:"framesRead"`
	SampleInterval  int               `json:"sampleInterval"`
	DetectionFrames []FrameDetections `json:"detectionFrames"`
}

// ToDetectionInfos converts detector output to its wire shape.
func ToDetectionInfos(detections []model.Detection) []DetectionInfo {
	infos := make([]DetectionInfo, 0, len(detections))
	for _, d := range detections {
		infos = append(infos, DetectionInfo{
			Class:      d.Class,
			Confidence: d.Confidence,
			BBox:       d.BBox(),
		})
	}
	return infos
}
