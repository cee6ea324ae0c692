//go:build gocv
// +build gocv

package capture

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

type gocvSource struct {
	vc  *gocv.VideoCapture
	mat gocv.Mat
}

// OpenCamera opens a local capture device.
func OpenCamera(device int) (FrameSource, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera %d is not available", device)
	}
	return &gocvSource{vc: vc, mat: gocv.NewMat()}, nil
}

// OpenVideo opens a video file.
func OpenVideo(path string) (VideoSource, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video %s could not be opened", path)
	}
	return &gocvSource{vc: vc, mat: gocv.NewMat()}, nil
}

// Read grabs the next frame. An empty frame means the stream is exhausted.
func (s *gocvSource) Read() (image.Image, error) {
	if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, ErrEndOfStream
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	return img, nil
}

func (s *gocvSource) FrameCount() int {
	n := int(s.vc.Get(gocv.VideoCaptureFrameCount))
	if n < 0 {
		return 0
	}
	return n
}

func (s *gocvSource) Close() error {
	s.mat.Close()
	return s.vc.Close()
}
