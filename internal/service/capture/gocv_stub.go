//go:build !gocv
// +build !gocv

package capture

import "errors"

var errNoGoCV = errors.New("gocv build tag is not enabled")

// OpenCamera is unavailable without OpenCV.
func OpenCamera(device int) (FrameSource, error) {
	return nil, errNoGoCV
}

// OpenVideo is unavailable without OpenCV.
func OpenVideo(path string) (VideoSource, error) {
	return nil, errNoGoCV
}
