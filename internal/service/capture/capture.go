// Package capture reads frames from cameras and video files.
package capture

import (
	"errors"
	"image"
)

// ErrEndOfStream is returned by Read once a video file has no more frames.
var ErrEndOfStream = errors.New("end of stream")

// FrameSource yields frames until it fails or is closed.
type FrameSource interface {
	Read() (image.Image, error)
	Close() error
}

// VideoSource is a FrameSource over a file with a known length.
type VideoSource interface {
	FrameSource
	// FrameCount reports the number of frames in the container, 0 if unknown.
	FrameCount() int
}

// CameraOpener opens a capture device by index.
type CameraOpener func(device int) (FrameSource, error)

// VideoOpener opens a video file for sequential reading.
type VideoOpener func(path string) (VideoSource, error)
