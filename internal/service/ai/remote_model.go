package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const remoteTimeout = 10 * time.Second

// remoteRequest is sent to the inference server for every frame.
type remoteRequest struct {
	Threshold float64 `json:"threshold"`
	Image     string  `json:"image"` // base64 JPEG
}

type remoteBox struct {
	ClassID    int     `json:"class_id"`
	Confidence float64 `json:"confidence"`
	Box        [4]int  `json:"box"` // x1, y1, x2, y2
}

type remoteResponse struct {
	Detections []remoteBox `json:"detections"`
	Error      string      `json:"error,omitempty"`
}

// RemoteModel forwards frames to an external inference server over a WebSocket.
// Requests are serialized on a single connection which is redialed after a failure.
type RemoteModel struct {
	url    string
	dialer *websocket.Dialer
	conn   *websocket.Conn
	mu     sync.Mutex
}

// NewRemoteModel dials the inference server at url.
func NewRemoteModel(url string) (*RemoteModel, error) {
	m := &RemoteModel{
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: remoteTimeout},
	}
	if err := m.connect(context.Background()); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *RemoteModel) connect(ctx context.Context) error {
	conn, _, err := m.dialer.DialContext(ctx, m.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to detector server %s: %w", m.url, err)
	}
	m.conn = conn
	return nil
}

// Predict encodes frame as JPEG, sends it with the threshold and waits for the boxes.
func (m *RemoteModel) Predict(ctx context.Context, frame image.Image, threshold float64) ([]Prediction, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	req := remoteRequest{
		Threshold: threshold,
		Image:     base64.StdEncoding.EncodeToString(buf.Bytes()),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		if err := m.connect(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := m.roundTrip(ctx, req)
	if err != nil {
		m.conn.Close()
		m.conn = nil
		return nil, err
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}

	predictions := make([]Prediction, 0, len(resp.Detections))
	for _, d := range resp.Detections {
		predictions = append(predictions, Prediction{
			ClassIndex: d.ClassID,
			Confidence: d.Confidence,
			Box:        image.Rect(d.Box[0], d.Box[1], d.Box[2], d.Box[3]),
		})
	}
	return predictions, nil
}

func (m *RemoteModel) roundTrip(ctx context.Context, req remoteRequest) (*remoteResponse, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(remoteTimeout)
	}
	m.conn.SetWriteDeadline(deadline)
	m.conn.SetReadDeadline(deadline)

	if err := m.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("failed to send frame: %w", err)
	}

	var resp remoteResponse
	if err := m.conn.ReadJSON(&resp); err != nil {
		return nil, fmt.Errorf("failed to read detections: %w", err)
	}
	return &resp, nil
}

// Close closes the connection to the inference server.
func (m *RemoteModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	return err
}
