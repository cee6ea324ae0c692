package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"accidentwatch/internal/config"
	"accidentwatch/internal/logger"
	"accidentwatch/internal/metrics"
)

func newTestHub(t *testing.T) (*HubService, *metrics.Metrics) {
	t.Helper()
	l, err := logger.New(&config.Config{LogDirectory: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(l.Close)

	m := metrics.New()
	h := NewHubService(l, m)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h, m
}

// serveHub registers every connection under the session given in the query string.
func serveHub(t *testing.T, h *HubService) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Register(conn, r.URL.Query().Get("session"))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.Unregister(conn)
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, session string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?session=" + session
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_SendReachesOnlySessionViewers(t *testing.T) {
	h, m := newTestHub(t)
	srv := serveHub(t, h)

	a := dial(t, srv, "session-a")
	b := dial(t, srv, "session-b")
	require.Eventually(t, func() bool { return h.GetClientCount() == 2 }, time.Second, 10*time.Millisecond)
	require.EqualValues(t, 2, m.ActiveViewers.Load())
	require.Equal(t, 1, h.GetSessionClientCount("session-a"))

	require.NoError(t, h.Send("session-a", map[string]string{"type": "frame"}))

	a.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := a.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"frame"}`, string(data))

	b.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = b.ReadMessage()
	require.Error(t, err)
}

func TestHub_UnregisterOnDisconnect(t *testing.T) {
	h, m := newTestHub(t)
	srv := serveHub(t, h)

	conn := dial(t, srv, "session-a")
	require.Eventually(t, func() bool { return h.GetClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return h.GetClientCount() == 0 }, time.Second, 10*time.Millisecond)
	require.Zero(t, m.ActiveViewers.Load())
}

func TestHub_StalledViewerDoesNotBlockOtherSessions(t *testing.T) {
	h, m := newTestHub(t)
	srv := serveHub(t, h)

	// The stalled viewer never reads, so its socket buffers fill up.
	dial(t, srv, "stalled")
	live := dial(t, srv, "live")
	require.Eventually(t, func() bool { return h.GetClientCount() == 2 }, time.Second, 10*time.Millisecond)

	payload := map[string]string{"type": "frame", "image": strings.Repeat("x", 128<<10)}
	for i := 0; i < 400; i++ {
		require.NoError(t, h.Send("stalled", payload))
	}

	start := time.Now()
	require.NoError(t, h.Send("live", map[string]string{"type": "alert"}))
	live.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := live.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"alert"}`, string(data))
	require.Less(t, time.Since(start), time.Second)

	require.Eventually(t, func() bool { return m.ViewerMessagesDropped.Load() > 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_ShutdownClosesViewers(t *testing.T) {
	l, err := logger.New(&config.Config{LogDirectory: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(l.Close)

	m := metrics.New()
	h := NewHubService(l, m)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	conn := dial(t, serveHub(t, h), "session-a")
	require.Eventually(t, func() bool { return h.GetClientCount() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	<-done
	require.Zero(t, h.GetClientCount())
	require.Zero(t, m.ActiveViewers.Load())

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)

	// Sends after shutdown return without blocking.
	require.NoError(t, h.Send("session-a", map[string]string{"type": "frame"}))
}
