package realtime

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pastibot/companion/internal/domain/robot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

type stubStatus struct {
	payload robot.StatusPayload
	err     error
}

func (s stubStatus) RobotStatus(context.Context) (robot.StatusPayload, error) { return s.payload, s.err }

type stubToken string

func (s stubToken) BearerToken() string { return string(s) }

type eventRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *eventRecorder) RecordSignIn(string, string, error, time.Duration) {}
func (r *eventRecorder) RecordRestore(string, error)                       {}
func (r *eventRecorder) RecordLogout(string)                               {}
func (r *eventRecorder) RecordRobotEvent(event string) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket"
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{Config: Config{URL: "ws://localhost:1/socket"}})
	require.Error(t, err)

	_, err = New(Options{Config: Config{URL: "http://localhost:1/socket"}, Deps: Deps{Status: stubStatus{}}})
	require.Error(t, err)

	l, err := New(Options{Config: Config{URL: "wss://api.example.com/socket"}, Deps: Deps{Status: stubStatus{}}})
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", l.cfg.Origin)
	assert.Equal(t, DefaultReconnectDelay, l.cfg.ReconnectDelay)
	assert.Equal(t, robot.StatusOffline, l.State().Status)
}

func TestListener_RefreshFallsBackToOffline(t *testing.T) {
	l, err := New(Options{
		Config: Config{URL: "ws://localhost:1/socket"},
		Deps:   Deps{Status: stubStatus{payload: robot.StatusPayload{Status: "online"}}},
	})
	require.NoError(t, err)
	require.NoError(t, l.Refresh(context.Background()))
	assert.Equal(t, robot.StatusOnline, l.State().Status)

	l.status = stubStatus{err: errors.New("503")}
	require.Error(t, l.Refresh(context.Background()))
	assert.Equal(t, robot.StatusOffline, l.State().Status)
}

func TestListener_RunAppliesEvents(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(websocket.Handler(func(ws *websocket.Conn) {
		gotAuth.Store(ws.Request().Header.Get("Authorization"))
		for _, msg := range []map[string]any{
			{"event": EventStatusUpdate, "data": map[string]any{"status": "BUSY"}},
			{"event": "chatMessage", "data": map[string]any{"text": "hola"}},
			{"event": EventTaskUpdate, "data": map[string]any{"taskId": 7, "status": "PENDING"}},
		} {
			if err := websocket.JSON.Send(ws, msg); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		var discard any
		_ = websocket.JSON.Receive(ws, &discard)
	}))
	t.Cleanup(srv.Close)

	rec := &eventRecorder{}
	l, err := New(Options{
		Config:    Config{URL: wsURL(srv), ReconnectDelay: 10 * time.Millisecond},
		Deps:      Deps{Status: stubStatus{payload: robot.StatusPayload{Status: "ONLINE"}}, Credentials: stubToken("tok-1")},
		Telemetry: Telemetry{Metrics: rec},
	})
	require.NoError(t, err)

	dispensing := make(chan robot.State, 1)
	l.Subscribe(func(s robot.State) {
		if s.Dispensing {
			select {
			case dispensing <- s:
			default:
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	select {
	case st := <-dispensing:
		assert.Equal(t, robot.StatusBusy, st.Status)
		require.NotNil(t, st.LastTask)
		assert.Equal(t, int64(7), st.LastTask.TaskID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for task event")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, "Bearer tok-1", gotAuth.Load())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{EventStatusUpdate, EventTaskUpdate}, rec.events)
}

func TestListener_Reconnects(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewServer(websocket.Handler(func(ws *websocket.Conn) {
		conns.Add(1)
		_ = ws.Close()
	}))
	t.Cleanup(srv.Close)

	l, err := New(Options{
		Config: Config{URL: wsURL(srv), ReconnectDelay: 5 * time.Millisecond},
		Deps:   Deps{Status: stubStatus{err: errors.New("down")}},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	assert.Eventually(t, func() bool { return conns.Load() >= 3 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, robot.StatusOffline, l.State().Status)
}
