package signal

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/voicebridge/internal/app"
	"github.com/dkeye/voicebridge/internal/app/orch"
	"github.com/dkeye/voicebridge/internal/audio"
	"github.com/dkeye/voicebridge/internal/core"
	"github.com/dkeye/voicebridge/internal/domain"
	"github.com/dkeye/voicebridge/internal/metrics"
)

type echoDispatcher struct{}

func (echoDispatcher) Dispatch(ctx context.Context, text string, sid domain.SessionID, channel string, emit core.ReplySink) error {
	emit("echo: " + text)
	return nil
}

type stubSTT struct{}

func (stubSTT) Transcribe(context.Context, audio.PCM) (string, error) { return "stub", nil }

type stubTTS struct{}

func (stubTTS) Synthesize(context.Context, string) (audio.PCM, error) {
	return audio.PCM{Samples: make([]int16, 220), Rate: 22050, Channels: 1}, nil
}

type stubStore struct{}

func (stubStore) Put(context.Context, domain.SessionID, audio.PCM) (string, error) {
	return "http://files.test/audio/stub.wav", nil
}

func newTestServer(t *testing.T) (*httptest.Server, *orch.Orchestrator) {
	t.Helper()
	return newTestServerOpts(t, Options{ReadLimit: 1 << 20})
}

func newTestServerOpts(t *testing.T, opts Options) (*httptest.Server, *orch.Orchestrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(false),
		Codec:    audio.NewCodec(time.Second, 16000, ""),
		STT:      stubSTT{},
		TTS:      stubTTS{},
		Store:    stubStore{},
		Dialogue: echoDispatcher{},
		Policy:   app.SimplePolicy{},
		Metrics:  metrics.New(prometheus.NewRegistry()),
		Channel:  "voice",
		Workers:  2,
	}
	ctl := NewController(o, opts)

	r := gin.New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	r.GET("/ws", func(c *gin.Context) { ctl.HandleSignal(ctx, c) })

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, o
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(v))
}

func read(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m map[string]any
	require.NoError(t, ws.ReadJSON(&m))
	return m
}

func TestSessionRequestConfirms(t *testing.T) {
	srv, _ := newTestServer(t)
	ws := dial(t, srv)

	send(t, ws, map[string]any{"type": core.EvtSessionRequest})
	confirm := read(t, ws)
	assert.Equal(t, core.EvtSessionConfirm, confirm["type"])
	assert.NotEmpty(t, confirm["session_id"])
}

func TestSessionRequestEchoesRequestedID(t *testing.T) {
	srv, _ := newTestServer(t)
	ws := dial(t, srv)

	send(t, ws, map[string]any{"type": core.EvtSessionRequest, "session_id": "my-session"})
	confirm := read(t, ws)
	assert.Equal(t, "my-session", confirm["session_id"])
}

func TestUtteranceBeforeConfirmRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	ws := dial(t, srv)

	send(t, ws, map[string]any{"type": core.EvtUserUttered, "message": "/get_started"})
	resp := read(t, ws)
	assert.Equal(t, core.EvtError, resp["type"])
}

func TestControlUtteranceRoundtrip(t *testing.T) {
	srv, _ := newTestServer(t)
	ws := dial(t, srv)

	send(t, ws, map[string]any{"type": core.EvtSessionRequest})
	read(t, ws) // session_confirm

	send(t, ws, map[string]any{"type": core.EvtUserUttered, "message": "/get_started"})
	bot := read(t, ws)
	assert.Equal(t, core.EvtBotUttered, bot["type"])
	assert.Equal(t, "echo: /get_started", bot["text"])
	assert.Equal(t, "http://files.test/audio/stub.wav", bot["link"])
}

func TestDisconnectReleasesSession(t *testing.T) {
	srv, o := newTestServer(t)
	ws := dial(t, srv)

	send(t, ws, map[string]any{"type": core.EvtSessionRequest})
	confirm := read(t, ws)
	sid := domain.SessionID(confirm["session_id"].(string))
	require.True(t, o.Registry.Alive(sid))

	ws.Close()
	require.Eventually(t, func() bool {
		_, ok := o.Registry.Session(sid)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPingPong(t *testing.T) {
	srv, _ := newTestServer(t)
	ws := dial(t, srv)

	send(t, ws, map[string]any{"type": core.EvtPing})
	resp := read(t, ws)
	assert.Equal(t, core.EvtPong, resp["type"])
}

func TestKeepalivePingsClient(t *testing.T) {
	srv, _ := newTestServerOpts(t, Options{ReadLimit: 1 << 20, PingPeriod: 50 * time.Millisecond})
	ws := dial(t, srv)

	pinged := make(chan struct{}, 4)
	ws.SetPingHandler(func(string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return ws.WriteControl(websocket.PongMessage, nil, time.Now().Add(time.Second))
	})

	// ping frames are only surfaced while a read is in flight
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pinged:
	case <-time.After(2 * time.Second):
		t.Fatal("no keepalive ping from the server")
	}
}

func TestBadJSONGetsErrorEvent(t *testing.T) {
	srv, _ := newTestServer(t)
	ws := dial(t, srv)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	resp := read(t, ws)
	assert.Equal(t, core.EvtError, resp["type"])
}
