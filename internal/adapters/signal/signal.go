// Package signal is the websocket transport adapter: it upgrades the
// connection, pumps frames, and feeds typed events into the orchestrator.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/voicebridge/internal/app/orch"
	"github.com/dkeye/voicebridge/internal/core"
	"github.com/dkeye/voicebridge/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type Options struct {
	ReadLimit   int64
	PingPeriod  time.Duration
	UtterBurst  int
	UtterWindow time.Duration
}

type Controller struct {
	Orch    *orch.Orchestrator
	opts    Options
	limiter *UtteranceLimiter
}

func NewController(o *orch.Orchestrator, opts Options) *Controller {
	var limiter *UtteranceLimiter
	if opts.UtterBurst > 0 && opts.UtterWindow > 0 {
		limiter = NewUtteranceLimiter(opts.UtterBurst, opts.UtterWindow)
	}
	return &Controller{Orch: o, opts: opts, limiter: limiter}
}

// WsConn wraps one websocket connection behind the SignalConnection
// port: non-blocking sends into a buffered channel, idempotent close.
type WsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the pumps. The session is
// not registered until the client sends session_request; until then the
// connection is identified only by its transport id.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.opts.ReadLimit > 0 {
		ws.SetReadLimit(ctl.opts.ReadLimit)
	}
	if ctl.opts.PingPeriod > 0 {
		// peers that miss two keepalive pings are considered gone
		pongWait := 2 * ctl.opts.PingPeriod
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	conn := &WsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	log.Info().Str("module", "signal").Str("client", token).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	state := &connState{conn: conn, cancel: cancel}

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, state)
}

// connState is what one connection accumulates: the confirmed session
// id, if any. Touched only from the connection's readPump.
type connState struct {
	conn   *WsConn
	cancel context.CancelFunc
	sid    domain.SessionID
}
