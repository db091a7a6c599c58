package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/syncroom/internal/app/orch"
	"github.com/dkeye/syncroom/internal/config"
	"github.com/dkeye/syncroom/internal/core"
	"github.com/dkeye/syncroom/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Gin context keys filled by the HTTP middleware.
const (
	ClientTokenKey = "client_token"
	SubjectKey     = "jwt_sub"
)

// Timing holds the per-connection transport limits.
type Timing struct {
	ReadLimit  int64
	PingPeriod time.Duration
	PongWait   time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

func TimingFrom(cfg *config.Config) Timing {
	return Timing{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		PongWait:   cfg.PongWait,
		WriteWait:  cfg.WriteWait,
		SendBuffer: cfg.SendBuffer,
	}
}

type SignalWSController struct {
	Orch    *orch.Orchestrator
	Timing  Timing
	Limiter *ConnectLimiter

	upgrader websocket.Upgrader
}

// NewSignalWSController builds the controller. checkOrigin decides which
// browser origins may upgrade; nil allows any.
func NewSignalWSController(o *orch.Orchestrator, t Timing, l *ConnectLimiter, checkOrigin func(*http.Request) bool) *SignalWSController {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &SignalWSController{
		Orch:     o,
		Timing:   t,
		Limiter:  l,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool

	clientToken string
	subject     domain.ParticipantID
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// identity picks the participant identity for a join. A verified token
// subject always wins over what the client claims.
func (c *WsSignalConn) identity(claimed string) domain.ParticipantID {
	if c.subject != "" {
		return c.subject
	}
	if claimed != "" {
		return domain.ParticipantID(claimed)
	}
	return domain.ParticipantID(c.clientToken)
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	token := c.GetString(ClientTokenKey)
	if ctl.Limiter != nil && !ctl.Limiter.Allow(token) {
		log.Warn().Str("module", "signal").Str("client", token).Msg("connect rate limited")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many connections"})
		return
	}

	// The upgrade response is written by the upgrader, so the session
	// cookie has to be passed along explicitly.
	var header http.Header
	if cookies := c.Writer.Header().Values("Set-Cookie"); len(cookies) > 0 {
		header = http.Header{"Set-Cookie": cookies}
	}
	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, header)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	cid := domain.ConnID(uuid.NewString())
	conn := &WsSignalConn{
		conn:        ws,
		send:        make(chan core.Frame, max(ctl.Timing.SendBuffer, 1)),
		clientToken: token,
		subject:     domain.ParticipantID(c.GetString(SubjectKey)),
	}
	log.Info().Str("module", "signal").Str("cid", string(cid)).Str("client", token).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Directory.Bind(cid, conn, cancel)
	ctl.sendJSON(conn, orch.Connected{Type: orch.EventConnected, ConnID: cid})

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, cid, conn)
}
