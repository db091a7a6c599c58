package signal

import (
	"context"
	"time"

	"github.com/dkeye/syncroom/internal/app/orch"
	"github.com/dkeye/syncroom/internal/domain"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.Timing.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(ctl.Timing.WriteWait))
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Timing.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Timing.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping failed")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, cid domain.ConnID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("cid", string(cid)).Msg("readPump closing")
		cancel()
		c.Close()
		ctl.Orch.OnDisconnect(cid)
	}()

	c.conn.SetReadLimit(ctl.Timing.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.Timing.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.Timing.PongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("cid", string(cid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("readPump read error")
				}
				return
			}
			ctl.handleSignal(cid, c, data)
		}
	}
}

// Inbound message types.
const (
	msgHostJoin          = "host-join-room"
	msgRequestJoin       = "request-join"
	msgApproveJoin       = "approve-join"
	msgRejectJoin        = "reject-join"
	msgChat              = "chat-message"
	msgMediaState        = "media-state-change"
	msgScreenShareStart  = "screen-share-started"
	msgScreenShareStop   = "screen-share-stopped"
	msgLeaveRoom         = "leave-room"
	msgUpdatePermissions = "update-permissions"
	msgPing              = "ping"
	msgWhoAmI            = "whoami"
)

func (ctl *SignalWSController) handleSignal(cid domain.ConnID, c *WsSignalConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return
	}

	switch env.Type {
	case msgHostJoin:
		ctl.handleHostJoin(cid, c, data)
	case msgRequestJoin:
		ctl.handleRequestJoin(cid, c, data)
	case msgApproveJoin:
		ctl.handleDecision(cid, c, data, true)
	case msgRejectJoin:
		ctl.handleDecision(cid, c, data, false)
	case orch.KindOffer, orch.KindAnswer, orch.KindICECandidate:
		ctl.handleRelay(env.Type, cid, c, data)
	case msgChat:
		ctl.handleChat(cid, c, data)
	case msgMediaState:
		ctl.handleMediaState(cid, c, data)
	case msgScreenShareStart:
		ctl.handleScreenShare(cid, c, data, true)
	case msgScreenShareStop:
		ctl.handleScreenShare(cid, c, data, false)
	case msgLeaveRoom:
		ctl.handleLeave(cid)
	case msgUpdatePermissions:
		ctl.handleUpdatePermissions(cid, c, data)
	case msgPing:
		ctl.handlePing(c)
	case msgWhoAmI:
		ctl.handleWhoAmI(cid, c)
	default:
		log.Warn().Str("module", "signal").Str("cid", string(cid)).Str("type", env.Type).Msg("unknown signal")
		ctl.sendError(c, "unknown_type")
	}
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *SignalWSController) sendError(c *WsSignalConn, msg string) {
	ctl.sendJSON(c, orch.ErrorEvent{Type: orch.EventError, Error: msg})
}

// decode unmarshals a payload and answers bad_payload on failure.
func (ctl *SignalWSController) decode(cid domain.ConnID, c *WsSignalConn, data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("bad payload")
		ctl.sendError(c, "bad_payload")
		return false
	}
	return true
}
