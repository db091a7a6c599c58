package signal

import (
	"github.com/dkeye/syncroom/internal/domain"
	"github.com/rs/zerolog/log"
)

type joinPayload struct {
	RoomID        string `json:"roomId"`
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
}

type decisionPayload struct {
	RoomID string `json:"roomId"`
	Target string `json:"targetConnectionId"`
}

func (ctl *SignalWSController) handleHostJoin(
	cid domain.ConnID,
	conn *WsSignalConn,
	data []byte,
) {
	var p joinPayload
	if !ctl.decode(cid, conn, data, &p) {
		return
	}
	pid := conn.identity(p.ParticipantID)
	log.Info().Str("module", "signal").Str("cid", string(cid)).Str("room", p.RoomID).Str("participant", string(pid)).Msg("host join")
	_ = ctl.Orch.HostJoin(cid, domain.RoomID(p.RoomID), pid, p.DisplayName)
}

func (ctl *SignalWSController) handleRequestJoin(
	cid domain.ConnID,
	conn *WsSignalConn,
	data []byte,
) {
	var p joinPayload
	if !ctl.decode(cid, conn, data, &p) {
		return
	}
	pid := conn.identity(p.ParticipantID)
	log.Info().Str("module", "signal").Str("cid", string(cid)).Str("room", p.RoomID).Str("participant", string(pid)).Msg("request join")
	_ = ctl.Orch.RequestJoin(cid, domain.RoomID(p.RoomID), pid, p.DisplayName)
}

// handleDecision serves both approve-join and reject-join.
func (ctl *SignalWSController) handleDecision(
	cid domain.ConnID,
	conn *WsSignalConn,
	data []byte,
	approve bool,
) {
	var p decisionPayload
	if !ctl.decode(cid, conn, data, &p) {
		return
	}
	var err error
	if approve {
		err = ctl.Orch.Approve(cid, domain.ConnID(p.Target), domain.RoomID(p.RoomID))
	} else {
		err = ctl.Orch.Reject(cid, domain.ConnID(p.Target), domain.RoomID(p.RoomID))
	}
	if err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("cid", string(cid)).Str("target", p.Target).Bool("approve", approve).Msg("decision ignored")
	}
}

// handleLeave leaves the current room; the connection stays open.
func (ctl *SignalWSController) handleLeave(cid domain.ConnID) {
	log.Info().Str("module", "signal").Str("cid", string(cid)).Msg("leave")
	ctl.Orch.Leave(cid)
}
