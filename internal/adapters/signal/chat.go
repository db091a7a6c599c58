package signal

import (
	"github.com/dkeye/syncroom/internal/domain"
	"github.com/rs/zerolog/log"
)

type chatPayload struct {
	RoomID    string `json:"roomId"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type mediaPayload struct {
	RoomID         string `json:"roomId"`
	IsAudioEnabled bool   `json:"isAudioEnabled"`
	IsVideoEnabled bool   `json:"isVideoEnabled"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type permissionsPayload struct {
	RoomID      string              `json:"roomId"`
	Permissions *domain.Permissions `json:"permissions"`
}

func (ctl *SignalWSController) handleChat(
	cid domain.ConnID,
	conn *WsSignalConn,
	data []byte,
) {
	var p chatPayload
	if !ctl.decode(cid, conn, data, &p) {
		return
	}
	if err := ctl.Orch.Chat(cid, domain.RoomID(p.RoomID), p.Message, p.Timestamp); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("chat dropped")
	}
}

func (ctl *SignalWSController) handleMediaState(
	cid domain.ConnID,
	conn *WsSignalConn,
	data []byte,
) {
	var p mediaPayload
	if !ctl.decode(cid, conn, data, &p) {
		return
	}
	_ = ctl.Orch.MediaStateChanged(cid, domain.RoomID(p.RoomID), p.IsAudioEnabled, p.IsVideoEnabled)
}

func (ctl *SignalWSController) handleScreenShare(
	cid domain.ConnID,
	conn *WsSignalConn,
	data []byte,
	sharing bool,
) {
	var p roomPayload
	if !ctl.decode(cid, conn, data, &p) {
		return
	}
	_ = ctl.Orch.ScreenShare(cid, domain.RoomID(p.RoomID), sharing)
}

func (ctl *SignalWSController) handleUpdatePermissions(
	cid domain.ConnID,
	conn *WsSignalConn,
	data []byte,
) {
	var p permissionsPayload
	if !ctl.decode(cid, conn, data, &p) {
		return
	}
	if p.Permissions == nil {
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.Orch.UpdatePermissions(cid, domain.RoomID(p.RoomID), *p.Permissions); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("permissions update ignored")
	}
}
