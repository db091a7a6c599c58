package signal

import (
	"github.com/dkeye/syncroom/internal/domain"
)

type whoAmI struct {
	Type          string               `json:"type"`
	ConnID        domain.ConnID        `json:"connectionId"`
	ParticipantID domain.ParticipantID `json:"participantId,omitempty"`
	DisplayName   string               `json:"displayName,omitempty"`
	RoomID        domain.RoomID        `json:"roomId,omitempty"`
	State         string               `json:"state,omitempty"`
	IsHost        bool                 `json:"isHost"`
}

// handleWhoAmI reports what the server knows about this connection.
func (ctl *SignalWSController) handleWhoAmI(
	cid domain.ConnID,
	conn *WsSignalConn,
) {
	resp := whoAmI{
		Type:          msgWhoAmI,
		ConnID:        cid,
		ParticipantID: conn.identity(""),
	}
	if s, ok := ctl.Orch.Directory.Session(cid); ok {
		resp.ParticipantID = s.ParticipantID
		resp.DisplayName = s.DisplayName
		resp.RoomID = s.RoomID
		resp.State = s.State.String()
		resp.IsHost = s.IsHost
	}
	ctl.sendJSON(conn, resp)
}
