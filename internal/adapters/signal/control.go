package signal

import "github.com/dkeye/syncroom/internal/app/orch"

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
) {
	ctl.sendJSON(conn, orch.Pong{Type: orch.EventPong})
}
