package signal

import (
	"errors"

	"github.com/dkeye/syncroom/internal/app/orch"
	"github.com/dkeye/syncroom/internal/domain"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

type relayPayload struct {
	Target     string          `json:"targetConnectionId"`
	Offer      json.RawMessage `json:"offer"`
	Answer     json.RawMessage `json:"answer"`
	Candidate  json.RawMessage `json:"candidate"`
	SenderName string          `json:"senderName"`
}

func (p relayPayload) body(kind string) json.RawMessage {
	switch kind {
	case orch.KindOffer:
		return p.Offer
	case orch.KindAnswer:
		return p.Answer
	default:
		return p.Candidate
	}
}

// handleRelay passes offers, answers and candidates between peers. The
// payload is never inspected.
func (ctl *SignalWSController) handleRelay(
	kind string,
	cid domain.ConnID,
	conn *WsSignalConn,
	data []byte,
) {
	var p relayPayload
	if !ctl.decode(cid, conn, data, &p) {
		return
	}
	err := ctl.Orch.Relay(kind, cid, domain.ConnID(p.Target), p.body(kind), p.SenderName)
	if err != nil && !errors.Is(err, domain.ErrTargetUnreachable) {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(cid)).Str("kind", kind).Msg("relay failed")
	}
}
