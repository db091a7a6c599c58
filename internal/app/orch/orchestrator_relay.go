package orch

import (
	"github.com/dkeye/syncroom/internal/domain"
	"github.com/dkeye/syncroom/internal/metrics"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const defaultSenderName = "User"

// Relay forwards a negotiation payload from cid to target untouched. Unknown
// targets are dropped without telling the sender.
func (o *Orchestrator) Relay(kind string, cid, target domain.ConnID, payload json.RawMessage, senderName string) error {
	msg := Relayed{Type: kind, SenderConnectionID: cid}
	switch kind {
	case KindOffer:
		msg.Offer = payload
		msg.SenderName = o.senderName(cid, senderName)
	case KindAnswer:
		msg.Answer = payload
	case KindICECandidate:
		msg.Candidate = payload
	default:
		return domain.ErrInvalidMessage
	}

	if target == "" || !o.Directory.Has(target) {
		metrics.RelayedMessages.WithLabelValues(kind, "dropped").Inc()
		log.Debug().Str("module", "orch").Str("kind", kind).Str("cid", string(cid)).Str("target", string(target)).Msg("relay target unreachable")
		return domain.ErrTargetUnreachable
	}

	var roomID domain.RoomID
	if s, ok := o.Directory.Session(target); ok {
		roomID = s.RoomID
	}
	if !o.send(roomID, target, msg) {
		metrics.RelayedMessages.WithLabelValues(kind, "dropped").Inc()
		return domain.ErrTargetUnreachable
	}
	metrics.RelayedMessages.WithLabelValues(kind, "delivered").Inc()
	return nil
}

// senderName prefers the name the sender joined with over what the client
// claims in the offer.
func (o *Orchestrator) senderName(cid domain.ConnID, claimed string) string {
	if s, ok := o.Directory.Session(cid); ok && s.DisplayName != "" {
		return s.DisplayName
	}
	if claimed != "" {
		return domain.NormalizeDisplayName(claimed)
	}
	return defaultSenderName
}
