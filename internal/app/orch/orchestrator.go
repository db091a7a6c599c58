package orch

import (
	"errors"
	"time"

	"github.com/dkeye/syncroom/internal/app"
	"github.com/dkeye/syncroom/internal/core"
	"github.com/dkeye/syncroom/internal/domain"
	"github.com/dkeye/syncroom/internal/metrics"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// ChatLimits bound what a single chat message may look like.
// Zero values fall back to the domain defaults.
type ChatLimits struct {
	MaxLength   int
	MinInterval time.Duration
}

// Orchestrator handles every signaling event. It keeps no state of its own:
// rooms live in Rooms, connections in Directory, and both are looked up
// again on every call.
type Orchestrator struct {
	Directory *app.Directory
	Rooms     *core.RoomRegistry
	Policy    app.Policy
	Limits    ChatLimits

	// Now is the clock used for chat ids and rate limiting.
	Now func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) chatMaxLength() int {
	if o.Limits.MaxLength > 0 {
		return o.Limits.MaxLength
	}
	return domain.MaxChatLength
}

func (o *Orchestrator) chatInterval() time.Duration {
	if o.Limits.MinInterval > 0 {
		return o.Limits.MinInterval
	}
	return domain.ChatMinInterval
}

// Rooms status for APIs.
func (o *Orchestrator) ListRooms() []domain.RoomInfo {
	return o.Rooms.List()
}

func (o *Orchestrator) RoomInfo(id domain.RoomID) (domain.RoomInfo, bool) {
	room, ok := o.Rooms.Get(id)
	if !ok {
		return domain.RoomInfo{}, false
	}
	room.Lock()
	defer room.Unlock()
	if room.Closed() {
		return domain.RoomInfo{}, false
	}
	return room.Info(), true
}

func encode(v any) (core.Frame, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode event")
		return nil, false
	}
	return b, true
}

// send delivers v to a single connection.
func (o *Orchestrator) send(roomID domain.RoomID, cid domain.ConnID, v any) bool {
	f, ok := encode(v)
	if !ok {
		return false
	}
	return o.deliver(roomID, cid, f)
}

// broadcast delivers v to every member of room except except.
// The room must be locked.
func (o *Orchestrator) broadcast(room *core.RoomState, except domain.ConnID, v any) int {
	f, ok := encode(v)
	if !ok {
		return 0
	}
	sent := 0
	for _, cid := range room.MemberIDs(except) {
		if o.deliver(room.ID(), cid, f) {
			sent++
		}
	}
	log.Debug().Str("module", "orch").Str("room", string(room.ID())).Str("from", string(except)).Int("sent_to", sent).Msg("broadcast result")
	return sent
}

func (o *Orchestrator) deliver(roomID domain.RoomID, cid domain.ConnID, f core.Frame) bool {
	conn, ok := o.Directory.Conn(cid)
	if !ok || conn == nil {
		return false
	}
	err := conn.TrySend(f)
	if err == nil {
		return true
	}
	if errors.Is(err, core.ErrBackpressure) {
		metrics.BackpressureDrops.Inc()
		o.onBackpressure(roomID, cid)
	}
	return false
}

func (o *Orchestrator) onBackpressure(roomID domain.RoomID, cid domain.ConnID) {
	if o.Policy == nil {
		return
	}
	switch o.Policy.OnBackPressure(roomID, cid) {
	case app.KickMember:
		log.Warn().Str("module", "orch").Str("cid", string(cid)).Str("room", string(roomID)).Msg("slow connection kicked")
		o.Directory.Cancel(cid)
	case app.DropFrame, app.NoAction:
	}
}
