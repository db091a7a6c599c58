package orch

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dkeye/syncroom/internal/app"
	"github.com/dkeye/syncroom/internal/core"
	"github.com/dkeye/syncroom/internal/domain"
	"github.com/dkeye/syncroom/internal/metrics"
	"github.com/rs/zerolog/log"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// roomOf resolves the room cid was admitted to. roomID may be empty, in
// which case the session decides.
func (o *Orchestrator) roomOf(cid domain.ConnID, roomID domain.RoomID) (*core.RoomState, app.SessionInfo, error) {
	s, ok := o.Directory.Session(cid)
	if !ok || s.State != domain.Admitted {
		return nil, app.SessionInfo{}, domain.ErrUnauthorized
	}
	if roomID != "" && roomID != s.RoomID {
		return nil, app.SessionInfo{}, domain.ErrUnauthorized
	}
	room, ok := o.Rooms.Get(s.RoomID)
	if !ok {
		return nil, app.SessionInfo{}, domain.ErrUnauthorized
	}
	return room, s, nil
}

// Chat stores text in the room log and sends it to every member, sender
// included.
func (o *Orchestrator) Chat(cid domain.ConnID, roomID domain.RoomID, text, timestamp string) error {
	room, s, err := o.roomOf(cid, roomID)
	if err != nil {
		metrics.ChatMessages.WithLabelValues("unauthorized").Inc()
		return err
	}

	text = strings.TrimSpace(text)
	if limit := o.chatMaxLength(); text == "" || utf8.RuneCountInString(text) > limit {
		metrics.ChatMessages.WithLabelValues("invalid").Inc()
		o.send(s.RoomID, cid, ErrorEvent{
			Type:  EventError,
			Error: fmt.Sprintf("message must be between 1 and %d characters", limit),
		})
		return domain.ErrInvalidMessage
	}

	now := o.now()
	room.Lock()
	defer room.Unlock()
	if _, ok := room.Member(cid); !ok || room.Closed() {
		return domain.ErrUnauthorized
	}
	if !o.Directory.AllowChat(cid, now, o.chatInterval()) {
		metrics.ChatMessages.WithLabelValues("rate_limited").Inc()
		log.Debug().Str("module", "orch").Str("cid", string(cid)).Str("room", string(room.ID())).Msg("chat rate limited")
		return domain.ErrRateLimited
	}

	if timestamp == "" {
		timestamp = now.UTC().Format(timestampLayout)
	}
	msg := domain.ChatMessage{
		ID:        fmt.Sprintf("%s-%d", cid, now.UnixMilli()),
		Message:   text,
		Sender:    s.DisplayName,
		SenderID:  cid,
		Timestamp: timestamp,
	}
	room.AppendChat(msg)
	o.broadcast(room, "", ChatBroadcast{Type: EventChatMessage, ChatMessage: msg})
	metrics.ChatMessages.WithLabelValues("delivered").Inc()
	return nil
}

// MediaStateChanged tells the rest of the room that cid toggled its devices.
func (o *Orchestrator) MediaStateChanged(cid domain.ConnID, roomID domain.RoomID, audio, video bool) error {
	room, _, err := o.roomOf(cid, roomID)
	if err != nil {
		return err
	}
	room.Lock()
	defer room.Unlock()
	if _, ok := room.Member(cid); !ok {
		return domain.ErrUnauthorized
	}
	o.broadcast(room, cid, UserMediaState{
		Type:           EventUserMediaState,
		ConnID:         cid,
		IsAudioEnabled: audio,
		IsVideoEnabled: video,
	})
	return nil
}

// ScreenShare records that cid started or stopped sharing its screen.
func (o *Orchestrator) ScreenShare(cid domain.ConnID, roomID domain.RoomID, sharing bool) error {
	room, s, err := o.roomOf(cid, roomID)
	if err != nil {
		return err
	}
	room.Lock()
	defer room.Unlock()
	if !room.SetScreenSharing(cid, sharing) {
		return domain.ErrUnauthorized
	}
	o.broadcast(room, cid, UserScreenSharing{
		Type:        EventUserScreenSharing,
		ConnID:      cid,
		DisplayName: s.DisplayName,
		IsSharing:   sharing,
	})
	return nil
}

// UpdatePermissions replaces the room permissions. Only the host may do it;
// everyone, host included, gets the new set.
func (o *Orchestrator) UpdatePermissions(cid domain.ConnID, roomID domain.RoomID, perms domain.Permissions) error {
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		return domain.ErrUnauthorized
	}
	room.Lock()
	defer room.Unlock()
	if room.Closed() || cid == "" || room.Host() != cid {
		return domain.ErrUnauthorized
	}
	room.SetPermissions(perms)
	o.broadcast(room, "", PermissionsUpdated{Type: EventPermissionsUpdated, Permissions: perms})
	log.Info().
		Str("module", "orch").
		Str("room", string(roomID)).
		Bool("mic", perms.Mic).
		Bool("camera", perms.Camera).
		Bool("screen", perms.Screen).
		Msg("permissions updated")
	return nil
}
