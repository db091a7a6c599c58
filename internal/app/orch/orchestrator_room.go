package orch

import (
	"errors"

	"github.com/dkeye/syncroom/internal/app"
	"github.com/dkeye/syncroom/internal/core"
	"github.com/dkeye/syncroom/internal/domain"
	"github.com/dkeye/syncroom/internal/metrics"
	"github.com/rs/zerolog/log"
)

// HostJoin makes cid the host of roomID, creating the room if needed.
func (o *Orchestrator) HostJoin(cid domain.ConnID, roomID domain.RoomID, pid domain.ParticipantID, name string) error {
	if roomID == "" || pid == "" {
		o.rejectJoin(roomID, cid, domain.ErrInvalidMessage)
		return domain.ErrInvalidMessage
	}
	name = domain.NormalizeDisplayName(name)
	o.detach(cid, roomID)

	for {
		room, created := o.Rooms.GetOrCreate(roomID)
		room.Lock()
		if room.Closed() {
			// Destroyed between lookup and lock; the registry has a fresh slot.
			room.Unlock()
			continue
		}
		err := o.hostJoinLocked(room, cid, pid, name)
		empty := room.MemberCount() == 0
		room.Unlock()

		if err != nil {
			if created && empty {
				o.destroy(room)
			}
			o.rejectJoin(roomID, cid, err)
			return err
		}
		metrics.JoinOutcomes.WithLabelValues("host").Inc()
		log.Info().Str("module", "orch").Str("cid", string(cid)).Str("room", string(roomID)).Str("participant", string(pid)).Msg("host joined")
		return nil
	}
}

func (o *Orchestrator) hostJoinLocked(room *core.RoomState, cid domain.ConnID, pid domain.ParticipantID, name string) error {
	if _, ok := room.Member(cid); ok || room.HasIdentity(pid) {
		return domain.ErrAlreadyInRoom
	}
	if h := room.Host(); h != "" && h != cid {
		return domain.ErrHostPresent
	}

	room.RemovePending(cid)
	room.AddMember(domain.Participant{ConnID: cid, ParticipantID: pid, DisplayName: name, IsHost: true})
	room.SetHost(cid)
	o.Directory.SetSession(cid, app.SessionInfo{
		RoomID:        room.ID(),
		ParticipantID: pid,
		DisplayName:   name,
		IsHost:        true,
		State:         domain.Admitted,
	})

	o.send(room.ID(), cid, RoomJoined{
		Type:         EventRoomJoined,
		RoomID:       room.ID(),
		IsHost:       true,
		Participants: room.Members(cid),
		Permissions:  room.Permissions(),
		Messages:     room.ChatHistory(),
	})
	o.broadcast(room, cid, UserJoined{
		Type:          EventUserJoined,
		ConnID:        cid,
		ParticipantID: pid,
		DisplayName:   name,
		IsHost:        true,
	})
	return nil
}

// RequestJoin asks the host of roomID to admit cid. Identities admitted
// earlier in the same room instance skip the host.
func (o *Orchestrator) RequestJoin(cid domain.ConnID, roomID domain.RoomID, pid domain.ParticipantID, name string) error {
	if roomID == "" || pid == "" {
		o.rejectJoin(roomID, cid, domain.ErrInvalidMessage)
		return domain.ErrInvalidMessage
	}
	name = domain.NormalizeDisplayName(name)
	o.detach(cid, roomID)

	room, ok := o.Rooms.Get(roomID)
	if !ok {
		o.rejectJoin(roomID, cid, domain.ErrRoomNotStarted)
		return domain.ErrRoomNotStarted
	}
	room.Lock()
	err := o.requestJoinLocked(room, cid, pid, name)
	room.Unlock()

	if err != nil {
		o.rejectJoin(roomID, cid, err)
		return err
	}
	return nil
}

func (o *Orchestrator) requestJoinLocked(room *core.RoomState, cid domain.ConnID, pid domain.ParticipantID, name string) error {
	if room.Closed() || room.MemberCount() == 0 {
		return domain.ErrRoomNotStarted
	}
	if _, ok := room.Member(cid); ok || room.HasIdentity(pid) {
		return domain.ErrAlreadyInRoom
	}
	if req, ok := room.Pending(cid); ok && req.ParticipantID == pid {
		// Same connection asking again: remind it, do not bother the host.
		o.send(room.ID(), cid, WaitingForApproval{Type: EventWaitingForApproval, Message: messageWaitingForHost})
		return nil
	}
	if room.IsPending(pid) {
		return domain.ErrAlreadyPending
	}
	host := room.Host()
	if host == "" || !o.Directory.Has(host) {
		return domain.ErrHostUnavailable
	}

	req := domain.JoinRequest{ConnID: cid, ParticipantID: pid, DisplayName: name}
	if room.IsAdmitted(pid) {
		o.admitLocked(room, req)
		metrics.JoinOutcomes.WithLabelValues("readmitted").Inc()
		log.Info().Str("module", "orch").Str("cid", string(cid)).Str("room", string(room.ID())).Str("participant", string(pid)).Msg("readmitted without host")
		return nil
	}

	room.AddPending(req)
	o.Directory.SetSession(cid, app.SessionInfo{
		RoomID:        room.ID(),
		ParticipantID: pid,
		DisplayName:   name,
		State:         domain.Pending,
	})
	o.send(room.ID(), host, JoinRequested{Type: EventJoinRequest, JoinRequest: req})
	o.send(room.ID(), cid, WaitingForApproval{Type: EventWaitingForApproval, Message: messageWaitingForHost})
	metrics.JoinOutcomes.WithLabelValues("pending").Inc()
	log.Info().Str("module", "orch").Str("cid", string(cid)).Str("room", string(room.ID())).Str("participant", string(pid)).Msg("join request queued")
	return nil
}

// Approve admits target into roomID. Only the current host may call it.
func (o *Orchestrator) Approve(hostCID, target domain.ConnID, roomID domain.RoomID) error {
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		return domain.ErrUnauthorized
	}
	room.Lock()
	defer room.Unlock()

	if room.Closed() || hostCID == "" || room.Host() != hostCID {
		return domain.ErrUnauthorized
	}
	req, ok := room.Pending(target)
	if !ok {
		return nil
	}
	if room.HasIdentity(req.ParticipantID) {
		room.RemovePending(target)
		o.Directory.ClearPending(target, roomID)
		o.send(roomID, target, JoinRejected{Type: EventJoinRejected, Reason: reasonOtherTab})
		metrics.JoinOutcomes.WithLabelValues("duplicate").Inc()
		return domain.ErrAlreadyInRoom
	}
	if !o.Directory.Has(target) {
		room.RemovePending(target)
		return domain.ErrTargetUnreachable
	}

	o.admitLocked(room, req)
	metrics.JoinOutcomes.WithLabelValues("approved").Inc()
	log.Info().Str("module", "orch").Str("cid", string(target)).Str("room", string(roomID)).Str("participant", string(req.ParticipantID)).Msg("join approved")
	return nil
}

func (o *Orchestrator) admitLocked(room *core.RoomState, req domain.JoinRequest) {
	room.RemovePending(req.ConnID)
	room.Admit(req.ParticipantID)
	room.AddMember(domain.Participant{
		ConnID:        req.ConnID,
		ParticipantID: req.ParticipantID,
		DisplayName:   req.DisplayName,
	})
	o.Directory.SetSession(req.ConnID, app.SessionInfo{
		RoomID:        room.ID(),
		ParticipantID: req.ParticipantID,
		DisplayName:   req.DisplayName,
		State:         domain.Admitted,
	})

	o.send(room.ID(), req.ConnID, JoinApproved{
		Type:         EventJoinApproved,
		RoomID:       room.ID(),
		Participants: room.Members(req.ConnID),
		Permissions:  room.Permissions(),
		Messages:     room.ChatHistory(),
	})
	o.broadcast(room, req.ConnID, UserJoined{
		Type:          EventUserJoined,
		ConnID:        req.ConnID,
		ParticipantID: req.ParticipantID,
		DisplayName:   req.DisplayName,
	})
}

// Reject turns down a pending request. Only the current host may call it.
func (o *Orchestrator) Reject(hostCID, target domain.ConnID, roomID domain.RoomID) error {
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		return domain.ErrUnauthorized
	}
	room.Lock()
	defer room.Unlock()

	if room.Closed() || hostCID == "" || room.Host() != hostCID {
		return domain.ErrUnauthorized
	}
	if _, ok := room.RemovePending(target); !ok {
		return nil
	}
	o.Directory.ClearPending(target, roomID)
	o.send(roomID, target, JoinRejected{Type: EventJoinRejected, Reason: reasonHostDenied})
	metrics.JoinOutcomes.WithLabelValues("denied").Inc()
	log.Info().Str("module", "orch").Str("cid", string(target)).Str("room", string(roomID)).Msg("join denied")
	return nil
}

// Leave removes cid from the room its session names. It is a no-op for
// connections without a session.
func (o *Orchestrator) Leave(cid domain.ConnID) {
	s, ok := o.Directory.Session(cid)
	if !ok {
		return
	}
	if room, ok := o.Rooms.Get(s.RoomID); ok {
		o.leaveRoom(room, cid)
	}
	o.Directory.ClearSession(cid)
}

func (o *Orchestrator) leaveRoom(room *core.RoomState, cid domain.ConnID) {
	room.Lock()
	if room.Closed() {
		room.Unlock()
		return
	}
	room.RemovePending(cid)
	p, wasMember := room.RemoveMember(cid)
	if wasMember {
		if p.IsHost {
			o.broadcast(room, cid, HostLeft{Type: EventHostLeft, Message: messageHostEnded})
		}
		o.broadcast(room, cid, UserLeft{
			Type:          EventUserLeft,
			ConnID:        cid,
			ParticipantID: p.ParticipantID,
			DisplayName:   p.DisplayName,
		})
	}
	empty := room.MemberCount() == 0
	room.Unlock()

	if wasMember {
		log.Info().Str("module", "orch").Str("cid", string(cid)).Str("room", string(room.ID())).Bool("host", p.IsHost).Msg("left room")
	}
	if wasMember && empty {
		o.destroy(room)
	}
}

// OnDisconnect is called by the transport once the connection is gone.
func (o *Orchestrator) OnDisconnect(cid domain.ConnID) {
	o.Leave(cid)
	for _, room := range o.Rooms.Snapshot() {
		room.Lock()
		if _, ok := room.RemovePending(cid); ok {
			log.Debug().Str("module", "orch").Str("cid", string(cid)).Str("room", string(room.ID())).Msg("purged stale join request")
		}
		room.Unlock()
	}
	o.Directory.Unbind(cid)
}

// detach leaves whatever room cid is in unless it is roomID.
func (o *Orchestrator) detach(cid domain.ConnID, roomID domain.RoomID) {
	if s, ok := o.Directory.Session(cid); ok && s.RoomID != roomID {
		o.Leave(cid)
	}
}

// destroy drops room if it is still empty and tells requesters still
// waiting on it that the meeting is over.
func (o *Orchestrator) destroy(room *core.RoomState) {
	dropped, ok := o.Rooms.DestroyIfEmpty(room)
	if !ok {
		return
	}
	for _, req := range dropped {
		if o.Directory.ClearPending(req.ConnID, room.ID()) {
			o.send(room.ID(), req.ConnID, JoinRejected{Type: EventJoinRejected, Reason: reasonMeetingEnded})
		}
	}
}

func (o *Orchestrator) rejectJoin(roomID domain.RoomID, cid domain.ConnID, err error) {
	o.send(roomID, cid, JoinRejected{Type: EventJoinRejected, Reason: rejectReason(err)})
	metrics.JoinOutcomes.WithLabelValues(outcomeLabel(err)).Inc()
	log.Info().Err(err).Str("module", "orch").Str("cid", string(cid)).Str("room", string(roomID)).Msg("join rejected")
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyInRoom):
		return "already_in_room"
	case errors.Is(err, domain.ErrAlreadyPending):
		return "already_pending"
	case errors.Is(err, domain.ErrRoomNotStarted):
		return "room_not_started"
	case errors.Is(err, domain.ErrHostUnavailable):
		return "host_unavailable"
	case errors.Is(err, domain.ErrHostPresent):
		return "host_present"
	default:
		return "invalid"
	}
}
