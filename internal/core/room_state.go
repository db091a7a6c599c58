package core

import (
	"slices"
	"strings"
	"sync"

	"github.com/dkeye/syncroom/internal/domain"
)

// RoomState is the in-memory aggregate of one live room.
//
// Lock and Unlock give exclusive access. Every other method must be called
// with the room locked; none of them lock on their own.
type RoomState struct {
	id domain.RoomID

	mu       sync.Mutex
	closed   bool
	members  map[domain.ConnID]*domain.Participant
	pending  map[domain.ConnID]domain.JoinRequest
	admitted map[domain.ParticipantID]struct{}
	host     domain.ConnID

	permissions domain.Permissions
	chat        []domain.ChatMessage
	chatLimit   int
}

func newRoomState(id domain.RoomID, chatLimit int) *RoomState {
	if chatLimit <= 0 {
		chatLimit = domain.MaxChatHistory
	}
	return &RoomState{
		id:          id,
		members:     make(map[domain.ConnID]*domain.Participant),
		pending:     make(map[domain.ConnID]domain.JoinRequest),
		admitted:    make(map[domain.ParticipantID]struct{}),
		permissions: domain.DefaultPermissions(),
		chat:        make([]domain.ChatMessage, 0, chatLimit),
		chatLimit:   chatLimit,
	}
}

func (r *RoomState) ID() domain.RoomID { return r.id }

func (r *RoomState) Lock()   { r.mu.Lock() }
func (r *RoomState) Unlock() { r.mu.Unlock() }

// Closed reports whether the registry already destroyed this room.
// A closed room must not be mutated.
func (r *RoomState) Closed() bool { return r.closed }

func (r *RoomState) MemberCount() int  { return len(r.members) }
func (r *RoomState) PendingCount() int { return len(r.pending) }

func (r *RoomState) Member(cid domain.ConnID) (domain.Participant, bool) {
	p, ok := r.members[cid]
	if !ok {
		return domain.Participant{}, false
	}
	return *p, true
}

// HasIdentity reports whether pid is currently a member.
func (r *RoomState) HasIdentity(pid domain.ParticipantID) bool {
	for _, p := range r.members {
		if p.ParticipantID == pid {
			return true
		}
	}
	return false
}

func (r *RoomState) AddMember(p domain.Participant) {
	r.members[p.ConnID] = &p
}

// RemoveMember drops cid from the roster and clears the host pointer if cid
// was the host.
func (r *RoomState) RemoveMember(cid domain.ConnID) (domain.Participant, bool) {
	p, ok := r.members[cid]
	if !ok {
		return domain.Participant{}, false
	}
	delete(r.members, cid)
	if r.host == cid {
		r.host = ""
	}
	return *p, true
}

// Members returns the roster without except, ordered by connection id.
func (r *RoomState) Members(except domain.ConnID) []domain.Participant {
	out := make([]domain.Participant, 0, len(r.members))
	for cid, p := range r.members {
		if cid == except {
			continue
		}
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b domain.Participant) int {
		return strings.Compare(string(a.ConnID), string(b.ConnID))
	})
	return out
}

// MemberIDs returns connection ids of all members except except.
func (r *RoomState) MemberIDs(except domain.ConnID) []domain.ConnID {
	out := make([]domain.ConnID, 0, len(r.members))
	for cid := range r.members {
		if cid != except {
			out = append(out, cid)
		}
	}
	return out
}

func (r *RoomState) SetScreenSharing(cid domain.ConnID, sharing bool) bool {
	p, ok := r.members[cid]
	if !ok {
		return false
	}
	p.IsScreenSharing = sharing
	return true
}

func (r *RoomState) Host() domain.ConnID { return r.host }

func (r *RoomState) SetHost(cid domain.ConnID) { r.host = cid }

func (r *RoomState) Pending(cid domain.ConnID) (domain.JoinRequest, bool) {
	req, ok := r.pending[cid]
	return req, ok
}

// IsPending reports whether pid already waits for approval.
func (r *RoomState) IsPending(pid domain.ParticipantID) bool {
	for _, req := range r.pending {
		if req.ParticipantID == pid {
			return true
		}
	}
	return false
}

func (r *RoomState) AddPending(req domain.JoinRequest) {
	r.pending[req.ConnID] = req
}

func (r *RoomState) RemovePending(cid domain.ConnID) (domain.JoinRequest, bool) {
	req, ok := r.pending[cid]
	if ok {
		delete(r.pending, cid)
	}
	return req, ok
}

// Admit records pid as approved for the lifetime of the room.
func (r *RoomState) Admit(pid domain.ParticipantID) {
	r.admitted[pid] = struct{}{}
}

func (r *RoomState) IsAdmitted(pid domain.ParticipantID) bool {
	_, ok := r.admitted[pid]
	return ok
}

func (r *RoomState) Permissions() domain.Permissions { return r.permissions }

func (r *RoomState) SetPermissions(p domain.Permissions) { r.permissions = p }

// AppendChat stores msg, evicting the oldest entries beyond the limit.
func (r *RoomState) AppendChat(msg domain.ChatMessage) {
	if len(r.chat) >= r.chatLimit {
		n := copy(r.chat, r.chat[len(r.chat)-r.chatLimit+1:])
		r.chat = r.chat[:n]
	}
	r.chat = append(r.chat, msg)
}

// ChatHistory returns a copy of the log, oldest first.
func (r *RoomState) ChatHistory() []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(r.chat))
	copy(out, r.chat)
	return out
}

func (r *RoomState) Info() domain.RoomInfo {
	return domain.RoomInfo{
		ID:           r.id,
		MemberCount:  len(r.members),
		PendingCount: len(r.pending),
		HostPresent:  r.host != "",
	}
}

// close discards everything the room still holds and returns the pending
// requests that were dropped.
func (r *RoomState) close() []domain.JoinRequest {
	dropped := make([]domain.JoinRequest, 0, len(r.pending))
	for _, req := range r.pending {
		dropped = append(dropped, req)
	}
	r.closed = true
	r.members = map[domain.ConnID]*domain.Participant{}
	r.pending = map[domain.ConnID]domain.JoinRequest{}
	r.admitted = map[domain.ParticipantID]struct{}{}
	r.host = ""
	r.chat = nil
	return dropped
}
