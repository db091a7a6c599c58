package core

import (
	"sync"

	"github.com/dkeye/syncroom/internal/domain"
	"github.com/dkeye/syncroom/internal/metrics"
	"github.com/rs/zerolog/log"
)

// RoomRegistry owns every live RoomState.
// Lock order is registry first, then room.
type RoomRegistry struct {
	mu        sync.RWMutex
	rooms     map[domain.RoomID]*RoomState
	chatLimit int
}

func NewRoomRegistry(chatLimit int) *RoomRegistry {
	return &RoomRegistry{
		rooms:     make(map[domain.RoomID]*RoomState),
		chatLimit: chatLimit,
	}
}

// GetOrCreate returns the live room for id, creating an empty one with
// default permissions when none exists.
func (m *RoomRegistry) GetOrCreate(id domain.RoomID) (*RoomState, bool) {
	m.mu.RLock()
	room, ok := m.rooms[id]
	m.mu.RUnlock()
	if ok {
		return room, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok = m.rooms[id]; ok {
		return room, false
	}
	room = newRoomState(id, m.chatLimit)
	m.rooms[id] = room
	metrics.RoomsActive.Inc()
	log.Info().Str("module", "core.registry").Str("room", string(id)).Msg("room created")
	return room, true
}

func (m *RoomRegistry) Get(id domain.RoomID) (*RoomState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[id]
	return room, ok
}

// DestroyIfEmpty removes room if it has no members left. Pending queue, host
// pointer and admitted identities go with it in one step; the discarded
// pending requests are returned so callers can notify them.
func (m *RoomRegistry) DestroyIfEmpty(room *RoomState) ([]domain.JoinRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room.Lock()
	defer room.Unlock()

	if room.closed || room.MemberCount() > 0 {
		return nil, false
	}
	if cur, ok := m.rooms[room.id]; ok && cur == room {
		delete(m.rooms, room.id)
	}
	dropped := room.close()
	metrics.RoomsActive.Dec()
	log.Info().Str("module", "core.registry").Str("room", string(room.id)).Int("dropped_pending", len(dropped)).Msg("room destroyed")
	return dropped, true
}

// Snapshot returns the rooms alive at the time of the call.
func (m *RoomRegistry) Snapshot() []*RoomState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*RoomState, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	return out
}

func (m *RoomRegistry) List() []domain.RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.RoomInfo, 0, len(m.rooms))
	for _, r := range m.rooms {
		r.Lock()
		out = append(out, r.Info())
		r.Unlock()
	}
	return out
}

func (m *RoomRegistry) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
