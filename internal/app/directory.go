package app

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/syncroom/internal/core"
	"github.com/dkeye/syncroom/internal/domain"
	"github.com/dkeye/syncroom/internal/metrics"
	"github.com/rs/zerolog/log"
)

// SessionInfo is what a connection carries once it tried to join a room.
type SessionInfo struct {
	RoomID        domain.RoomID
	ParticipantID domain.ParticipantID
	DisplayName   string
	IsHost        bool
	State         domain.AdmissionState
	LastChatAt    time.Time
}

type connEntry struct {
	Conn   core.SignalConnection
	Cancel context.CancelFunc

	mu      sync.Mutex
	session *SessionInfo
}

// Directory maps live connections to their transport and session.
type Directory struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]*connEntry
}

func NewDirectory() *Directory {
	return &Directory{
		conns: make(map[domain.ConnID]*connEntry),
	}
}

func (d *Directory) Bind(cid domain.ConnID, conn core.SignalConnection, cancel context.CancelFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.conns[cid]; !ok {
		metrics.ConnectionsActive.Inc()
	}
	d.conns[cid] = &connEntry{Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.directory").Str("cid", string(cid)).Msg("bound connection")
}

func (d *Directory) Unbind(cid domain.ConnID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.conns[cid]; !ok {
		return
	}
	delete(d.conns, cid)
	metrics.ConnectionsActive.Dec()
	log.Info().Str("module", "app.directory").Str("cid", string(cid)).Msg("unbound connection")
}

func (d *Directory) entry(cid domain.ConnID) (*connEntry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.conns[cid]
	return e, ok
}

// Has reports whether cid is a live connection.
func (d *Directory) Has(cid domain.ConnID) bool {
	_, ok := d.entry(cid)
	return ok
}

func (d *Directory) Conn(cid domain.ConnID) (core.SignalConnection, bool) {
	e, ok := d.entry(cid)
	if !ok {
		return nil, false
	}
	return e.Conn, true
}

// Session returns a copy of the session attached to cid.
func (d *Directory) Session(cid domain.ConnID) (SessionInfo, bool) {
	e, ok := d.entry(cid)
	if !ok {
		return SessionInfo{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return SessionInfo{}, false
	}
	return *e.session, true
}

// SetSession attaches s to cid. The chat timestamp of a previous session in
// the same room is kept so rejoining does not reset rate limiting.
func (d *Directory) SetSession(cid domain.ConnID, s SessionInfo) bool {
	e, ok := d.entry(cid)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil && e.session.RoomID == s.RoomID && s.LastChatAt.IsZero() {
		s.LastChatAt = e.session.LastChatAt
	}
	e.session = &s
	log.Debug().
		Str("module", "app.directory").
		Str("cid", string(cid)).
		Str("room", string(s.RoomID)).
		Str("state", s.State.String()).
		Msg("session updated")
	return true
}

func (d *Directory) ClearSession(cid domain.ConnID) {
	e, ok := d.entry(cid)
	if !ok {
		return
	}
	e.mu.Lock()
	e.session = nil
	e.mu.Unlock()
}

// ClearPending drops the session of cid only while it still waits for
// approval in roomID.
func (d *Directory) ClearPending(cid domain.ConnID, roomID domain.RoomID) bool {
	e, ok := d.entry(cid)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil || e.session.RoomID != roomID || e.session.State != domain.Pending {
		return false
	}
	e.session = nil
	return true
}

// AllowChat records now as the last accepted chat time of cid when at least
// interval passed since the previous accepted message.
func (d *Directory) AllowChat(cid domain.ConnID, now time.Time, interval time.Duration) bool {
	e, ok := d.entry(cid)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return false
	}
	if !e.session.LastChatAt.IsZero() && now.Sub(e.session.LastChatAt) < interval {
		return false
	}
	e.session.LastChatAt = now
	return true
}

// Cancel stops the transport of cid. The adapter unbinds it on exit.
func (d *Directory) Cancel(cid domain.ConnID) bool {
	e, ok := d.entry(cid)
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.directory").Str("cid", string(cid)).Msg("canceled connection")
	return true
}

func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.conns)
}
