package app

import (
	"testing"
	"time"

	"github.com/dkeye/syncroom/internal/core/mocks"
	"github.com/dkeye/syncroom/internal/domain"
	"go.uber.org/mock/gomock"
)

func TestDirectoryBindAndSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := NewDirectory()
	conn := mocks.NewMockSignalConnection(ctrl)

	d.Bind("c1", conn, nil)
	if !d.Has("c1") || d.Count() != 1 {
		t.Fatal("connection not bound")
	}
	if got, ok := d.Conn("c1"); !ok || got != conn {
		t.Fatal("Conn returned wrong handle")
	}
	if _, ok := d.Session("c1"); ok {
		t.Fatal("fresh connection must have no session")
	}

	d.SetSession("c1", SessionInfo{RoomID: "r", ParticipantID: "alice", State: domain.Pending})
	s, ok := d.Session("c1")
	if !ok || s.ParticipantID != "alice" || s.State != domain.Pending {
		t.Fatalf("Session = %+v, %v", s, ok)
	}

	d.Unbind("c1")
	if d.Has("c1") || d.SetSession("c1", SessionInfo{}) {
		t.Fatal("unbound connection still reachable")
	}
}

func TestDirectoryClearPending(t *testing.T) {
	d := NewDirectory()
	d.Bind("c1", nil, nil)

	d.SetSession("c1", SessionInfo{RoomID: "r", State: domain.Admitted})
	if d.ClearPending("c1", "r") {
		t.Fatal("admitted session must not be cleared")
	}
	d.SetSession("c1", SessionInfo{RoomID: "r", State: domain.Pending})
	if d.ClearPending("c1", "other") {
		t.Fatal("session of another room must not be cleared")
	}
	if !d.ClearPending("c1", "r") {
		t.Fatal("pending session not cleared")
	}
	if _, ok := d.Session("c1"); ok {
		t.Fatal("session still present")
	}
}

func TestDirectoryAllowChat(t *testing.T) {
	d := NewDirectory()
	d.Bind("c1", nil, nil)

	t0 := time.Unix(1_700_000_000, 0)
	if d.AllowChat("c1", t0, domain.ChatMinInterval) {
		t.Fatal("connection without session must not chat")
	}
	d.SetSession("c1", SessionInfo{RoomID: "r", State: domain.Admitted})

	steps := []struct {
		at   time.Duration
		want bool
	}{
		{0, true},
		{100 * time.Millisecond, false},
		{499 * time.Millisecond, false},
		{500 * time.Millisecond, true},
		{600 * time.Millisecond, false},
		{1100 * time.Millisecond, true},
	}
	for _, s := range steps {
		if got := d.AllowChat("c1", t0.Add(s.at), domain.ChatMinInterval); got != s.want {
			t.Fatalf("AllowChat at +%v = %v, want %v", s.at, got, s.want)
		}
	}
}

func TestDirectorySetSessionKeepsChatClock(t *testing.T) {
	d := NewDirectory()
	d.Bind("c1", nil, nil)
	t0 := time.Unix(1_700_000_000, 0)

	d.SetSession("c1", SessionInfo{RoomID: "r", State: domain.Admitted})
	d.AllowChat("c1", t0, domain.ChatMinInterval)
	d.SetSession("c1", SessionInfo{RoomID: "r", State: domain.Admitted, IsHost: true})

	if d.AllowChat("c1", t0.Add(10*time.Millisecond), domain.ChatMinInterval) {
		t.Fatal("session update reset the chat rate limit")
	}
}

func TestDirectoryCancel(t *testing.T) {
	d := NewDirectory()
	canceled := false
	d.Bind("c1", nil, func() { canceled = true })

	if !d.Cancel("c1") || !canceled {
		t.Fatal("cancel func not invoked")
	}
	if d.Cancel("missing") {
		t.Fatal("cancel of unknown connection must report false")
	}
}
