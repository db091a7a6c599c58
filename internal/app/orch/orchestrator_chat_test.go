package orch

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/syncroom/internal/core"
	"github.com/dkeye/syncroom/internal/domain"
)

func TestChatBroadcastIncludesSender(t *testing.T) {
	h := newHarness()
	host, guest := h.hostedRoom(t, "abc123")

	if err := h.o.Chat("g1", "abc123", "  hello  ", ""); err != nil {
		t.Fatal(err)
	}
	for _, c := range []*recordingConn{host, guest} {
		ev := c.last(t, EventChatMessage)
		if ev["message"] != "hello" || ev["sender"] != "Gus" || ev["senderId"] != "g1" {
			t.Fatalf("chat-message = %v", ev)
		}
		if ev["timestamp"] != "2025-03-01T12:00:00.000Z" {
			t.Fatalf("timestamp = %v", ev["timestamp"])
		}
	}
}

func TestChatRateLimit(t *testing.T) {
	h := newHarness()
	host, _ := h.hostedRoom(t, "abc123")

	if err := h.o.Chat("g1", "abc123", "hello", ""); err != nil {
		t.Fatal(err)
	}
	h.advance(100 * time.Millisecond)
	if err := h.o.Chat("g1", "abc123", "world", ""); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("err = %v", err)
	}

	msgs := host.ofType(t, EventChatMessage)
	if len(msgs) != 1 || msgs[0]["message"] != "hello" {
		t.Fatalf("host got %v", msgs)
	}

	h.advance(400 * time.Millisecond)
	if err := h.o.Chat("g1", "abc123", "again", ""); err != nil {
		t.Fatalf("after interval: %v", err)
	}
}

func TestChatLogKeepsLastFifty(t *testing.T) {
	h := newHarness()
	h.hostedRoom(t, "abc123")

	for i := 0; i < 60; i++ {
		if err := h.o.Chat("g1", "abc123", fmt.Sprintf("m%d", i), ""); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
		h.advance(time.Second)
	}

	h.withRoom(t, "abc123", func(r *core.RoomState) {
		log := r.ChatHistory()
		if len(log) != domain.MaxChatHistory {
			t.Fatalf("len = %d", len(log))
		}
		for i, m := range log {
			if want := fmt.Sprintf("m%d", i+10); m.Message != want {
				t.Fatalf("log[%d] = %q, want %q", i, m.Message, want)
			}
		}
	})

	late := h.connect("g2")
	h.o.RequestJoin("g2", "abc123", "guest-2", "Gwen")
	h.o.Approve("h1", "g2", "abc123")
	if msgs := late.last(t, EventJoinApproved)["messages"].([]any); len(msgs) != domain.MaxChatHistory {
		t.Fatalf("history sent to newcomer = %d", len(msgs))
	}
}

func TestChatValidation(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"blank", "   \t"},
		{"too long", strings.Repeat("é", domain.MaxChatLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			host, guest := h.hostedRoom(t, "abc123")
			host.reset()

			if err := h.o.Chat("g1", "abc123", tt.text, ""); !errors.Is(err, domain.ErrInvalidMessage) {
				t.Fatalf("err = %v", err)
			}
			guest.last(t, EventError)
			if len(host.events(t)) != 0 {
				t.Fatal("invalid chat reached the room")
			}
		})
	}

	h := newHarness()
	h.hostedRoom(t, "abc123")
	if err := h.o.Chat("g1", "abc123", strings.Repeat("é", domain.MaxChatLength), ""); err != nil {
		t.Fatalf("max length message rejected: %v", err)
	}
}

func TestChatConfiguredLimits(t *testing.T) {
	h := newHarness()
	h.o.Limits = ChatLimits{MaxLength: 5, MinInterval: 2 * time.Second}
	host, guest := h.hostedRoom(t, "abc123")

	if err := h.o.Chat("g1", "abc123", "toolong", ""); !errors.Is(err, domain.ErrInvalidMessage) {
		t.Fatalf("err = %v", err)
	}
	if got := guest.last(t, EventError)["error"]; got != "message must be between 1 and 5 characters" {
		t.Fatalf("error = %v", got)
	}

	if err := h.o.Chat("g1", "abc123", "short", ""); err != nil {
		t.Fatal(err)
	}
	h.advance(time.Second)
	if err := h.o.Chat("g1", "abc123", "again", ""); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("inside configured interval err = %v", err)
	}
	h.advance(time.Second)
	if err := h.o.Chat("g1", "abc123", "again", ""); err != nil {
		t.Fatalf("after configured interval: %v", err)
	}
	if n := len(host.ofType(t, EventChatMessage)); n != 2 {
		t.Fatalf("host got %d chat messages", n)
	}
}

func TestChatRequiresMembership(t *testing.T) {
	h := newHarness()
	host, _ := h.hostedRoom(t, "abc123")
	h.connect("g2")
	if err := h.o.RequestJoin("g2", "abc123", "guest-2", "Gwen"); err != nil {
		t.Fatal(err)
	}
	host.reset()

	if err := h.o.Chat("g2", "abc123", "let me in", ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("pending chat err = %v", err)
	}
	if err := h.o.Chat("g1", "other-room", "hi", ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("wrong room err = %v", err)
	}
	if len(host.ofType(t, EventChatMessage)) != 0 {
		t.Fatal("unauthorized chat broadcast")
	}
}

func TestMediaAndScreenShareExcludeSender(t *testing.T) {
	h := newHarness()
	host, guest := h.hostedRoom(t, "abc123")
	h.resetAll()

	if err := h.o.MediaStateChanged("g1", "abc123", false, true); err != nil {
		t.Fatal(err)
	}
	ev := host.last(t, EventUserMediaState)
	if ev["connectionId"] != "g1" || ev["isAudioEnabled"] != false || ev["isVideoEnabled"] != true {
		t.Fatalf("media state = %v", ev)
	}

	if err := h.o.ScreenShare("g1", "abc123", true); err != nil {
		t.Fatal(err)
	}
	if ev := host.last(t, EventUserScreenSharing); ev["isSharing"] != true || ev["displayName"] != "Gus" {
		t.Fatalf("screen sharing = %v", ev)
	}
	if len(guest.events(t)) != 0 {
		t.Fatalf("sender got its own events: %v", guest.types(t))
	}

	h.withRoom(t, "abc123", func(r *core.RoomState) {
		if p, _ := r.Member("g1"); !p.IsScreenSharing {
			t.Fatal("screen sharing not recorded")
		}
	})

	// Newcomers see who is sharing.
	late := h.connect("g2")
	h.o.RequestJoin("g2", "abc123", "guest-2", "Gwen")
	h.o.Approve("h1", "g2", "abc123")
	var sharing bool
	for _, p := range late.last(t, EventJoinApproved)["participants"].([]any) {
		m := p.(map[string]any)
		if m["connectionId"] == "g1" {
			sharing = m["isScreenSharing"] == true
		}
	}
	if !sharing {
		t.Fatal("roster lost screen sharing flag")
	}
}

func TestUpdatePermissionsReachesEveryone(t *testing.T) {
	h := newHarness()
	host, guest := h.hostedRoom(t, "abc123")

	perms := domain.Permissions{Mic: true, Camera: false, Screen: false}
	if err := h.o.UpdatePermissions("h1", "abc123", perms); err != nil {
		t.Fatal(err)
	}
	for _, c := range []*recordingConn{host, guest} {
		got := c.last(t, EventPermissionsUpdated)["permissions"].(map[string]any)
		if got["mic"] != true || got["camera"] != false || got["screen"] != false {
			t.Fatalf("permissions-updated = %v", got)
		}
	}
	h.withRoom(t, "abc123", func(r *core.RoomState) {
		if r.Permissions() != perms {
			t.Fatalf("stored = %+v", r.Permissions())
		}
	})
}
