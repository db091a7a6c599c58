package orch

import (
	"sync"
	"testing"
	"time"

	"github.com/dkeye/syncroom/internal/app"
	"github.com/dkeye/syncroom/internal/core"
	"github.com/dkeye/syncroom/internal/domain"
	json "github.com/goccy/go-json"
)

// recordingConn keeps every frame it was asked to send.
type recordingConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (c *recordingConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, append(core.Frame(nil), f...))
	return nil
}

func (c *recordingConn) Close() {}

func (c *recordingConn) events(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		if err := json.Unmarshal(f, &m); err != nil {
			t.Fatalf("bad frame %q: %v", f, err)
		}
		out = append(out, m)
	}
	return out
}

func (c *recordingConn) ofType(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, e := range c.events(t) {
		if e["type"] == typ {
			out = append(out, e)
		}
	}
	return out
}

// last returns the most recent event of typ and fails if there is none.
func (c *recordingConn) last(t *testing.T, typ string) map[string]any {
	t.Helper()
	evs := c.ofType(t, typ)
	if len(evs) == 0 {
		t.Fatalf("no %q event, got %v", typ, c.types(t))
	}
	return evs[len(evs)-1]
}

func (c *recordingConn) types(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, e := range c.events(t) {
		out = append(out, e["type"].(string))
	}
	return out
}

func (c *recordingConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

type harness struct {
	o     *Orchestrator
	mu    sync.Mutex
	clock time.Time
	conns map[domain.ConnID]*recordingConn
}

func newHarness() *harness {
	h := &harness{
		clock: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		conns: make(map[domain.ConnID]*recordingConn),
	}
	h.o = &Orchestrator{
		Directory: app.NewDirectory(),
		Rooms:     core.NewRoomRegistry(0),
		Policy:    app.SimplePolicy{},
		Now:       h.now,
	}
	return h
}

func (h *harness) now() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clock
}

func (h *harness) advance(d time.Duration) {
	h.mu.Lock()
	h.clock = h.clock.Add(d)
	h.mu.Unlock()
}

func (h *harness) connect(cid domain.ConnID) *recordingConn {
	c := &recordingConn{}
	h.mu.Lock()
	h.conns[cid] = c
	h.mu.Unlock()
	h.o.Directory.Bind(cid, c, func() {})
	return c
}

func (h *harness) resetAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.conns {
		c.reset()
	}
}

func (h *harness) totalFrames() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.conns {
		c.mu.Lock()
		n += len(c.frames)
		c.mu.Unlock()
	}
	return n
}

// withRoom runs fn against the live room id under its lock.
func (h *harness) withRoom(t *testing.T, id domain.RoomID, fn func(r *core.RoomState)) {
	t.Helper()
	room, ok := h.o.Rooms.Get(id)
	if !ok {
		t.Fatalf("room %q not found", id)
	}
	room.Lock()
	defer room.Unlock()
	fn(room)
}

// hostedRoom sets up a room with host h1 and admitted guest g1.
func (h *harness) hostedRoom(t *testing.T, id domain.RoomID) (host, guest *recordingConn) {
	t.Helper()
	host = h.connect("h1")
	guest = h.connect("g1")
	if err := h.o.HostJoin("h1", id, "host", "Hannah"); err != nil {
		t.Fatalf("HostJoin: %v", err)
	}
	if err := h.o.RequestJoin("g1", id, "guest-1", "Gus"); err != nil {
		t.Fatalf("RequestJoin: %v", err)
	}
	if err := h.o.Approve("h1", "g1", id); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	return host, guest
}
