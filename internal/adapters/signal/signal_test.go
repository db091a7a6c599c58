package signal

import (
	"errors"
	"testing"

	"github.com/dkeye/syncroom/internal/core"
	"github.com/dkeye/syncroom/internal/domain"
)

func TestWsSignalConnTrySend(t *testing.T) {
	c := &WsSignalConn{send: make(chan core.Frame, 1)}

	if err := c.TrySend(core.Frame("a")); err != nil {
		t.Fatal(err)
	}
	if err := c.TrySend(core.Frame("b")); !errors.Is(err, core.ErrBackpressure) {
		t.Fatalf("full buffer err = %v", err)
	}

	c.Close()
	c.Close()
	if err := c.TrySend(core.Frame("c")); !errors.Is(err, core.ErrConnClosed) {
		t.Fatalf("closed err = %v", err)
	}
}

func TestIdentityResolution(t *testing.T) {
	tests := []struct {
		name    string
		conn    *WsSignalConn
		claimed string
		want    domain.ParticipantID
	}{
		{"token subject wins", &WsSignalConn{subject: "sub", clientToken: "ct"}, "claimed", "sub"},
		{"claimed identity", &WsSignalConn{clientToken: "ct"}, "claimed", "claimed"},
		{"client token fallback", &WsSignalConn{clientToken: "ct"}, "", "ct"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.conn.identity(tt.claimed); got != tt.want {
				t.Fatalf("identity = %q, want %q", got, tt.want)
			}
		})
	}
}
