package core

import "errors"

//go:generate mockgen -source=signal_iface.go -destination=mocks/mock_signal.go -package=mocks

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Frame is a raw encoded payload.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend never blocks. It returns ErrBackpressure when the outbound
	// buffer is full and ErrConnClosed after Close.
	TrySend(Frame) error
	Close()
}
