package domain

import "errors"

var (
	ErrAlreadyInRoom     = errors.New("already in room")
	ErrAlreadyPending    = errors.New("join request already pending")
	ErrRoomNotStarted    = errors.New("room not started")
	ErrHostUnavailable   = errors.New("host unavailable")
	ErrHostPresent       = errors.New("room already has a host")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidMessage    = errors.New("invalid message")
	ErrRateLimited       = errors.New("rate limited")
	ErrTargetUnreachable = errors.New("target unreachable")
)
