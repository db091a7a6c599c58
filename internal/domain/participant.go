// Package domain contains entities without logic, just meta-data
package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	MaxDisplayNameLen  = 36
	DefaultDisplayName = "Guest"
)

type AdmissionState int

const (
	Pending AdmissionState = iota + 1
	Admitted
)

func (s AdmissionState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Admitted:
		return "admitted"
	default:
		return "none"
	}
}

// Participant is a roster entry of a room.
type Participant struct {
	ConnID          ConnID        `json:"connectionId"`
	ParticipantID   ParticipantID `json:"participantId"`
	DisplayName     string        `json:"displayName"`
	IsHost          bool          `json:"isHost"`
	IsScreenSharing bool          `json:"isScreenSharing"`
}

// JoinRequest is a guest waiting for the host's decision.
type JoinRequest struct {
	ConnID        ConnID        `json:"connectionId"`
	ParticipantID ParticipantID `json:"participantId"`
	DisplayName   string        `json:"displayName"`
}

// NormalizeDisplayName trims the name and cuts it to MaxDisplayNameLen runes.
func NormalizeDisplayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultDisplayName
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLen {
		name = string([]rune(name)[:MaxDisplayNameLen])
	}
	return name
}
