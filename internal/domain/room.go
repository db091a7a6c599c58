package domain

import "time"

type (
	RoomID        string
	ParticipantID string
	// ConnID identifies one live signaling connection. It is assigned by the
	// transport and never reused.
	ConnID string
)

const (
	MaxChatHistory  = 50
	MaxChatLength   = 500
	ChatMinInterval = 500 * time.Millisecond
)

// Permissions are room-wide toggles set by the host.
type Permissions struct {
	Mic    bool `json:"mic"`
	Camera bool `json:"camera"`
	Screen bool `json:"screen"`
}

func DefaultPermissions() Permissions {
	return Permissions{Mic: true, Camera: true, Screen: true}
}

type ChatMessage struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Sender    string `json:"sender"`
	SenderID  ConnID `json:"senderId"`
	Timestamp string `json:"timestamp"`
}

// RoomInfo is a read-only status view for APIs.
type RoomInfo struct {
	ID           RoomID `json:"roomId"`
	MemberCount  int    `json:"memberCount"`
	PendingCount int    `json:"pendingCount"`
	HostPresent  bool   `json:"hostPresent"`
}
