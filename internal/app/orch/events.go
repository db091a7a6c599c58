package orch

import (
	"errors"

	"github.com/dkeye/syncroom/internal/domain"
	json "github.com/goccy/go-json"
)

// Outbound event types.
const (
	EventConnected          = "connected"
	EventRoomJoined         = "room-joined"
	EventWaitingForApproval = "waiting-for-approval"
	EventJoinRequest        = "join-request"
	EventJoinApproved       = "join-approved"
	EventJoinRejected       = "join-rejected"
	EventUserJoined         = "user-joined"
	EventUserLeft           = "user-left"
	EventHostLeft           = "host-left"
	EventChatMessage        = "chat-message"
	EventUserMediaState     = "user-media-state-changed"
	EventUserScreenSharing  = "user-screen-sharing"
	EventPermissionsUpdated = "permissions-updated"
	EventError              = "error"
	EventPong               = "pong"
)

// Negotiation kinds relayed between peers.
const (
	KindOffer        = "offer"
	KindAnswer       = "answer"
	KindICECandidate = "ice-candidate"
)

type Connected struct {
	Type   string        `json:"type"`
	ConnID domain.ConnID `json:"connectionId"`
}

type RoomJoined struct {
	Type         string               `json:"type"`
	RoomID       domain.RoomID        `json:"roomId"`
	IsHost       bool                 `json:"isHost"`
	Participants []domain.Participant `json:"participants"`
	Permissions  domain.Permissions   `json:"permissions"`
	Messages     []domain.ChatMessage `json:"messages"`
}

type JoinApproved struct {
	Type         string               `json:"type"`
	RoomID       domain.RoomID        `json:"roomId"`
	Participants []domain.Participant `json:"participants"`
	Permissions  domain.Permissions   `json:"permissions"`
	Messages     []domain.ChatMessage `json:"messages"`
}

type WaitingForApproval struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type JoinRequested struct {
	Type string `json:"type"`
	domain.JoinRequest
}

type JoinRejected struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type UserJoined struct {
	Type          string               `json:"type"`
	ConnID        domain.ConnID        `json:"connectionId"`
	ParticipantID domain.ParticipantID `json:"participantId"`
	DisplayName   string               `json:"displayName"`
	IsHost        bool                 `json:"isHost"`
}

type UserLeft struct {
	Type          string               `json:"type"`
	ConnID        domain.ConnID        `json:"connectionId"`
	ParticipantID domain.ParticipantID `json:"participantId"`
	DisplayName   string               `json:"displayName"`
}

type HostLeft struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ChatBroadcast struct {
	Type string `json:"type"`
	domain.ChatMessage
}

type UserMediaState struct {
	Type           string        `json:"type"`
	ConnID         domain.ConnID `json:"connectionId"`
	IsAudioEnabled bool          `json:"isAudioEnabled"`
	IsVideoEnabled bool          `json:"isVideoEnabled"`
}

type UserScreenSharing struct {
	Type        string        `json:"type"`
	ConnID      domain.ConnID `json:"connectionId"`
	DisplayName string        `json:"displayName,omitempty"`
	IsSharing   bool          `json:"isSharing"`
}

type PermissionsUpdated struct {
	Type        string             `json:"type"`
	Permissions domain.Permissions `json:"permissions"`
}

// Relayed carries an opaque negotiation payload. Only the field matching
// Type is set.
type Relayed struct {
	Type               string          `json:"type"`
	SenderConnectionID domain.ConnID   `json:"senderConnectionId"`
	SenderName         string          `json:"senderName,omitempty"`
	Offer              json.RawMessage `json:"offer,omitempty"`
	Answer             json.RawMessage `json:"answer,omitempty"`
	Candidate          json.RawMessage `json:"candidate,omitempty"`
}

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type Pong struct {
	Type string `json:"type"`
}

const (
	reasonAlreadyInRoom   = "You are already in this meeting"
	reasonOtherTab        = "You are already in this meeting from another tab"
	reasonAlreadyPending  = "Your request is already pending"
	reasonRoomNotStarted  = "Meeting not started yet"
	reasonHostUnavailable = "Host is not available"
	reasonHostPresent     = "Meeting already has a host"
	reasonHostDenied      = "Host denied your request"
	reasonMeetingEnded    = "Meeting has ended"
	reasonInvalidRequest  = "Invalid join request"

	messageWaitingForHost = "Waiting for host..."
	messageHostEnded      = "Host ended the meeting"
)

// rejectReason maps an admission error to the text shown to the user.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyInRoom):
		return reasonAlreadyInRoom
	case errors.Is(err, domain.ErrAlreadyPending):
		return reasonAlreadyPending
	case errors.Is(err, domain.ErrRoomNotStarted):
		return reasonRoomNotStarted
	case errors.Is(err, domain.ErrHostUnavailable):
		return reasonHostUnavailable
	case errors.Is(err, domain.ErrHostPresent):
		return reasonHostPresent
	default:
		return reasonInvalidRequest
	}
}
