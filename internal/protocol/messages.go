package protocol

import (
	"encoding/json"
	"time"

	"livepoll/internal/domain"
)

// Message types exchanged over the websocket.
const (
	TypeJoinPoll    = "JOIN_POLL"
	TypeLeavePoll   = "LEAVE_POLL"
	TypeNewVote     = "NEW_VOTE"
	TypePollUpdate  = "POLL_UPDATE"
	TypeActiveUsers = "ACTIVE_USERS"
	TypeError       = "ERROR"
)

// ClientMessage is an inbound frame from a client.
type ClientMessage struct {
	Type   string `json:"type"`
	PollID string `json:"pollId,omitempty"`
	UserID string `json:"userId,omitempty"`
}

// ServerMessage is an outbound frame. Timestamp is epoch millis.
type ServerMessage struct {
	Type      string      `json:"type"`
	PollID    string      `json:"pollId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ActiveUsersData carries a room presence snapshot, or the global connection
// count on the initial handshake (Users nil).
type ActiveUsersData struct {
	Count   int      `json:"count"`
	Users   []string `json:"users,omitempty"`
	Message string   `json:"message,omitempty"`
}

// NewVoteData announces an accepted vote without the tally.
type NewVoteData struct {
	OptionID  string `json:"optionId"`
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

// PollRemovedData replaces the poll snapshot once a poll is deleted.
type PollRemovedData struct {
	IsRemoved bool   `json:"isRemoved"`
	Message   string `json:"message"`
}

func now() int64 {
	return time.Now().UnixMilli()
}

func NewActiveUsersMessage(pollID string, users []string) ServerMessage {
	return ServerMessage{
		Type:      TypeActiveUsers,
		PollID:    pollID,
		Data:      ActiveUsersData{Count: len(users), Users: users},
		Timestamp: now(),
	}
}

func NewWelcomeMessage(count int) ServerMessage {
	return ServerMessage{
		Type:      TypeActiveUsers,
		Data:      ActiveUsersData{Count: count, Message: "Connected to real-time updates"},
		Timestamp: now(),
	}
}

func NewVoteMessage(pollID, optionID, userID string) ServerMessage {
	ts := now()
	return ServerMessage{
		Type:      TypeNewVote,
		PollID:    pollID,
		Data:      NewVoteData{OptionID: optionID, UserID: userID, Timestamp: ts},
		Timestamp: ts,
	}
}

func NewPollUpdateMessage(detail domain.PollDetail) ServerMessage {
	return ServerMessage{
		Type:      TypePollUpdate,
		PollID:    detail.ID,
		Data:      detail,
		Timestamp: now(),
	}
}

func NewPollRemovedMessage(pollID, reason string) ServerMessage {
	return ServerMessage{
		Type:      TypePollUpdate,
		PollID:    pollID,
		Data:      PollRemovedData{IsRemoved: true, Message: reason},
		Timestamp: now(),
	}
}

func NewErrorMessage(msg string) ServerMessage {
	return ServerMessage{
		Type:      TypeError,
		Message:   msg,
		Timestamp: now(),
	}
}

// Encode marshals a server message; an encode failure falls back to a bare
// error frame so broadcast callers always have bytes to deliver.
func Encode(msg ServerMessage) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		data, _ = json.Marshal(NewErrorMessage("encoding failure"))
	}
	return data
}
