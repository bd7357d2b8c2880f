// Package protocol defines the JSON messages exchanged over the session
// WebSocket. Frames are single JSON objects tagged by a "type" field, in
// both directions.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/pointdeck/pointdeck/room"
)

// Message type tags.
const (
	TypeCreateSession      = "CreateSession"
	TypeJoinSession        = "JoinSession"
	TypeSubscribeToSession = "SubscribeToSession"
	TypeAddParticipant     = "AddParticipant"
	TypeRemoveParticipant  = "RemoveParticipant"
	TypePointSession       = "PointSession"
	TypeSetTopic           = "SetTopic"
	TypeClearPoints        = "ClearPoints"
	TypeToggleHidePoints   = "ToggleHidePoints"
	TypeSessionUpdate      = "SessionUpdate"
	TypeError              = "Error"
)

// ClientMessage is the inbound tagged union. Only the fields relevant to
// the tagged type are set; Decode checks the ones each type requires.
type ClientMessage struct {
	Type            string `json:"type"`
	SessionID       string `json:"session_id,omitempty"`
	ParticipantName string `json:"participant_name,omitempty"`
	ParticipantID   string `json:"participant_id,omitempty"`
	Points          *int   `json:"points"`
	Topic           string `json:"topic,omitempty"`
	Name            string `json:"name,omitempty"`
	DurationSeconds int64  `json:"duration_seconds,omitempty"`
}

// ServerMessage is the outbound envelope: a full session snapshot on
// success, or an error string for per-connection failures.
type ServerMessage struct {
	Type    string        `json:"type"`
	Session *room.Session `json:"session,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// NewSessionUpdate wraps a session snapshot for broadcast.
func NewSessionUpdate(s *room.Session) ServerMessage {
	return ServerMessage{Type: TypeSessionUpdate, Session: s}
}

// NewError wraps a protocol error for the offending connection.
func NewError(err error) ServerMessage {
	return ServerMessage{Type: TypeError, Error: err.Error()}
}

// Decode parses a text frame into a ClientMessage and verifies the fields
// the tagged type requires.
func Decode(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}

	switch msg.Type {
	case TypeJoinSession, TypeAddParticipant:
		if msg.SessionID == "" || msg.ParticipantName == "" {
			return nil, fmt.Errorf("%s requires session_id and participant_name", msg.Type)
		}
	case TypeSubscribeToSession:
		if msg.SessionID == "" {
			return nil, fmt.Errorf("%s requires session_id", msg.Type)
		}
	case TypeRemoveParticipant, TypePointSession:
		if msg.SessionID == "" || msg.ParticipantID == "" {
			return nil, fmt.Errorf("%s requires session_id and participant_id", msg.Type)
		}
	case TypeCreateSession:
		if msg.Name == "" {
			return nil, fmt.Errorf("%s requires name", msg.Type)
		}
	case TypeSetTopic, TypeClearPoints, TypeToggleHidePoints:
	case TypeSessionUpdate:
		// Server-to-client only; accepted here so the handler can drop
		// it quietly instead of flagging the frame as malformed.
	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
	return &msg, nil
}
