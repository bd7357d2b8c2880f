package protocol

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointdeck/pointdeck/room"
)

func TestDecodeJoinSession(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"JoinSession","session_id":"abc","participant_name":"alice"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeJoinSession, msg.Type)
	assert.Equal(t, "abc", msg.SessionID)
	assert.Equal(t, "alice", msg.ParticipantName)
}

func TestDecodePointSession(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"PointSession","session_id":"abc","participant_id":"p1","points":13}`))
	require.NoError(t, err)
	require.NotNil(t, msg.Points)
	assert.Equal(t, 13, *msg.Points)
}

func TestDecodePointSessionNullPoints(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"PointSession","session_id":"abc","participant_id":"p1","points":null}`))
	require.NoError(t, err)
	assert.Nil(t, msg.Points, "null points means abstain")
}

func TestDecodeMissingFields(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"join without name", `{"type":"JoinSession","session_id":"abc"}`},
		{"join without session", `{"type":"JoinSession","participant_name":"alice"}`},
		{"subscribe without session", `{"type":"SubscribeToSession"}`},
		{"point without participant", `{"type":"PointSession","session_id":"abc"}`},
		{"remove without participant", `{"type":"RemoveParticipant","session_id":"abc"}`},
		{"create without name", `{"type":"CreateSession"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.raw))
			assert.Error(t, err)
		})
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"TeleportSession","session_id":"abc"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown message type")
}

func TestDecodeInvalidJSON(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	assert.Error(t, err)
}

func TestDecodeTopiclessOperations(t *testing.T) {
	// SetTopic, ClearPoints and ToggleHidePoints carry no required fields
	// beyond their type; the handler resolves the session from the
	// subscribed connection.
	for _, typ := range []string{TypeSetTopic, TypeClearPoints, TypeToggleHidePoints} {
		msg, err := Decode([]byte(`{"type":"` + typ + `"}`))
		require.NoError(t, err)
		assert.Equal(t, typ, msg.Type)
	}
}

func TestDecodeSessionUpdateFromClient(t *testing.T) {
	// A client echoing the server-only frame is tolerated, not rejected
	// as malformed; the handler drops it.
	msg, err := Decode([]byte(`{"type":"SessionUpdate"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeSessionUpdate, msg.Type)
}

func TestSessionUpdateEnvelope(t *testing.T) {
	sess := room.NewSession("Sprint 12", 30*time.Minute)

	data, err := json.Marshal(NewSessionUpdate(sess))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, TypeSessionUpdate, m["type"])
	require.Contains(t, m, "session")
	assert.NotContains(t, m, "error")

	session := m["session"].(map[string]any)
	assert.Equal(t, sess.ID, session["id"])
}

func TestErrorEnvelope(t *testing.T) {
	data, err := json.Marshal(NewError(errors.New("session not found: abc")))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, TypeError, m["type"])
	assert.Equal(t, "session not found: abc", m["error"])
	assert.NotContains(t, m, "session")
}
