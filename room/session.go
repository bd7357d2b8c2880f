package room

import (
	"time"

	"github.com/samber/lo"
)

// Participant is one named member of a session. Participants are owned by
// exactly one session and are removed when their connection goes away.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Session is a shared estimation room: a named, time-bounded gathering of
// participants voting on a topic. All mutation goes through Store operations;
// expiry is computed at read time and never stored.
type Session struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Started         int64          `json:"started"`
	DurationSeconds int64          `json:"duration_seconds"`
	Participants    []Participant  `json:"participants"`
	CurrentTopic    string         `json:"current_topic"`
	CurrentPoints   map[string]*int `json:"current_points"`
	HidePoints      bool           `json:"hide_points"`
}

// NewSession creates an empty session with a fresh ID, starting now.
func NewSession(name string, duration time.Duration) *Session {
	return &Session{
		ID:              NewSessionID(),
		Name:            name,
		Started:         time.Now().Unix(),
		DurationSeconds: int64(duration.Seconds()),
		Participants:    []Participant{},
		CurrentPoints:   map[string]*int{},
	}
}

// Clone returns a deep copy. Store reads hand out clones so callers can
// mutate freely before writing back.
func (s *Session) Clone() *Session {
	c := *s
	c.Participants = make([]Participant, len(s.Participants))
	copy(c.Participants, s.Participants)
	c.CurrentPoints = make(map[string]*int, len(s.CurrentPoints))
	for id, pts := range s.CurrentPoints {
		if pts != nil {
			v := *pts
			c.CurrentPoints[id] = &v
		} else {
			c.CurrentPoints[id] = nil
		}
	}
	return &c
}

// AddParticipant appends a participant to the member list.
func (s *Session) AddParticipant(p Participant) {
	s.Participants = append(s.Participants, p)
}

// RemoveParticipant removes the participant with the given ID along with
// any vote they recorded. Removing an unknown ID is a no-op.
func (s *Session) RemoveParticipant(participantID string) {
	s.Participants = lo.Filter(s.Participants, func(p Participant, _ int) bool {
		return p.ID != participantID
	})
	delete(s.CurrentPoints, participantID)
}

// HasParticipant reports whether the given ID is in the member list.
func (s *Session) HasParticipant(participantID string) bool {
	return lo.ContainsBy(s.Participants, func(p Participant) bool {
		return p.ID == participantID
	})
}

// SetTopic replaces the current topic text.
func (s *Session) SetTopic(topic string) {
	s.CurrentTopic = topic
}

// Point records a vote for a participant. A nil value means the participant
// voted to abstain. Votes for IDs not in the member list are rejected.
func (s *Session) Point(participantID string, points *int) error {
	if !s.HasParticipant(participantID) {
		return ErrUnknownParticipant
	}
	s.CurrentPoints[participantID] = points
	return nil
}

// ClearPoints drops every recorded vote. The hide flag is untouched.
func (s *Session) ClearPoints() {
	s.CurrentPoints = map[string]*int{}
}

// ToggleHidePoints flips the hide-points flag.
func (s *Session) ToggleHidePoints() {
	s.HidePoints = !s.HidePoints
}

// IsActive reports whether the session's duration has not yet elapsed.
func (s *Session) IsActive() bool {
	return time.Now().Unix()-s.Started < s.DurationSeconds
}

// RemainingTime returns how long until the session expires, or zero if it
// already has.
func (s *Session) RemainingTime() time.Duration {
	elapsed := time.Now().Unix() - s.Started
	if elapsed >= s.DurationSeconds {
		return 0
	}
	return time.Duration(s.DurationSeconds-elapsed) * time.Second
}
