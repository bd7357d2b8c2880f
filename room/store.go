// Package room holds the session aggregate and the concurrent in-memory
// store shared by every connection. Sessions live only in process memory;
// a restart loses them.
package room

import (
	"errors"
	"hash/fnv"
	"sync"
	"time"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrUnknownParticipant = errors.New("participant not in session")
)

// Every mutation on every session goes through the store, so the map is
// sharded rather than guarded by one global lock.
const storeShards = 16

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// Store is a concurrent session table. Reads return snapshot clones;
// callers do read-modify-write with Update, and concurrent updates to the
// same session are last-write-wins.
type Store struct {
	shards [storeShards]*shard
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{sessions: make(map[string]*Session)}
	}
	return s
}

func (s *Store) shardFor(id string) *shard {
	h := fnv.New32a()
	h.Write([]byte(id))
	return s.shards[h.Sum32()%storeShards]
}

// Create allocates a fresh session with no participants or votes.
func (s *Store) Create(name string, duration time.Duration) *Session {
	sess := NewSession(name, duration)
	sh := s.shardFor(sess.ID)
	sh.mu.Lock()
	sh.sessions[sess.ID] = sess
	sh.mu.Unlock()
	return sess.Clone()
}

// Get returns a snapshot copy of the session.
func (s *Store) Get(id string) (*Session, error) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	sess, ok := sh.sessions[id]
	sh.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// Update atomically replaces the stored session. There is no upsert: an
// unknown ID fails with ErrSessionNotFound.
func (s *Store) Update(id string, sess *Session) (*Session, error) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.sessions[id]; !ok {
		return nil, ErrSessionNotFound
	}
	stored := sess.Clone()
	sh.sessions[id] = stored
	return stored.Clone(), nil
}

// Join adds a freshly identified participant to the session.
func (s *Store) Join(id, participantName string) (Participant, error) {
	p := Participant{ID: NewParticipantID(), Name: participantName}
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sess, ok := sh.sessions[id]
	if !ok {
		return Participant{}, ErrSessionNotFound
	}
	sess.AddParticipant(p)
	return p, nil
}

// Leave removes a participant. Removing an ID that is not a member is not
// an error.
func (s *Store) Leave(id, participantID string) error {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sess, ok := sh.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	sess.RemoveParticipant(participantID)
	return nil
}

// End removes the session entirely.
func (s *Store) End(id string) error {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(sh.sessions, id)
	return nil
}

// List returns snapshots of every session.
func (s *Store) List() []*Session {
	var out []*Session
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, sess := range sh.sessions {
			out = append(out, sess.Clone())
		}
		sh.mu.RUnlock()
	}
	return out
}

// Count returns the number of stored sessions.
func (s *Store) Count() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}
