package room

import (
	"crypto/rand"

	"github.com/google/uuid"
)

// Session codes are short enough to read out loud. The alphabet drops
// characters that are easy to confuse (0/O, I/l).
const (
	sessionIDAlphabet = "123456789ABCDEFGHJKMNPQRSTUVWXYZabcdefghkmnpqrstuvwxyz"
	sessionIDLength   = 8
)

// NewSessionID generates a random 8-character session code.
func NewSessionID() string {
	buf := make([]byte, sessionIDLength)
	rand.Read(buf)
	for i, b := range buf {
		buf[i] = sessionIDAlphabet[int(b)%len(sessionIDAlphabet)]
	}
	return string(buf)
}

// NewParticipantID generates a participant identifier.
func NewParticipantID() string {
	return uuid.NewString()
}
