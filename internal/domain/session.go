// Package domain contains entity without logic, just meta-data
package domain

import (
	"time"

	"github.com/google/uuid"
)

type (
	SessionID string
	RoomName  string
)

// Session is the logical identity of one user's conversation.
// It may outlive a single transport connection when persistence is on.
type Session struct {
	ID         SessionID
	Room       RoomName // at most one, set when persistence is on
	Persistent bool
	CreatedAt  time.Time
}

// NewSession mints a session with a fresh id when none was requested.
func NewSession(requested SessionID) *Session {
	id := requested
	if id == "" {
		id = SessionID(uuid.NewString())
	}
	return &Session{ID: id, CreatedAt: time.Now()}
}
