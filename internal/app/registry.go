package app

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/voicebridge/internal/core"
	"github.com/dkeye/voicebridge/internal/domain"
)

var (
	ErrUnknownSession = errors.New("app: unknown session")
	ErrSessionExpired = errors.New("app: session expired")
)

type sessionEntry struct {
	sess   *domain.Session
	conn   core.SignalConnection
	cancel context.CancelFunc
}

// Registry owns all session state. Mutations take the write lock;
// lookups run concurrently under the read lock.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[domain.SessionID]*sessionEntry
	persistence bool
}

func NewRegistry(persistence bool) *Registry {
	return &Registry{
		sessions:    make(map[domain.SessionID]*sessionEntry),
		persistence: persistence,
	}
}

// Persistence reports whether confirmed sessions survive reconnects.
func (r *Registry) Persistence() bool { return r.persistence }

// CreateOrResume returns the session for the requested id, minting a
// fresh id when none was supplied. Idempotent for the same requested id:
// a known session is returned as-is (resumed=true).
func (r *Registry) CreateOrResume(requested domain.SessionID) (sess *domain.Session, resumed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if requested != "" {
		if e, ok := r.sessions[requested]; ok {
			return e.sess, true
		}
	}
	s := domain.NewSession(requested)
	s.Persistent = r.persistence
	r.sessions[s.ID] = &sessionEntry{sess: s}
	log.Info().Str("module", "app.registry").Str("sid", string(s.ID)).Bool("persistent", s.Persistent).Msg("session created")
	return s, false
}

// Bind attaches the live transport connection (and its cancel) to a
// confirmed session. A rebind replaces any previous connection.
func (r *Registry) Bind(sid domain.SessionID, conn core.SignalConnection, cancel context.CancelFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return ErrUnknownSession
	}
	e.conn = conn
	e.cancel = cancel
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound transport")
	return nil
}

// JoinRoom records the session's (single) persistent room.
func (r *Registry) JoinRoom(sid domain.SessionID, room domain.RoomName) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return ErrUnknownSession
	}
	e.sess.Room = room
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("joined room")
	return nil
}

// Session returns the session meta for a confirmed id.
func (r *Registry) Session(sid domain.SessionID) (*domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil, false
	}
	return e.sess, true
}

// Conn returns the live connection for a session, if any.
func (r *Registry) Conn(sid domain.SessionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.conn == nil {
		return nil, false
	}
	return e.conn, true
}

// Alive reports whether the session exists and has a live connection.
func (r *Registry) Alive(sid domain.SessionID) bool {
	_, ok := r.Conn(sid)
	return ok
}

// Deliverable reports whether a reply can reach the session right now:
// ErrUnknownSession when it was released, ErrSessionExpired when it is
// kept for a room rejoin but currently has no live transport.
func (r *Registry) Deliverable(sid domain.SessionID) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return ErrUnknownSession
	}
	if e.conn == nil {
		return ErrSessionExpired
	}
	return nil
}

type RoomMember struct {
	SID  domain.SessionID
	Conn core.SignalConnection
}

// MembersOfRoom snapshots the live connections addressed by a room.
func (r *Registry) MembersOfRoom(room domain.RoomName) []RoomMember {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoomMember, 0, 1)
	for sid, e := range r.sessions {
		if e.sess.Room == room && e.conn != nil {
			out = append(out, RoomMember{SID: sid, Conn: e.conn})
		}
	}
	return out
}

// Detach handles a transport disconnect. With persistence and a room
// established the session stays registered (awaiting a reconnect that
// rejoins via its room); otherwise the session is released. Stale
// detaches from an already-replaced connection are ignored.
func (r *Registry) Detach(sid domain.SessionID, conn core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return
	}
	if conn != nil && e.conn != conn {
		return
	}
	if e.cancel != nil {
		e.cancel()
	}
	if e.sess.Persistent && e.sess.Room != "" {
		e.conn = nil
		e.cancel = nil
		log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("detached, session kept for room rejoin")
		return
	}
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("session released")
}

// Forget releases session state unconditionally; no-op if absent.
func (r *Registry) Forget(sid domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return
	}
	if e.cancel != nil {
		e.cancel()
	}
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("session forgotten")
}

// Count reports registered sessions (live or awaiting rejoin).
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
