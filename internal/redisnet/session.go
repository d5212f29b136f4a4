package redisnet

import (
	"sync"

	"github.com/vovakirdan/wirechat-client/internal/core"
)

// Session is one side of a chat session negotiated over redis.
type Session struct {
	id     string
	remote []core.Endpoint

	mu     sync.Mutex
	closed bool
}

var _ core.Session = (*Session)(nil)

// ID returns the session id shared by both sides.
func (s *Session) ID() string {
	return s.id
}

// RemoteUsers returns the other participants.
func (s *Session) RemoteUsers() []core.Endpoint {
	out := make([]core.Endpoint, len(s.remote))
	copy(out, s.remote)
	return out
}

// Close marks the session closed. Safe to call repeatedly.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
