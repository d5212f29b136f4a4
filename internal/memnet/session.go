package memnet

import (
	"context"
	"fmt"
	"sync"

	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/utils"
)

// Session is one side of a conversation between two nodes.
type Session struct {
	id     string
	remote []core.Endpoint

	mu     sync.Mutex
	closed bool
}

// ID implements core.Session.
func (s *Session) ID() string {
	return s.id
}

// RemoteUsers implements core.Session.
func (s *Session) RemoteUsers() []core.Endpoint {
	out := make([]core.Endpoint, len(s.remote))
	copy(out, s.remote)
	return out
}

// Close implements core.Session. Safe to call repeatedly.
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

// Start makes the node reachable for sessions.
func (nd *Node) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	nd.mu.Lock()
	defer nd.mu.Unlock()
	nd.started = true
	return nil
}

// Stop makes the node unreachable for sessions.
func (nd *Node) Stop() error {
	nd.mu.Lock()
	defer nd.mu.Unlock()
	nd.started = false
	return nil
}

// SetSessionListener implements core.ChatService.
func (nd *Node) SetSessionListener(l core.SessionListener) {
	nd.mu.Lock()
	defer nd.mu.Unlock()
	nd.sessionListener = l
}

// CreateSession opens a session with target and notifies the target node.
func (nd *Node) CreateSession(ctx context.Context, target core.Endpoint) (core.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nd.mu.Lock()
	started := nd.started
	nd.mu.Unlock()
	if !started {
		return nil, ErrNotStarted
	}

	nd.network.mu.Lock()
	peer, ok := nd.network.nodes[target.ClientID]
	nd.network.mu.Unlock()
	if !ok || peer == nd {
		return nil, fmt.Errorf("%w: %s", ErrPeerUnreachable, target.ClientID)
	}

	peer.mu.Lock()
	reachable := peer.started
	listener := peer.sessionListener
	peer.mu.Unlock()
	if !reachable {
		return nil, fmt.Errorf("%w: %s", ErrPeerUnreachable, target.ClientID)
	}

	id := utils.NewID()
	local := &Session{id: id, remote: []core.Endpoint{peer.endpoint}}
	remote := &Session{id: id, remote: []core.Endpoint{nd.endpoint}}

	if listener != nil {
		listener.SessionStarted(remote)
	}
	return local, nil
}
