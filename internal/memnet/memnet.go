// Package memnet is an in-process presence and chat network. Every Node
// joined to the same Network sees the others log in, change their profile
// and log out, and can open chat sessions with them, without any sockets.
package memnet

import (
	"context"
	"errors"
	"sync"

	"github.com/vovakirdan/wirechat-client/internal/core"
)

var (
	ErrPeerUnreachable = errors.New("peer unreachable")
	ErrNotStarted      = errors.New("chat service not started")
	ErrNotLoggedIn     = errors.New("presence not logged in")
)

// Compile-time interface checks.
var (
	_ core.PresenceService = (*Node)(nil)
	_ core.ChatService     = (*Node)(nil)
	_ core.Session         = (*Session)(nil)
)

// Network routes presence announcements and session requests between nodes.
type Network struct {
	mu    sync.Mutex
	nodes map[string]*Node
}

// New creates an empty network.
func New() *Network {
	return &Network{
		nodes: make(map[string]*Node),
	}
}

// Join attaches a node with the given chat endpoint. A node joining with an
// id already in use replaces the previous one.
func (n *Network) Join(endpoint core.Endpoint) *Node {
	node := &Node{network: n, endpoint: endpoint}

	n.mu.Lock()
	n.nodes[endpoint.ClientID] = node
	n.mu.Unlock()
	return node
}

// Leave detaches a node from the network.
func (n *Network) Leave(node *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.nodes[node.endpoint.ClientID] == node {
		delete(n.nodes, node.endpoint.ClientID)
	}
}

type peerView struct {
	info     core.UserInfo
	listener core.PresenceListener
}

// onlinePeers lists every logged-in node except self. Caller holds n.mu.
func (n *Network) onlinePeers(self *Node) []peerView {
	var peers []peerView
	for _, node := range n.nodes {
		if node == self {
			continue
		}
		node.mu.Lock()
		if node.online {
			peers = append(peers, peerView{info: node.infoLocked(), listener: node.presenceListener})
		}
		node.mu.Unlock()
	}
	return peers
}

// Node is one participant's presence and chat service.
type Node struct {
	network  *Network
	endpoint core.Endpoint

	mu               sync.Mutex
	online           bool
	started          bool
	info             core.UserInfo
	presenceListener core.PresenceListener
	sessionListener  core.SessionListener
}

// Endpoint returns the node's chat endpoint.
func (nd *Node) Endpoint() core.Endpoint {
	return nd.endpoint
}

// SetPresenceListener implements core.PresenceService.
func (nd *Node) SetPresenceListener(l core.PresenceListener) {
	nd.mu.Lock()
	defer nd.mu.Unlock()
	nd.presenceListener = l
}

// Login announces the node. Peers already online are reported back to this
// node as discovered; the peers learn about this node as a fresh arrival.
func (nd *Node) Login(ctx context.Context, username string, props core.Properties) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	nd.network.mu.Lock()
	nd.mu.Lock()
	nd.online = true
	nd.info = core.UserInfo{
		ID:           nd.endpoint.ClientID,
		DisplayName:  username,
		Status:       core.StatusOnline,
		ChatEndpoint: nd.endpoint.Address,
		Properties:   props.Clone(),
	}
	self := nd.infoLocked()
	listener := nd.presenceListener
	nd.mu.Unlock()
	peers := nd.network.onlinePeers(nd)
	nd.network.mu.Unlock()

	for _, peer := range peers {
		if peer.listener != nil {
			peer.listener.UserOnline(self, false)
		}
		if listener != nil {
			listener.UserOnline(peer.info, true)
		}
	}
	return nil
}

// Update re-announces the node's profile to its peers.
func (nd *Node) Update(ctx context.Context, displayName string, props core.Properties, status core.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	nd.network.mu.Lock()
	nd.mu.Lock()
	if !nd.online {
		nd.mu.Unlock()
		nd.network.mu.Unlock()
		return ErrNotLoggedIn
	}
	nd.info.DisplayName = displayName
	nd.info.Properties = props.Clone()
	nd.info.Status = status
	self := nd.infoLocked()
	nd.mu.Unlock()
	peers := nd.network.onlinePeers(nd)
	nd.network.mu.Unlock()

	for _, peer := range peers {
		if peer.listener != nil {
			peer.listener.UserUpdated(self)
		}
	}
	return nil
}

// Logout announces the node's departure. No-op when not logged in.
func (nd *Node) Logout(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	nd.network.mu.Lock()
	nd.mu.Lock()
	if !nd.online {
		nd.mu.Unlock()
		nd.network.mu.Unlock()
		return nil
	}
	nd.online = false
	nd.info.Status = core.StatusOffline
	self := nd.infoLocked()
	nd.mu.Unlock()
	peers := nd.network.onlinePeers(nd)
	nd.network.mu.Unlock()

	for _, peer := range peers {
		if peer.listener != nil {
			peer.listener.UserOffline(self)
		}
	}
	return nil
}

// Online reports whether the node is logged in to presence.
func (nd *Node) Online() bool {
	nd.mu.Lock()
	defer nd.mu.Unlock()
	return nd.online
}

func (nd *Node) infoLocked() core.UserInfo {
	info := nd.info
	info.Properties = nd.info.Properties.Clone()
	return info
}
