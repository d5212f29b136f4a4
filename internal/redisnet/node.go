package redisnet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/utils"
)

const DefaultPrefix = "wirechat"

var (
	// ErrPeerUnreachable is returned when no node listens on the target's channel.
	ErrPeerUnreachable = errors.New("peer unreachable")
	// ErrNotStarted is returned by CreateSession before Start.
	ErrNotStarted = errors.New("chat service not started")
	// ErrNotLoggedIn is returned by Update before Login.
	ErrNotLoggedIn = errors.New("not logged in to presence")
)

// Publisher is the part of a redis client used to send frames.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Node is one participant on a redis-backed network. Presence frames are
// broadcast on a shared channel; discovery replies and session invitations
// go to the receiver's own channel.
type Node struct {
	pub      Publisher
	prefix   string
	endpoint core.Endpoint
	log      *zerolog.Logger

	mu               sync.Mutex
	online           bool
	started          bool
	info             core.UserInfo
	presenceListener core.PresenceListener
	sessionListener  core.SessionListener

	pubsub *redis.PubSub
	done   chan struct{}
}

var (
	_ core.PresenceService = (*Node)(nil)
	_ core.ChatService     = (*Node)(nil)
)

// Dial subscribes a node for endpoint and starts receiving frames.
func Dial(ctx context.Context, client *redis.Client, prefix string, endpoint core.Endpoint, logger *zerolog.Logger) (*Node, error) {
	nd := newNode(client, prefix, endpoint, logger)

	pubsub := client.Subscribe(ctx, presenceChannel(nd.prefix), directChannel(nd.prefix, endpoint.ClientID))
	// Wait for the subscription confirmation so no frame published after Dial is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	nd.pubsub = pubsub
	nd.done = make(chan struct{})
	go nd.receive(pubsub.Channel())

	return nd, nil
}

func newNode(pub Publisher, prefix string, endpoint core.Endpoint, logger *zerolog.Logger) *Node {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	nodeLogger := logger.With().Str("component", "redisnet").Str("client_id", endpoint.ClientID).Logger()
	return &Node{
		pub:      pub,
		prefix:   prefix,
		endpoint: endpoint,
		log:      &nodeLogger,
	}
}

func presenceChannel(prefix string) string {
	return prefix + ":presence"
}

func directChannel(prefix, clientID string) string {
	return prefix + ":node:" + clientID
}

// Close stops receiving frames.
func (nd *Node) Close() error {
	if nd.pubsub == nil {
		return nil
	}
	err := nd.pubsub.Close()
	<-nd.done
	return err
}

// Endpoint returns the node's chat endpoint.
func (nd *Node) Endpoint() core.Endpoint {
	return nd.endpoint
}

func (nd *Node) SetPresenceListener(l core.PresenceListener) {
	nd.mu.Lock()
	defer nd.mu.Unlock()
	nd.presenceListener = l
}

func (nd *Node) SetSessionListener(l core.SessionListener) {
	nd.mu.Lock()
	defer nd.mu.Unlock()
	nd.sessionListener = l
}

// Login broadcasts the node's arrival. Peers reply on the node's own channel.
func (nd *Node) Login(ctx context.Context, username string, props core.Properties) error {
	nd.mu.Lock()
	nd.online = true
	nd.info = core.UserInfo{
		ID:           nd.endpoint.ClientID,
		DisplayName:  username,
		Status:       core.StatusOnline,
		ChatEndpoint: nd.endpoint.Address,
		Properties:   props.Clone(),
	}
	self := nd.info
	nd.mu.Unlock()

	if _, err := nd.send(ctx, presenceChannel(nd.prefix), frame{Kind: frameOnline, User: userFrameFrom(self)}); err != nil {
		nd.mu.Lock()
		nd.online = false
		nd.mu.Unlock()
		return fmt.Errorf("announce login: %w", err)
	}
	return nil
}

// Update broadcasts the node's new profile.
func (nd *Node) Update(ctx context.Context, displayName string, props core.Properties, status core.Status) error {
	nd.mu.Lock()
	if !nd.online {
		nd.mu.Unlock()
		return ErrNotLoggedIn
	}
	nd.info.DisplayName = displayName
	nd.info.Properties = props.Clone()
	nd.info.Status = status
	self := nd.info
	nd.mu.Unlock()

	if _, err := nd.send(ctx, presenceChannel(nd.prefix), frame{Kind: frameUpdate, User: userFrameFrom(self)}); err != nil {
		return fmt.Errorf("announce update: %w", err)
	}
	return nil
}

// Logout broadcasts the node's departure. No-op when not logged in.
func (nd *Node) Logout(ctx context.Context) error {
	nd.mu.Lock()
	if !nd.online {
		nd.mu.Unlock()
		return nil
	}
	nd.online = false
	nd.info.Status = core.StatusOffline
	self := nd.info
	nd.mu.Unlock()

	if _, err := nd.send(ctx, presenceChannel(nd.prefix), frame{Kind: frameOffline, User: userFrameFrom(self)}); err != nil {
		return fmt.Errorf("announce logout: %w", err)
	}
	return nil
}

// Start makes the node accept session invitations.
func (nd *Node) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	nd.mu.Lock()
	defer nd.mu.Unlock()
	nd.started = true
	return nil
}

// Stop makes the node ignore session invitations.
func (nd *Node) Stop() error {
	nd.mu.Lock()
	defer nd.mu.Unlock()
	nd.started = false
	return nil
}

// CreateSession invites target into a new session.
func (nd *Node) CreateSession(ctx context.Context, target core.Endpoint) (core.Session, error) {
	nd.mu.Lock()
	started := nd.started
	nd.mu.Unlock()
	if !started {
		return nil, ErrNotStarted
	}
	if target.ClientID == nd.endpoint.ClientID {
		return nil, fmt.Errorf("%w: %s", ErrPeerUnreachable, target.ClientID)
	}

	id := utils.NewID()
	receivers, err := nd.send(ctx, directChannel(nd.prefix, target.ClientID), frame{
		Kind: frameSession,
		Session: &sessionFrame{
			ID:          id,
			FromID:      nd.endpoint.ClientID,
			FromAddress: nd.endpoint.Address,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("invite %s: %w", target.ClientID, err)
	}
	if receivers == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPeerUnreachable, target.ClientID)
	}
	return &Session{id: id, remote: []core.Endpoint{target}}, nil
}

func (nd *Node) send(ctx context.Context, channel string, f frame) (int64, error) {
	f.Sender = nd.endpoint.ClientID
	payload, err := encodeFrame(f)
	if err != nil {
		return 0, fmt.Errorf("encode frame: %w", err)
	}
	return nd.pub.Publish(ctx, channel, payload).Result()
}

func (nd *Node) receive(ch <-chan *redis.Message) {
	defer close(nd.done)
	for msg := range ch {
		nd.handleMessage(context.Background(), []byte(msg.Payload))
	}
}

// handleMessage dispatches one frame to the listeners. Listeners run on
// the receiving goroutine, outside the node lock.
func (nd *Node) handleMessage(ctx context.Context, payload []byte) {
	f, err := decodeFrame(payload)
	if err != nil {
		nd.log.Debug().Err(err).Msg("dropping frame")
		return
	}
	if f.Sender == nd.endpoint.ClientID {
		return
	}

	nd.mu.Lock()
	online := nd.online
	started := nd.started
	self := nd.info
	presence := nd.presenceListener
	sessions := nd.sessionListener
	nd.mu.Unlock()

	switch f.Kind {
	case frameOnline:
		if !online {
			return
		}
		if presence != nil {
			presence.UserOnline(f.User.info(), false)
		}
		if _, err := nd.send(ctx, directChannel(nd.prefix, f.Sender), frame{Kind: frameAnnounce, User: userFrameFrom(self)}); err != nil {
			nd.log.Warn().Err(err).Str("peer_id", f.Sender).Msg("failed to answer login announcement")
		}
	case frameAnnounce:
		if online && presence != nil {
			presence.UserOnline(f.User.info(), true)
		}
	case frameUpdate:
		if online && presence != nil {
			presence.UserUpdated(f.User.info())
		}
	case frameOffline:
		if online && presence != nil {
			presence.UserOffline(f.User.info())
		}
	case frameSession:
		if !started || sessions == nil {
			nd.log.Debug().Str("session_id", f.Session.ID).Msg("session invitation while stopped")
			return
		}
		sessions.SessionStarted(&Session{
			id:     f.Session.ID,
			remote: []core.Endpoint{{ClientID: f.Session.FromID, Address: f.Session.FromAddress}},
		})
	}
}
