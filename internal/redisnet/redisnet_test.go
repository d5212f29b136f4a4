package redisnet

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vovakirdan/wirechat-client/internal/core"
)

// fakeBus routes frames synchronously between nodes the way redis pub/sub would.
type fakeBus struct {
	mu   sync.Mutex
	subs map[string][]*Node
}

func newFakeBus() *fakeBus {
	return &fakeBus{subs: make(map[string][]*Node)}
}

func (b *fakeBus) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	payload, ok := message.([]byte)
	if !ok {
		return redis.NewIntResult(0, errors.New("unexpected payload type"))
	}

	b.mu.Lock()
	targets := append([]*Node(nil), b.subs[channel]...)
	b.mu.Unlock()

	for _, nd := range targets {
		nd.handleMessage(ctx, payload)
	}
	return redis.NewIntResult(int64(len(targets)), nil)
}

func (b *fakeBus) join(id string) *Node {
	nd := newNode(b, "", core.Endpoint{ClientID: id, Address: "redis://" + id}, nil)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[presenceChannel(nd.prefix)] = append(b.subs[presenceChannel(nd.prefix)], nd)
	b.subs[directChannel(nd.prefix, id)] = append(b.subs[directChannel(nd.prefix, id)], nd)
	return nd
}

func newClient(t *testing.T, nd *Node) *core.ChatClient {
	t.Helper()
	c := core.NewChatClient(core.Options{
		ChatEndpoint: nd.Endpoint(),
		Presence:     nd,
		Chat:         nd,
	})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClientsReconcileOverBus(t *testing.T) {
	ctx := context.Background()
	bus := newFakeBus()
	alice := newClient(t, bus.join("alice"))
	bob := newClient(t, bus.join("bob"))

	var aliceSaw, bobSaw []bool
	alice.OnBuddyOnline(func(ev core.BuddyOnlineEvent) { aliceSaw = append(aliceSaw, ev.Discovered) })
	bob.OnBuddyOnline(func(ev core.BuddyOnlineEvent) { bobSaw = append(bobSaw, ev.Discovered) })

	if err := alice.Login(ctx, "Alice", core.Properties{"team": "blue"}); err != nil {
		t.Fatalf("alice login: %v", err)
	}
	if err := bob.Login(ctx, "Bob", nil); err != nil {
		t.Fatalf("bob login: %v", err)
	}

	if len(aliceSaw) != 1 || aliceSaw[0] {
		t.Fatalf("alice should see bob arrive: %v", aliceSaw)
	}
	if len(bobSaw) != 1 || !bobSaw[0] {
		t.Fatalf("bob should discover alice: %v", bobSaw)
	}
	aliceBuddy, ok := bob.Buddy("alice")
	var team string
	if ok {
		team, _ = aliceBuddy.Property("team")
	}
	if !ok || team != "blue" || aliceBuddy.Endpoint().Address != "redis://alice" {
		t.Fatalf("bob has the wrong view of alice: %+v", aliceBuddy)
	}

	var updated []core.Status
	alice.OnBuddyUpdated(func(ev core.BuddyEvent) { updated = append(updated, ev.Buddy.Status()) })
	if err := bob.CurrentUser().SetStatus(ctx, core.StatusBeRightBack); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if len(updated) != 1 || updated[0] != core.StatusBeRightBack {
		t.Fatalf("alice should see bob's status: %v", updated)
	}

	var chats []core.ChatStartedEvent
	alice.OnChatStarted(func(ev core.ChatStartedEvent) { chats = append(chats, ev) })
	chat, err := bob.StartChat(ctx, aliceBuddy)
	if err != nil {
		t.Fatalf("start chat: %v", err)
	}
	if len(chats) != 1 || chats[0].Chat.ID() != chat.ID() || chats[0].Buddies[0].ID() != "bob" {
		t.Fatalf("alice should join bob's chat: %+v", chats)
	}
	if chats[0].Chat.Self() != alice.CurrentUser() {
		t.Fatalf("alice's chat must be bound to her current user")
	}
	if err := chat.Leave(); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if !chat.Session().(*Session).Closed() {
		t.Fatalf("leaving must close the session")
	}

	var offline []string
	alice.OnBuddyOffline(func(ev core.BuddyEvent) { offline = append(offline, ev.Buddy.ID()) })
	if err := bob.Logout(ctx); err != nil {
		t.Fatalf("bob logout: %v", err)
	}
	if len(offline) != 1 || offline[0] != "bob" {
		t.Fatalf("alice should see bob leave: %v", offline)
	}
}

func TestCreateSessionErrors(t *testing.T) {
	ctx := context.Background()
	bus := newFakeBus()
	alice := bus.join("alice")
	bob := bus.join("bob")

	if _, err := alice.CreateSession(ctx, bob.Endpoint()); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
	if err := alice.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := alice.CreateSession(ctx, core.Endpoint{ClientID: "nobody"}); !errors.Is(err, ErrPeerUnreachable) {
		t.Fatalf("expected ErrPeerUnreachable, got %v", err)
	}
	if _, err := alice.CreateSession(ctx, alice.Endpoint()); !errors.Is(err, ErrPeerUnreachable) {
		t.Fatalf("expected ErrPeerUnreachable for self, got %v", err)
	}
	if err := alice.Update(ctx, "Alice", nil, core.StatusAway); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
}

func TestDecodeFrameRejects(t *testing.T) {
	valid := frame{Kind: frameUpdate, Sender: "a", User: &userFrame{ID: "a", Status: uint8(core.StatusAway)}}

	tests := []struct {
		name  string
		frame frame
	}{
		{"unknown kind", frame{Kind: 99, Sender: "a"}},
		{"missing sender", frame{Kind: frameUpdate, User: valid.User}},
		{"missing profile", frame{Kind: frameOnline, Sender: "a"}},
		{"spoofed profile", frame{Kind: frameUpdate, Sender: "a", User: &userFrame{ID: "b"}}},
		{"bad status", frame{Kind: frameUpdate, Sender: "a", User: &userFrame{ID: "a", Status: 42}}},
		{"session without body", frame{Kind: frameSession, Sender: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := encodeFrame(tt.frame)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if _, err := decodeFrame(payload); !errors.Is(err, ErrMalformedFrame) {
				t.Fatalf("expected ErrMalformedFrame, got %v", err)
			}
		})
	}

	if _, err := decodeFrame([]byte("not cbor")); !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame for garbage, got %v", err)
	}

	payload, err := encodeFrame(valid)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decodeFrame(payload)
	if err != nil {
		t.Fatalf("decode valid frame: %v", err)
	}
	if got.User.info().Status != core.StatusAway {
		t.Fatalf("unexpected status: %v", got.User.info().Status)
	}
}

// TestRedisIntegration runs against a real server when WIRECHAT_CLIENT_TEST_REDIS_ADDR is set.
func TestRedisIntegration(t *testing.T) {
	addr := os.Getenv("WIRECHAT_CLIENT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("WIRECHAT_CLIENT_TEST_REDIS_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	prefix := "wirechat-test-" + time.Now().Format("150405.000000")

	dial := func(id string) *core.ChatClient {
		nd, err := Dial(ctx, rdb, prefix, core.Endpoint{ClientID: id, Address: "redis://" + id}, nil)
		if err != nil {
			t.Fatalf("dial %s: %v", id, err)
		}
		t.Cleanup(func() { _ = nd.Close() })
		return newClient(t, nd)
	}
	alice := dial("alice")
	bob := dial("bob")

	if err := alice.Login(ctx, "Alice", nil); err != nil {
		t.Fatalf("alice login: %v", err)
	}
	if err := bob.Login(ctx, "Bob", nil); err != nil {
		t.Fatalf("bob login: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		_, aliceKnowsBob := alice.Buddy("bob")
		_, bobKnowsAlice := bob.Buddy("alice")
		if aliceKnowsBob && bobKnowsAlice {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("nodes never discovered each other")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
