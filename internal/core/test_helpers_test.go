package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type presenceUpdate struct {
	DisplayName string
	Properties  Properties
	Status      Status
}

type fakePresence struct {
	mu       sync.Mutex
	listener PresenceListener
	logins   []string
	logouts  int
	updates  []presenceUpdate

	loginErr  error
	updateErr error
	// duringLogin runs inside Login, the way a network delivers replies
	// before the announcement call returns.
	duringLogin func()
}

func (p *fakePresence) Login(_ context.Context, username string, _ Properties) error {
	p.mu.Lock()
	if p.loginErr != nil {
		p.mu.Unlock()
		return p.loginErr
	}
	p.logins = append(p.logins, username)
	hook := p.duringLogin
	p.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (p *fakePresence) Logout(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logouts++
	return nil
}

func (p *fakePresence) Update(_ context.Context, displayName string, props Properties, status Status) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, presenceUpdate{DisplayName: displayName, Properties: props, Status: status})
	return p.updateErr
}

func (p *fakePresence) SetPresenceListener(l PresenceListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = l
}

func (p *fakePresence) Updates() []presenceUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]presenceUpdate, len(p.updates))
	copy(out, p.updates)
	return out
}

type fakeSession struct {
	id     string
	remote []Endpoint

	mu     sync.Mutex
	closed int
}

func (s *fakeSession) ID() string              { return s.id }
func (s *fakeSession) RemoteUsers() []Endpoint { return s.remote }

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

type fakeChatService struct {
	mu       sync.Mutex
	listener SessionListener
	starts   int
	stops    int
	targets  []Endpoint

	startErr  error
	createErr error
}

func (s *fakeChatService) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.starts++
	return nil
}

func (s *fakeChatService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return nil
}

func (s *fakeChatService) CreateSession(_ context.Context, target Endpoint) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.targets = append(s.targets, target)
	return &fakeSession{id: "session-" + target.ClientID, remote: []Endpoint{target}}, nil
}

func (s *fakeChatService) SetSessionListener(l SessionListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

type statusRecord struct {
	At          time.Time
	BuddyID     string
	DisplayName string
	Status      int
}

type fakeHistory struct {
	mu      sync.Mutex
	records []statusRecord
	err     error
	panics  bool
}

func (h *fakeHistory) AddStatusUpdate(_ context.Context, at time.Time, buddyID, displayName string, status int) error {
	if h.panics {
		panic("history unavailable")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.records = append(h.records, statusRecord{At: at, BuddyID: buddyID, DisplayName: displayName, Status: status})
	return nil
}

func (h *fakeHistory) Records() []statusRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]statusRecord, len(h.records))
	copy(out, h.records)
	return out
}

// eventRecorder collects every notification the client emits.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func recordEvents(t *testing.T, c *ChatClient) *eventRecorder {
	t.Helper()
	rec := &eventRecorder{}
	cancel := c.Subscribe(func(ev Event) {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.events = append(rec.events, ev)
	})
	t.Cleanup(cancel)
	return rec
}

func (r *eventRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *eventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// mustSingleEvent asserts exactly one event was recorded and that it has the given kind.
func mustSingleEvent(t *testing.T, rec *eventRecorder, kind EventKind) Event {
	t.Helper()

	events := rec.Events()
	if len(events) != 1 {
		t.Fatalf("expected exactly one event, got %d: %+v", len(events), events)
	}
	if events[0].Kind != kind {
		t.Fatalf("expected event kind %v, got %v", kind, events[0].Kind)
	}
	return events[0]
}

type testEnv struct {
	client   *ChatClient
	presence *fakePresence
	chat     *fakeChatService
	history  *fakeHistory
}

var testSelfEndpoint = Endpoint{ClientID: "11111111-1111-1111-1111-111111111111", Address: "127.0.0.1:9000"}

func newTestEnv(t testing.TB) *testEnv {
	t.Helper()

	env := &testEnv{
		presence: &fakePresence{},
		chat:     &fakeChatService{},
		history:  &fakeHistory{},
	}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	env.client = NewChatClient(Options{
		ChatEndpoint: testSelfEndpoint,
		Presence:     env.presence,
		Chat:         env.chat,
		History:      env.history,
		Now:          func() time.Time { return fixed },
	})
	return env
}

func newLoggedInEnv(t testing.TB) *testEnv {
	t.Helper()

	env := newTestEnv(t)
	if err := env.client.Login(context.Background(), "me", Properties{"mood": "calm"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	t.Cleanup(func() { _ = env.client.Close() })
	return env
}

func userInfo(id, name string, status Status) UserInfo {
	return UserInfo{
		ID:           id,
		DisplayName:  name,
		Status:       status,
		ChatEndpoint: "10.0.0.1:9000",
		Properties:   Properties{"client": "test"},
	}
}

var errBoom = errors.New("boom")
