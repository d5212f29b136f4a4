package core

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type loginState int32

const (
	stateLoggedOut loginState = iota
	stateLoggingIn
	stateLoggedIn
)

// Options configures a ChatClient.
type Options struct {
	// ChatEndpoint is where the local user accepts chat sessions.
	// Its ClientID doubles as the local user's buddy id.
	ChatEndpoint Endpoint
	Presence     PresenceService
	Chat         ChatService
	// History is optional; status changes are recorded only when set and logging is enabled.
	History       HistoryRecorder
	EnableLogging bool
	Logger        *zerolog.Logger
	Now           func() time.Time
}

// ChatClient reconciles presence and session notifications into the local
// view of known buddies and surfaces conversations to the application.
type ChatClient struct {
	endpoint Endpoint
	presence PresenceService
	chat     ChatService
	history  HistoryRecorder
	log      *zerolog.Logger
	now      func() time.Time

	// mu serialises classification and emission of inbound notifications
	// and the state flips of login/logout.
	mu sync.Mutex
	// lifecycleMu keeps Login and Logout from interleaving.
	lifecycleMu    sync.Mutex
	state          atomic.Int32
	buddies        *Registry
	self           atomic.Pointer[SelfBuddy]
	loggingEnabled atomic.Bool

	buddyOnline  notifier[BuddyOnlineEvent]
	buddyOffline notifier[BuddyEvent]
	buddyUpdated notifier[BuddyEvent]
	chatStarted  notifier[ChatStartedEvent]
	events       notifier[Event]
}

// NewChatClient constructs a logged-out client and subscribes it to its collaborators.
func NewChatClient(opts Options) *ChatClient {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	componentLogger := logger.With().Str("component", "chat_client").Str("client_id", opts.ChatEndpoint.ClientID).Logger()

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &ChatClient{
		endpoint: opts.ChatEndpoint,
		presence: opts.Presence,
		chat:     opts.Chat,
		history:  opts.History,
		log:      &componentLogger,
		now:      now,
		buddies:  NewRegistry(),
	}
	c.loggingEnabled.Store(opts.EnableLogging)

	c.presence.SetPresenceListener(presenceAdapter{c})
	c.chat.SetSessionListener(sessionAdapter{c})
	return c
}

// Endpoint returns the local chat endpoint.
func (c *ChatClient) Endpoint() Endpoint {
	return c.endpoint
}

// CurrentUser returns the local user, or nil before the first login.
func (c *ChatClient) CurrentUser() *SelfBuddy {
	return c.self.Load()
}

// Buddies returns the known buddies.
func (c *ChatClient) Buddies() []*Buddy {
	return c.buddies.List()
}

// Buddy looks up a known buddy by id.
func (c *ChatClient) Buddy(id string) (*Buddy, bool) {
	return c.buddies.Lookup(id)
}

// LoggedIn reports whether login completed and logout has not started.
func (c *ChatClient) LoggedIn() bool {
	return loginState(c.state.Load()) == stateLoggedIn
}

// LoggingEnabled reports whether status changes are written to history.
func (c *ChatClient) LoggingEnabled() bool {
	return c.loggingEnabled.Load()
}

// SetLoggingEnabled toggles history writes.
func (c *ChatClient) SetLoggingEnabled(enabled bool) {
	c.loggingEnabled.Store(enabled)
}

type presenceAdapter struct{ c *ChatClient }

func (a presenceAdapter) UserOnline(info UserInfo, discovered bool) {
	a.c.HandleUserOnline(info, discovered)
}

func (a presenceAdapter) UserOffline(info UserInfo) { a.c.HandleUserOffline(info) }

func (a presenceAdapter) UserUpdated(info UserInfo) { a.c.HandleUserUpdated(info) }

type sessionAdapter struct{ c *ChatClient }

func (a sessionAdapter) SessionStarted(session Session) { a.c.HandleSessionStarted(session) }
