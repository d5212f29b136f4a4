package core

import "sync"

// Chat is an application-level conversation over a transport session.
type Chat struct {
	session  Session
	self     *SelfBuddy
	resolver Resolver

	mu      sync.RWMutex
	buddies []*Buddy

	closeOnce sync.Once
	closeErr  error
}

// NewChat binds a session to the local user and its remote buddies.
// resolver maps identifiers of members who join later.
func NewChat(session Session, self *SelfBuddy, buddies []*Buddy, resolver Resolver) *Chat {
	bound := make([]*Buddy, len(buddies))
	copy(bound, buddies)
	return &Chat{
		session:  session,
		self:     self,
		resolver: resolver,
		buddies:  bound,
	}
}

// ID returns the underlying session id.
func (c *Chat) ID() string {
	return c.session.ID()
}

// Session returns the transport session.
func (c *Chat) Session() Session {
	return c.session
}

// Self returns the local user bound to the chat.
func (c *Chat) Self() *SelfBuddy {
	return c.self
}

// Buddies returns the remote participants.
func (c *Chat) Buddies() []*Buddy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Buddy, len(c.buddies))
	copy(out, c.buddies)
	return out
}

// AddParticipant resolves a late-arriving member. Unknown ids are declined.
func (c *Chat) AddParticipant(id string) (*Buddy, bool) {
	if c.resolver == nil {
		return nil, false
	}
	b, ok := c.resolver.Resolve(id)
	if !ok {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.buddies {
		if existing.ID() == id {
			return existing, true
		}
	}
	c.buddies = append(c.buddies, b)
	return b, true
}

// Leave closes the session. Safe to call more than once.
func (c *Chat) Leave() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.session.Close()
	})
	return c.closeErr
}
