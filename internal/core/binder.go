package core

import (
	"context"
	"fmt"
)

// StartChat opens a session with buddy and wraps it into a Chat.
// It returns as soon as the chat service hands back the session.
func (c *ChatClient) StartChat(ctx context.Context, buddy *Buddy) (*Chat, error) {
	if buddy == nil {
		return nil, ErrUnknownBuddy
	}
	self := c.self.Load()
	if !c.LoggedIn() || self == nil {
		return nil, ErrNotLoggedIn
	}

	session, err := c.chat.CreateSession(ctx, buddy.Endpoint())
	if err != nil {
		return nil, fmt.Errorf("create session with %s: %w", buddy.ID(), err)
	}
	return NewChat(session, self, []*Buddy{buddy}, c.buddies), nil
}

// HandleSessionStarted surfaces a remotely opened session as a Chat when at
// least one participant is a known buddy. Otherwise the session is ignored.
func (c *ChatClient) HandleSessionStarted(session Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	self := c.self.Load()
	if loginState(c.state.Load()) == stateLoggedOut || self == nil {
		return
	}

	var resolved []*Buddy
	for _, user := range session.RemoteUsers() {
		if b, ok := c.buddies.Lookup(user.ClientID); ok {
			resolved = append(resolved, b)
		}
	}
	if len(resolved) == 0 {
		c.log.Debug().Str("session_id", session.ID()).Msg("session without known participants declined")
		return
	}

	chat := NewChat(session, self, resolved, c.buddies)
	c.emitChatStarted(chat, chat.Buddies())
}
