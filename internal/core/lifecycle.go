package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Login starts the chat service, announces the user on the network and
// creates the local self buddy with status online.
func (c *ChatClient) Login(ctx context.Context, username string, props Properties) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrInvalidUsername
	}

	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	c.mu.Lock()
	if loginState(c.state.Load()) != stateLoggedOut {
		c.mu.Unlock()
		return ErrAlreadyLoggedIn
	}
	c.state.Store(int32(stateLoggingIn))
	c.mu.Unlock()

	// Sessions and presence can arrive while the collaborators log in, so the
	// new self must be current before they start. Updates stay off until then.
	self := newSelfBuddy(UserInfo{
		ID:           c.endpoint.ClientID,
		DisplayName:  username,
		Status:       StatusOnline,
		ChatEndpoint: c.endpoint.Address,
		Properties:   props,
	}, c.publishSelfState)
	previous := c.self.Swap(self)

	if err := c.chat.Start(ctx); err != nil {
		c.self.Store(previous)
		c.resetState()
		return fmt.Errorf("start chat service: %w", err)
	}
	if err := c.presence.Login(ctx, username, props.Clone()); err != nil {
		if stopErr := c.chat.Stop(); stopErr != nil {
			c.log.Warn().Err(stopErr).Msg("failed to stop chat service after failed login")
		}
		c.self.Store(previous)
		c.resetState()
		return fmt.Errorf("presence login: %w", err)
	}

	self.setUpdatesEnabled(true)
	c.logStatus(self.Buddy)

	c.mu.Lock()
	c.state.Store(int32(stateLoggedIn))
	c.mu.Unlock()

	c.log.Info().Str("username", username).Msg("logged in")
	return nil
}

// Logout drops every known buddy, stops the collaborators and marks the
// local user offline without republishing it. Calling it while logged out
// is a no-op.
func (c *ChatClient) Logout(ctx context.Context) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	c.mu.Lock()
	if loginState(c.state.Load()) == stateLoggedOut {
		c.mu.Unlock()
		return nil
	}
	c.state.Store(int32(stateLoggedOut))
	c.buddies.Clear()
	c.mu.Unlock()

	var errs []error
	if err := c.chat.Stop(); err != nil {
		c.log.Warn().Err(err).Msg("failed to stop chat service")
		errs = append(errs, fmt.Errorf("stop chat service: %w", err))
	}
	if err := c.presence.Logout(ctx); err != nil {
		c.log.Warn().Err(err).Msg("failed to log out of presence service")
		errs = append(errs, fmt.Errorf("presence logout: %w", err))
	}

	if self := c.self.Load(); self != nil {
		// presence Logout already announced the departure
		self.setUpdatesEnabled(false)
		_ = self.SetStatus(ctx, StatusOffline)
		c.logStatus(self.Buddy)
	}

	c.log.Info().Msg("logged out")
	return errors.Join(errs...)
}

// Close logs out. Safe to call repeatedly.
func (c *ChatClient) Close() error {
	return c.Logout(context.Background())
}

func (c *ChatClient) resetState() {
	c.mu.Lock()
	c.state.Store(int32(stateLoggedOut))
	c.mu.Unlock()
}

// publishSelfState sends the local user's profile to the presence service.
func (c *ChatClient) publishSelfState(ctx context.Context, self *SelfBuddy) error {
	c.logStatus(self.Buddy)
	state := self.Snapshot()
	if err := c.presence.Update(ctx, state.DisplayName, state.Properties, state.Status); err != nil {
		return fmt.Errorf("publish self state: %w", err)
	}
	return nil
}
