package core

// HandleUserOnline processes an online notification. Unknown buddies are
// added and reported with the given discovered flag; known buddies are
// refreshed and always reported as not discovered.
func (c *ChatClient) HandleUserOnline(info UserInfo, discovered bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.accepts(info) {
		return
	}

	b, ok := c.buddies.Lookup(info.ID)
	if !ok {
		b = newBuddy(info)
		c.buddies.Add(b)
		c.log.Debug().Str("buddy_id", b.ID()).Bool("discovered", discovered).Msg("buddy added")
	} else {
		b.update(info)
		discovered = false
	}
	c.onBuddyOnline(b, discovered)
}

// HandleUserUpdated processes an update notification for a known buddy and
// classifies it by whether it crossed the online/offline boundary.
func (c *ChatClient) HandleUserUpdated(info UserInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.accepts(info) {
		return
	}

	b, ok := c.buddies.Lookup(info.ID)
	if !ok {
		return
	}

	wasOnline := b.IsOnline()
	b.update(info)
	isOnline := b.IsOnline()

	switch {
	case wasOnline && !isOnline:
		c.onBuddyOffline(b)
	case !wasOnline && isOnline:
		c.onBuddyOnline(b, false)
	default:
		c.onBuddyUpdated(b)
	}
}

// HandleUserOffline processes an offline notification for a known buddy.
// It reports buddy-offline even if the buddy was already offline.
func (c *ChatClient) HandleUserOffline(info UserInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.accepts(info) {
		return
	}

	b, ok := c.buddies.Lookup(info.ID)
	if !ok {
		return
	}
	b.update(info)
	c.onBuddyOffline(b)
}

// accepts filters notifications that must not touch the registry.
// Caller holds c.mu.
func (c *ChatClient) accepts(info UserInfo) bool {
	if loginState(c.state.Load()) == stateLoggedOut {
		c.log.Debug().Str("buddy_id", info.ID).Msg("presence notification after logout dropped")
		return false
	}
	if info.ID == "" || info.ID == c.endpoint.ClientID {
		return false
	}
	return true
}

func (c *ChatClient) onBuddyOnline(b *Buddy, discovered bool) {
	if !discovered {
		c.logStatus(b)
	}
	c.emitBuddyOnline(b, discovered)
}

func (c *ChatClient) onBuddyOffline(b *Buddy) {
	c.logStatus(b)
	c.emitBuddyOffline(b)
}

func (c *ChatClient) onBuddyUpdated(b *Buddy) {
	c.logStatus(b)
	c.emitBuddyUpdated(b)
}
