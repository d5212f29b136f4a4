package core

import (
	"context"
	"sync"
	"sync/atomic"
)

// publishFunc republishes the local user's state to the network.
type publishFunc func(ctx context.Context, self *SelfBuddy) error

// SelfBuddy is the local user. While updates are enabled every setter
// republishes the profile through the presence service.
type SelfBuddy struct {
	*Buddy

	// serialises mutate+publish so publishes go out in mutation order
	mu             sync.Mutex
	updatesEnabled atomic.Bool
	publish        publishFunc
}

func newSelfBuddy(info UserInfo, publish publishFunc) *SelfBuddy {
	return &SelfBuddy{
		Buddy:   newBuddy(info),
		publish: publish,
	}
}

// UpdatesEnabled reports whether profile changes are republished.
func (s *SelfBuddy) UpdatesEnabled() bool {
	return s.updatesEnabled.Load()
}

func (s *SelfBuddy) setUpdatesEnabled(enabled bool) {
	s.updatesEnabled.Store(enabled)
}

// SetDisplayName changes the display name.
func (s *SelfBuddy) SetDisplayName(ctx context.Context, name string) error {
	return s.mutate(ctx, func(b *Buddy) {
		b.displayName = name
	})
}

// SetStatus changes the presence status.
func (s *SelfBuddy) SetStatus(ctx context.Context, status Status) error {
	return s.mutate(ctx, func(b *Buddy) {
		b.status = status
	})
}

// SetProperty sets one profile attribute.
func (s *SelfBuddy) SetProperty(ctx context.Context, key, value string) error {
	return s.mutate(ctx, func(b *Buddy) {
		if b.properties == nil {
			b.properties = make(Properties)
		}
		b.properties[key] = value
	})
}

// DeleteProperty removes one profile attribute.
func (s *SelfBuddy) DeleteProperty(ctx context.Context, key string) error {
	return s.mutate(ctx, func(b *Buddy) {
		delete(b.properties, key)
	})
}

// SetProperties replaces the whole attribute set.
func (s *SelfBuddy) SetProperties(ctx context.Context, props Properties) error {
	replacement := props.Clone()
	return s.mutate(ctx, func(b *Buddy) {
		b.properties = replacement
	})
}

// mutate applies fn and publishes once if updates are enabled.
// The change sticks even if publishing fails.
func (s *SelfBuddy) mutate(ctx context.Context, fn func(b *Buddy)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Buddy.mu.Lock()
	fn(s.Buddy)
	s.Buddy.mu.Unlock()

	if !s.updatesEnabled.Load() || s.publish == nil {
		return nil
	}
	return s.publish(ctx, s)
}
