package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// attemptAndDiscard runs fn and swallows whatever goes wrong, panics included.
// It backs the history writes only: they must never change reconciliation results.
func attemptAndDiscard(logger *zerolog.Logger, what string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug().Str("op", what).Interface("panic", r).Msg("best-effort operation panicked")
		}
	}()
	if err := fn(); err != nil {
		logger.Debug().Err(err).Str("op", what).Msg("best-effort operation failed")
	}
}

// logStatus records the buddy's current status when logging is enabled.
func (c *ChatClient) logStatus(b *Buddy) {
	if !c.loggingEnabled.Load() || c.history == nil || b == nil {
		return
	}
	state := b.Snapshot()
	attemptAndDiscard(c.log, "logging history", func() error {
		if err := c.history.AddStatusUpdate(context.Background(), c.now(), state.ID, state.DisplayName, int(state.Status)); err != nil {
			return fmt.Errorf("record status of %s: %w", state.ID, err)
		}
		return nil
	})
}
