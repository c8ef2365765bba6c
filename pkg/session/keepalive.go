package session

import (
	"context"
	"errors"
	"time"

	slogctx "github.com/veqryn/slog-context"
)

const DefaultKeepAliveInterval = 5 * time.Minute

// KeepAlive refreshes the tokens right away and then once per interval while
// a session exists. A failed cycle, including one that cannot read the
// store, ends the session but not the loop, so a
// later login is kept alive as well. It returns when ctx is done and no
// refresh is running.
func (m *Manager) KeepAlive(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("keep alive interval must be positive")
	}

	c := time.Tick(interval)
	for {
		m.keepAliveCycle(ctx)

		select {
		case <-c:
			continue
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Manager) keepAliveCycle(ctx context.Context) {
	ok, err := m.store.HasTokens(ctx)
	if err != nil {
		slogctx.Error(ctx, "Could not read the session, ending it", "error", err)
		m.endSession(ctx)
		return
	}
	if !ok {
		slogctx.Debug(ctx, "No session, skipping tokens refresh")
		return
	}

	slogctx.Info(ctx, "Triggering tokens refresh")

	// Wait for a started refresh even on shutdown, the server may already
	// have rotated the pair.
	if _, err := m.Refresh(context.WithoutCancel(ctx)); err != nil {
		slogctx.Error(ctx, "Failed to refresh tokens", "error", err)
	}
}
