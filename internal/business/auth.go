package business

import (
	"context"
	"time"

	"github.com/openkcm/taskboard-client/pkg/session"
)

// SessionStatus describes the local session.
type SessionStatus struct {
	Authenticated bool       `json:"authenticated"`
	Identity      string     `json:"identity,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

func (a *App) Status(ctx context.Context) (SessionStatus, error) {
	ok, err := a.Session.IsAuthenticated(ctx)
	if err != nil {
		return SessionStatus{}, err
	}
	if !ok {
		return SessionStatus{}, nil
	}

	status := SessionStatus{Authenticated: true}

	identity, ok, err := a.Session.Identity(ctx)
	if err == nil && ok {
		status.Identity = identity
	}

	expiry, ok, err := a.Session.AccessTokenExpiry(ctx)
	if err == nil && ok {
		status.ExpiresAt = &expiry
	}

	return status, nil
}

// RequireSession fails with ErrNotLoggedIn when no tokens are stored.
func (a *App) RequireSession(ctx context.Context) error {
	ok, err := a.Session.IsAuthenticated(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotLoggedIn
	}

	return nil
}

func (a *App) Login(ctx context.Context, creds session.Credentials) (SessionStatus, error) {
	if _, err := a.Session.Login(ctx, creds); err != nil {
		return SessionStatus{}, err
	}

	return a.Status(ctx)
}

func (a *App) Refresh(ctx context.Context) (SessionStatus, error) {
	if _, err := a.Session.Refresh(ctx); err != nil {
		return SessionStatus{}, err
	}

	return a.Status(ctx)
}
