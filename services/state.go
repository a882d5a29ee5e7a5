package services

import (
	"context"

	"github.com/jrsteele09/go-services-client/entities"
	svcerrors "github.com/jrsteele09/go-services-client/internal/errors"
	"github.com/jrsteele09/go-services-client/sessions"
	"github.com/pkg/errors"
)

// CurrentUser returns the logged in user, or nil.
func (c *Client) CurrentUser() *entities.User {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.session.CurrentUser
}

func (c *Client) SessionID() string {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.session.ID
}

// Cookies returns the session cookies as of the last login or snapshot.
func (c *Client) Cookies() []sessions.Cookie {
	c.lock.Lock()
	defer c.lock.Unlock()

	return append([]sessions.Cookie(nil), c.session.Cookies...)
}

// GetInstanceState snapshots the session for persisting across process restarts.
// The snapshot carries the cookies the transport holds now, so cookies the site
// rotated after login are not lost.
func (c *Client) GetInstanceState() sessions.State {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.session.HasID() {
		c.session.Cookies = c.transport.Cookies(c.siteURL)
	}
	return c.session.Snapshot()
}

// InitializeSavedState replaces the session with a snapshot and seeds the
// transport's cookie jar from it. A snapshot with a session id counts as connected.
func (c *Client) InitializeSavedState(state sessions.State) error {
	if state.Version != sessions.StateVersion {
		return svcerrors.Classify(svcerrors.ErrUnsupported, errors.Errorf("[Client.InitializeSavedState] state version %d", state.Version))
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	c.session.Restore(state)
	c.transport.SetCookies(c.siteURL, state.Cookies)
	c.connected = c.session.HasID()
	c.logger.Debug().Str("sessid", state.SessionID).Str("state", c.stateLocked().String()).Msg("session restored")
	return nil
}

// Persist saves the current session under key.
func (c *Client) Persist(ctx context.Context, repo sessions.Repo, key string) error {
	if err := repo.Save(ctx, key, c.GetInstanceState()); err != nil {
		return errors.Wrapf(err, "[Client.Persist] save session %q", key)
	}
	return nil
}

// Resume restores the session saved under key. It returns false, without error,
// when nothing was saved.
func (c *Client) Resume(ctx context.Context, repo sessions.Repo, key string) (bool, error) {
	state, err := repo.Load(ctx, key)
	if svcerrors.Is(err, svcerrors.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "[Client.Resume] load session %q", key)
	}
	if err := c.InitializeSavedState(state); err != nil {
		return false, err
	}
	return true, nil
}
