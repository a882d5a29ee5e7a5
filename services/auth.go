package services

import (
	"context"
	"encoding/json"

	"github.com/jrsteele09/go-services-client/entities"
	"github.com/jrsteele09/go-services-client/envelope"
	svcerrors "github.com/jrsteele09/go-services-client/internal/errors"
	"github.com/pkg/errors"
)

// userPayload is the #data shape of user.login and, on some sites, user.get.
type userPayload struct {
	SessID string          `json:"sessid"`
	User   json.RawMessage `json:"user"`
}

// Login authenticates as username. An already authenticated client returns its
// cached user without touching the network.
func (c *Client) Login(ctx context.Context, username, password string) (*entities.User, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.session.IsAuthenticated() {
		c.logger.Debug().Str("user", c.session.CurrentUser.Name).Msg("login short-circuit, session is live")
		return c.session.CurrentUser, nil
	}

	if err := c.ensureConnected(ctx); err != nil {
		return nil, &LoginError{User: username, Err: err}
	}

	data, err := c.call(ctx, OpUserLogin, map[string]any{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, &LoginError{User: username, Err: err}
	}

	var payload userPayload
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.User) == 0 {
		if err == nil {
			err = svcerrors.ErrUnexpectedType
		}
		return nil, &LoginError{User: username, Err: svcerrors.Classify(svcerrors.ErrSerialization, errors.Wrap(err, "[Client.Login] login payload"))}
	}
	if c.session.AdoptFrom(data) {
		c.metrics.IncSessions()
	}
	user, err := entities.Unserialize[entities.User](payload.User)
	if err != nil {
		return nil, &LoginError{User: username, Err: err}
	}

	c.session.CurrentUser = user
	c.session.Cookies = c.transport.Cookies(c.siteURL)
	c.logger.Debug().Str("user", user.Name).Int("uid", int(user.UID)).Msg("logged in")
	return user, nil
}

// Logout ends the session. The local session is cleared on success and when the
// site reports an error, since either way the remote session is gone. Transport
// failures leave it intact.
func (c *Client) Logout(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.ensureConnected(ctx); err != nil {
		return &LogoutError{Err: err}
	}

	_, err := c.call(ctx, OpUserLogout, nil)
	if err != nil && !svcerrors.Is(err, svcerrors.ErrRemote) {
		return &LogoutError{Err: err}
	}

	c.session.Clear()
	c.transport.SetCookies(c.siteURL, nil)
	c.connected = false
	c.logger.Debug().Msg("logged out")

	if err != nil {
		return &LogoutError{Err: err}
	}
	return nil
}

// GetUser loads account uid. A session id in the reply is adopted, and the cached
// current user is refreshed when uid is the logged in account.
func (c *Client) GetUser(ctx context.Context, uid int) (*entities.User, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	data, err := c.connectAndCall(ctx, OpUserGet, map[string]any{"uid": uid})
	if err != nil {
		return nil, &FetchError{Op: OpUserGet, Err: err}
	}

	userData := data
	var payload userPayload
	loginShaped := json.Unmarshal(data, &payload) == nil && len(payload.User) > 0
	if loginShaped {
		userData = payload.User
	}
	if c.session.AdoptFrom(data) {
		c.metrics.IncSessions()
	}

	user, err := entities.Unserialize[entities.User](userData)
	if err != nil {
		return nil, &FetchError{Op: OpUserGet, Err: err}
	}
	switch cur := c.session.CurrentUser; {
	case loginShaped && !user.IsAnonymous():
		// a {sessid, user} reply describes the session's own user
		c.session.CurrentUser = user
	case loginShaped:
		c.session.CurrentUser = nil
	case cur != nil && cur.UID == user.UID:
		c.session.CurrentUser = user
	}
	return user, nil
}

// RegisterNewUser creates an account and returns its uid.
func (c *Client) RegisterNewUser(ctx context.Context, username, password, email string) (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	account, err := serializeEscaped(&entities.User{Name: username, Pass: password, Mail: email})
	if err != nil {
		return 0, &SaveError{Op: OpUserSave, Err: err}
	}

	data, err := c.connectAndCall(ctx, OpUserSave, map[string]any{"account": account})
	if err != nil {
		return 0, &SaveError{Op: OpUserSave, Err: err}
	}
	uid, err := envelope.Int(data)
	if err != nil {
		return 0, &SaveError{Op: OpUserSave, Err: err}
	}
	return uid, nil
}

// serializeEscaped renders v for a save call, escaping non-ASCII characters.
func serializeEscaped(v any) (string, error) {
	s, err := entities.Serialize(v)
	if err != nil {
		return "", err
	}
	return EscapeNonASCII(s), nil
}
