package sessions

import (
	"encoding/json"
	"time"

	"github.com/jrsteele09/go-services-client/entities"
)

// StateVersion is bumped when the snapshot layout changes.
const StateVersion = 1

// Session is the logical conversation with the remote site: the id the site issued,
// the cookies it set and the user that logged in. A Session is owned by one client
// and is not safe for concurrent use on its own.
type Session struct {
	ID          string         // sessid issued by system.connect or user.login
	Cookies     []Cookie       // in the order the transport reported them
	CurrentUser *entities.User // set after a successful login
}

// State is a saveable snapshot of a Session.
type State struct {
	Version   int            `json:"version"`
	SessionID string         `json:"session_id,omitempty"`
	Cookies   []Cookie       `json:"cookies"`
	User      *entities.User `json:"user,omitempty"`
	SavedAt   time.Time      `json:"saved_at"`
}

// AdoptFrom stores the "sessid" of an envelope payload when one is present and
// reports whether it did. Payloads without a session id are valid (anonymous access).
func (s *Session) AdoptFrom(data json.RawMessage) bool {
	if len(data) == 0 {
		return false
	}
	var payload struct {
		SessID *string `json:"sessid"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return false
	}
	if payload.SessID == nil || *payload.SessID == "" {
		return false
	}
	s.ID = *payload.SessID
	return true
}

// Clear resets the session id, cookies and current user.
func (s *Session) Clear() {
	s.ID = ""
	s.Cookies = nil
	s.CurrentUser = nil
}

// HasID reports whether the site issued a session id.
func (s *Session) HasID() bool {
	return s.ID != ""
}

// IsAuthenticated reports whether a user logged in on the current session id.
func (s *Session) IsAuthenticated() bool {
	return s.HasID() && s.CurrentUser != nil
}

// Snapshot returns a deep copy of the session suitable for persisting.
func (s *Session) Snapshot() State {
	return State{
		Version:   StateVersion,
		SessionID: s.ID,
		Cookies:   copyCookies(s.Cookies),
		User:      copyUser(s.CurrentUser),
		SavedAt:   time.Now().UTC(),
	}
}

// Restore replaces the session with the snapshot contents.
func (s *Session) Restore(state State) {
	s.ID = state.SessionID
	s.Cookies = copyCookies(state.Cookies)
	s.CurrentUser = copyUser(state.User)
}

func copyCookies(in []Cookie) []Cookie {
	if in == nil {
		return nil
	}
	out := make([]Cookie, len(in))
	for i, c := range in {
		out[i] = c
		if c.Expires != nil {
			exp := *c.Expires
			out[i].Expires = &exp
		}
	}
	return out
}

func copyUser(u *entities.User) *entities.User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.Roles != nil {
		cp.Roles = make(entities.PHPMap[string], len(u.Roles))
		for k, v := range u.Roles {
			cp.Roles[k] = v
		}
	}
	return &cp
}
