package sessions_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jrsteele09/go-services-client/entities"
	"github.com/jrsteele09/go-services-client/sessions"
	"github.com/stretchr/testify/require"
)

func testSession() *sessions.Session {
	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	return &sessions.Session{
		ID: "S1",
		Cookies: []sessions.Cookie{
			{Name: "SESSabc", Value: "S1", Domain: "cms.example.com", Path: "/", Expires: &expires, HTTPOnly: true},
			{Name: "has_js", Value: "1", Path: "/"},
		},
		CurrentUser: &entities.User{UID: 7, Name: "alice", Roles: entities.PHPMap[string]{"2": "authenticated user"}},
	}
}

func TestSession_AdoptFrom(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		adopted bool
		wantID  string
	}{
		{"sessid present", `{"sessid":"abc","user":{"uid":0}}`, true, "abc"},
		{"no sessid", `{"user":{"uid":0}}`, false, "old"},
		{"empty sessid", `{"sessid":""}`, false, "old"},
		{"scalar payload", `"sites/default/files"`, false, "old"},
		{"array payload", `[1,2]`, false, "old"},
		{"no payload", ``, false, "old"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &sessions.Session{ID: "old"}
			require.Equal(t, tt.adopted, s.AdoptFrom(json.RawMessage(tt.data)))
			require.Equal(t, tt.wantID, s.ID)
		})
	}
}

func TestSession_Clear(t *testing.T) {
	s := testSession()
	require.True(t, s.IsAuthenticated())

	s.Clear()
	require.Empty(t, s.ID)
	require.Nil(t, s.Cookies)
	require.Nil(t, s.CurrentUser)
	require.False(t, s.HasID())
	require.False(t, s.IsAuthenticated())
}

func TestSession_SnapshotRestore(t *testing.T) {
	original := testSession()
	state := original.Snapshot()

	require.Equal(t, sessions.StateVersion, state.Version)
	require.False(t, state.SavedAt.IsZero())

	t.Run("restore reproduces the session", func(t *testing.T) {
		restored := &sessions.Session{}
		restored.Restore(state)
		require.Equal(t, original, restored)
	})

	t.Run("survives json", func(t *testing.T) {
		b, err := json.Marshal(state)
		require.NoError(t, err)

		var decoded sessions.State
		require.NoError(t, json.Unmarshal(b, &decoded))

		restored := &sessions.Session{}
		restored.Restore(decoded)
		require.Equal(t, original.ID, restored.ID)
		require.Equal(t, original.CurrentUser, restored.CurrentUser)
		require.Len(t, restored.Cookies, 2)
		require.True(t, original.Cookies[0].Expires.Equal(*restored.Cookies[0].Expires))
		require.Equal(t, original.Cookies[1], restored.Cookies[1])
	})

	t.Run("snapshot is a deep copy", func(t *testing.T) {
		s := testSession()
		snap := s.Snapshot()
		s.CurrentUser.Name = "mallory"
		s.CurrentUser.Roles["3"] = "admin"
		s.Cookies[0].Value = "changed"
		*s.Cookies[0].Expires = time.Time{}

		require.Equal(t, "alice", snap.User.Name)
		require.NotContains(t, snap.User.Roles, "3")
		require.Equal(t, "S1", snap.Cookies[0].Value)
		require.False(t, snap.Cookies[0].Expires.IsZero())
	})

	t.Run("empty session", func(t *testing.T) {
		restored := &sessions.Session{ID: "stale"}
		restored.Restore((&sessions.Session{}).Snapshot())
		require.Equal(t, &sessions.Session{}, restored)
	})
}

func TestCookieConversion(t *testing.T) {
	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	hc := &http.Cookie{Name: "SESSabc", Value: "S1", Domain: "cms.example.com", Path: "/", Expires: expires, Secure: true, HttpOnly: true}

	c := sessions.CookieFromHTTP(hc)
	require.Equal(t, "SESSabc", c.Name)
	require.True(t, c.Secure)
	require.True(t, c.HTTPOnly)
	require.True(t, expires.Equal(*c.Expires))

	back := c.HTTP()
	require.Equal(t, hc.Name, back.Name)
	require.Equal(t, hc.Value, back.Value)
	require.True(t, hc.Expires.Equal(back.Expires))

	t.Run("session cookie has no expiry", func(t *testing.T) {
		c := sessions.CookieFromHTTP(&http.Cookie{Name: "a", Value: "b"})
		require.Nil(t, c.Expires)
		require.False(t, c.Expired(time.Now()))
	})

	t.Run("expired", func(t *testing.T) {
		require.True(t, c.Expired(expires.Add(time.Second)))
		require.False(t, c.Expired(expires.Add(-time.Second)))
	})
}
