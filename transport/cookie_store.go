package transport

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-services-client/sessions"
)

// cookieStore keeps every attribute of the cookies the site sets, in the order
// they were first set. The jar only hands back name and value.
type cookieStore struct {
	lock    sync.Mutex
	entries []storedCookie
}

type storedCookie struct {
	host   string // request host, scopes host-only cookies
	cookie sessions.Cookie
}

func (e storedCookie) sameKey(o storedCookie) bool {
	if e.cookie.Name != o.cookie.Name || e.cookie.Domain != o.cookie.Domain || e.cookie.Path != o.cookie.Path {
		return false
	}
	return e.cookie.Domain != "" || e.host == o.host
}

func (e storedCookie) matches(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	if d := e.cookie.Domain; d != "" {
		if host != d && !strings.HasSuffix(host, "."+d) {
			return false
		}
	} else if host != e.host {
		return false
	}
	p := u.Path
	if p == "" {
		p = "/"
	}
	cp := e.cookie.Path
	if p == cp {
		return true
	}
	return strings.HasPrefix(p, cp) && (strings.HasSuffix(cp, "/") || p[len(cp)] == '/')
}

// record applies Set-Cookie headers received from u.
func (s *cookieStore) record(u *url.URL, cookies []*http.Cookie, now time.Time) {
	if len(cookies) == 0 {
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, c := range cookies {
		entry := storedCookie{host: strings.ToLower(u.Hostname()), cookie: sessions.CookieFromHTTP(c)}
		entry.cookie.Domain = strings.ToLower(strings.TrimPrefix(entry.cookie.Domain, "."))
		if entry.cookie.Path == "" || entry.cookie.Path[0] != '/' {
			entry.cookie.Path = defaultCookiePath(u.Path)
		}
		if c.MaxAge > 0 {
			exp := now.Add(time.Duration(c.MaxAge) * time.Second).UTC()
			entry.cookie.Expires = &exp
		}
		s.put(entry, c.MaxAge < 0 || entry.cookie.Expired(now))
	}
}

// put replaces the entry with the same key in place, appends a new one, or
// removes it when remove is set. Caller holds the lock.
func (s *cookieStore) put(entry storedCookie, remove bool) {
	for i, e := range s.entries {
		if e.sameKey(entry) {
			if remove {
				s.entries = append(s.entries[:i], s.entries[i+1:]...)
			} else {
				s.entries[i] = entry
			}
			return
		}
	}
	if !remove {
		s.entries = append(s.entries, entry)
	}
}

// replace drops every cookie sent to u and stores cookies in its place.
func (s *cookieStore) replace(u *url.URL, cookies []sessions.Cookie, now time.Time) {
	s.lock.Lock()
	defer s.lock.Unlock()

	kept := s.entries[:0]
	for _, e := range s.entries {
		if !e.matches(u) {
			kept = append(kept, e)
		}
	}
	s.entries = kept

	for _, c := range cookies {
		if c.Expired(now) {
			continue
		}
		if c.Path == "" {
			c.Path = "/"
		}
		c.Domain = strings.ToLower(strings.TrimPrefix(c.Domain, "."))
		s.put(storedCookie{host: strings.ToLower(u.Hostname()), cookie: c}, false)
	}
}

// matching returns the live cookies that would be sent to u.
func (s *cookieStore) matching(u *url.URL, now time.Time) []sessions.Cookie {
	s.lock.Lock()
	defer s.lock.Unlock()

	out := make([]sessions.Cookie, 0, len(s.entries))
	for _, e := range s.entries {
		if e.matches(u) && !e.cookie.Expired(now) {
			out = append(out, e.cookie)
		}
	}
	return out
}

// defaultCookiePath is the directory of the request path, "/" at the root.
func defaultCookiePath(p string) string {
	i := strings.LastIndex(p, "/")
	if i <= 0 {
		return "/"
	}
	return p[:i]
}
