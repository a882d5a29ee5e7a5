package sessions

import (
	"net/http"
	"time"
)

// Cookie is a serializable cookie
type Cookie struct {
	Name     string     `json:"name"`
	Value    string     `json:"value"`
	Domain   string     `json:"domain,omitempty"`
	Path     string     `json:"path,omitempty"`
	Expires  *time.Time `json:"expires,omitempty"`
	Secure   bool       `json:"secure,omitempty"`
	HTTPOnly bool       `json:"http_only,omitempty"`
}

// CookieFromHTTP converts a net/http cookie. A zero expiry means a session cookie.
func CookieFromHTTP(c *http.Cookie) Cookie {
	out := Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HTTPOnly: c.HttpOnly,
	}
	if !c.Expires.IsZero() {
		exp := c.Expires.UTC()
		out.Expires = &exp
	}
	return out
}

// HTTP converts back to a net/http cookie.
func (c Cookie) HTTP() *http.Cookie {
	out := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
	}
	if c.Expires != nil {
		out.Expires = *c.Expires
	}
	return out
}

// Expired reports whether the cookie has an expiry before now.
func (c Cookie) Expired(now time.Time) bool {
	return c.Expires != nil && c.Expires.Before(now)
}
