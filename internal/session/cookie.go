package session

import (
	"net/http"
	"time"
)

// DefaultCookieName is used when no name is configured.
const DefaultCookieName = "arco_session"

// Cookie describes the cookie carrying the session ID.
type Cookie struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

func (c Cookie) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

// Read returns the session ID sent with r, or "".
func (c Cookie) Read(r *http.Request) string {
	ck, err := r.Cookie(c.name())
	if err != nil {
		return ""
	}
	return ck.Value
}

// Write sets the session cookie on w.
func (c Cookie) Write(w http.ResponseWriter, id string) {
	ttl := c.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    id,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie on w.
func (c Cookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
