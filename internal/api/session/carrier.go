// Package session binds a credential to the HTTP transport through a cookie.
//
// Clearing the cookie is only an instruction to the client. A token copied
// before sign-out keeps verifying until it expires; there is no server-side
// revocation.
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const DefaultCookieName = "token"

// Carrier reads and writes the session cookie with fixed security attributes.
type Carrier struct {
	name     string
	secure   bool
	sameSite http.SameSite
	ttl      time.Duration
}

// Options configures a Carrier.
type Options struct {
	// Name defaults to DefaultCookieName.
	Name string
	// Secure restricts the cookie to HTTPS. Disable only in development.
	Secure bool
	// SameSite is "strict" (default) or "lax".
	SameSite string
	// TTL is the cookie lifetime; it should match the credential TTL.
	TTL time.Duration
}

// NewCarrier returns a Carrier for opts.
func NewCarrier(opts Options) *Carrier {
	name := opts.Name
	if name == "" {
		name = DefaultCookieName
	}
	return &Carrier{
		name:     name,
		secure:   opts.Secure,
		sameSite: parseSameSite(opts.SameSite),
		ttl:      opts.TTL,
	}
}

// Name returns the cookie name.
func (s *Carrier) Name() string { return s.name }

// Attach writes token into the session cookie.
func (s *Carrier) Attach(c echo.Context, token string) {
	ck := s.cookie(token)
	ck.MaxAge = int(s.ttl / time.Second)
	ck.Expires = time.Now().Add(s.ttl)
	c.SetCookie(ck)
}

// Extract returns the session token. A missing or empty cookie reports false.
func (s *Carrier) Extract(c echo.Context) (string, bool) {
	ck, err := c.Cookie(s.name)
	if err != nil || ck.Value == "" {
		return "", false
	}
	return ck.Value, true
}

// Clear overwrites the cookie with an empty, already expired value.
func (s *Carrier) Clear(c echo.Context) {
	ck := s.cookie("")
	ck.MaxAge = -1
	ck.Expires = time.Unix(0, 0)
	c.SetCookie(ck)
}

func (s *Carrier) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     s.name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: s.sameSite,
	}
}

func parseSameSite(v string) http.SameSite {
	if strings.EqualFold(strings.TrimSpace(v), "lax") {
		return http.SameSiteLaxMode
	}
	return http.SameSiteStrictMode
}
