package handlers

import (
	"time"

	"github.com/awn-app/awn/pkg/awn"
	"github.com/awn-app/awn/pkg/backend"
	"github.com/awn-app/awn/pkg/query"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
	SessionCookie = "awn_session"

	sessionLocal = "awn.session"
)

// cookieTokens keeps the session tokens in browser cookies. Values written
// during a request are visible to later reads of the same request. Clearing
// the tokens also runs forget, which drops the session's cached data.
type cookieTokens struct {
	c          *fiber.Ctx
	production bool
	now        func() time.Time
	forget     func()

	access, refresh string
}

var _ backend.TokenStore = (*cookieTokens)(nil)

func (t *cookieTokens) AccessToken() string  { return t.access }
func (t *cookieTokens) RefreshToken() string { return t.refresh }

func (t *cookieTokens) SetTokens(access, refresh string) {
	now := t.now()
	t.access = access
	t.c.Cookie(t.cookie(AccessCookie, access, backend.AccessExpiry(access, now), false))
	if refresh != "" {
		t.refresh = refresh
		t.c.Cookie(t.cookie(RefreshCookie, refresh, now.Add(backend.RefreshTTL), true))
	}
}

func (t *cookieTokens) Clear() {
	t.access, t.refresh = "", ""
	expired := time.Unix(0, 0)
	t.c.Cookie(t.cookie(AccessCookie, "", expired, false))
	t.c.Cookie(t.cookie(RefreshCookie, "", expired, true))
	if t.forget != nil {
		t.forget()
	}
}

// cookie builds a session cookie. The access token stays readable by page
// scripts; the refresh token does not.
func (t *cookieTokens) cookie(name, value string, expires time.Time, httpOnly bool) *fiber.Cookie {
	sameSite := fiber.CookieSameSiteLaxMode
	if t.production {
		sameSite = fiber.CookieSameSiteStrictMode
	}
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: httpOnly,
		Secure:   t.production,
		SameSite: sameSite,
	}
}

// Sessions attaches an awn.Session to every request. The session id cookie
// scopes cache and is issued on first visit.
func Sessions(cache *query.Cache, production bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Cookies(SessionCookie)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HTTPOnly: true,
				Secure:   production,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		tokens := &cookieTokens{
			c:          c,
			production: production,
			now:        time.Now,
			forget:     func() { cache.DropScope(id) },
			access:     c.Cookies(AccessCookie),
			refresh:    c.Cookies(RefreshCookie),
		}
		c.Locals(sessionLocal, awn.Session{ID: id, Tokens: tokens})
		return c.Next()
	}
}

// session returns the request's session. Requests that bypassed the
// Sessions middleware get an empty anonymous one.
func session(c *fiber.Ctx) awn.Session {
	if s, ok := c.Locals(sessionLocal).(awn.Session); ok {
		return s
	}
	return awn.Session{}
}
