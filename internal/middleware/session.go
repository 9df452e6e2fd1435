package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// sessionValueKey is the only value kept in the cookie: the opaque id the
// server-side session store is keyed by.
const sessionValueKey = "sid"

const cookieOptionsKey = "session_cookie_options"

type CookieOptions struct {
	Name     string
	Secret   string
	TTL      time.Duration
	Secure   bool
	SameSite string // lax, strict or none
}

// Sessions installs the signed session cookie.
func Sessions(opts CookieOptions) gin.HandlerFunc {
	live := opts.sessionOptions()
	store := cookie.NewStore([]byte(opts.Secret))
	store.Options(live)
	handler := sessions.Sessions(opts.Name, store)
	return func(c *gin.Context) {
		c.Set(cookieOptionsKey, live)
		handler(c)
	}
}

func (o CookieOptions) sessionOptions() sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   int(o.TTL / time.Second),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: sameSiteMode(o.SameSite),
	}
}

func sameSiteMode(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// SessionID returns the id carried by the request cookie, or "".
func SessionID(c *gin.Context) string {
	sid, _ := sessions.Default(c).Get(sessionValueKey).(string)
	return sid
}

// SaveSessionID replaces whatever the cookie held with sid. The configured
// cookie options are restored first, since ClearSessionID may already have
// expired the cookie earlier in the same request.
func SaveSessionID(c *gin.Context, sid string) error {
	s := sessions.Default(c)
	if opts, ok := c.Get(cookieOptionsKey); ok {
		s.Options(opts.(sessions.Options))
	}
	s.Clear()
	s.Set(sessionValueKey, sid)
	return s.Save()
}

// ClearSessionID expires the cookie.
func ClearSessionID(c *gin.Context) error {
	s := sessions.Default(c)
	s.Clear()
	s.Options(sessions.Options{Path: "/", MaxAge: -1})
	return s.Save()
}
