package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"

	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
)

// Cookie names shared with clients.
const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// cookieManager writes the token pair as HMAC-signed, http-only cookies.
// Each cookie has its own codec so the embedded timestamp is checked
// against that cookie's TTL.
type cookieManager struct {
	access  *securecookie.SecureCookie
	refresh *securecookie.SecureCookie

	accessTTL  time.Duration
	refreshTTL time.Duration

	secure   bool
	sameSite http.SameSite
}

func newCookieManager(secret []byte, accessTTL, refreshTTL time.Duration, production bool) *cookieManager {
	m := &cookieManager{
		access:     newCodec(secret, accessTTL),
		refresh:    newCodec(secret, refreshTTL),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		sameSite:   http.SameSiteLaxMode,
	}
	if production {
		m.secure = true
		m.sameSite = http.SameSiteStrictMode
	}
	return m
}

func newCodec(secret []byte, ttl time.Duration) *securecookie.SecureCookie {
	return securecookie.New(secret, nil).
		SetSerializer(securecookie.JSONEncoder{}).
		MaxAge(maxAgeSeconds(ttl))
}

func maxAgeSeconds(ttl time.Duration) int {
	s := int(ttl / time.Second)
	if s < 1 {
		return 1
	}
	return s
}

// setTokens writes both cookies of pair.
func (m *cookieManager) setTokens(c *gin.Context, pair *auth.TokenPair) error {
	access, err := m.access.Encode(AccessCookie, pair.AccessToken)
	if err != nil {
		return err
	}
	refresh, err := m.refresh.Encode(RefreshCookie, pair.RefreshToken)
	if err != nil {
		return err
	}

	http.SetCookie(c.Writer, m.cookie(AccessCookie, access, maxAgeSeconds(m.accessTTL)))
	http.SetCookie(c.Writer, m.cookie(RefreshCookie, refresh, maxAgeSeconds(m.refreshTTL)))
	return nil
}

// clear expires both cookies with the attributes they were set with.
func (m *cookieManager) clear(c *gin.Context) {
	http.SetCookie(c.Writer, m.cookie(AccessCookie, "", -1))
	http.SetCookie(c.Writer, m.cookie(RefreshCookie, "", -1))
}

// accessToken returns the token inside the access cookie, or "" when the
// cookie is missing, tampered with or too old.
func (m *cookieManager) accessToken(c *gin.Context) string {
	return m.read(c, AccessCookie, m.access)
}

func (m *cookieManager) refreshToken(c *gin.Context) string {
	return m.read(c, RefreshCookie, m.refresh)
}

func (m *cookieManager) read(c *gin.Context, name string, codec *securecookie.SecureCookie) string {
	raw, err := c.Cookie(name)
	if err != nil || raw == "" {
		return ""
	}
	var token string
	if err := codec.Decode(name, raw, &token); err != nil {
		return ""
	}
	return token
}

func (m *cookieManager) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: m.sameSite,
	}
}
