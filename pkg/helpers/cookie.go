package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// VerifyCookieName carries the pre-auth verification session id.
const VerifyCookieName = "SESSION"

type Manager struct {
	Domain string
	Secure bool
}

func NewCookie(domain string, secure bool) *Manager {
	return &Manager{Domain: domain, Secure: secure}
}

// SetVerifySession binds the verification session id to the client for ttl.
func (m *Manager) SetVerifySession(c *gin.Context, sid string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(VerifyCookieName, sid, int(ttl.Seconds()), "/", m.Domain, m.Secure, true)
}

func (m *Manager) VerifySession(c *gin.Context) string {
	sid, err := c.Cookie(VerifyCookieName)
	if err != nil {
		return ""
	}
	return sid
}

func (m *Manager) ClearVerifySession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(VerifyCookieName, "", -1, "/", m.Domain, m.Secure, true)
}
