package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Manager writes the HTTP-only session cookie.
type Manager struct {
	Name     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// NewCookie builds the cookie policy: production cookies are Secure and SameSite=Strict,
// everything else is SameSite=Lax over plain HTTP.
func NewCookie(name, domain string, production bool) *Manager {
	m := &Manager{Name: name, Domain: domain, SameSite: http.SameSiteLaxMode}
	if production {
		m.Secure = true
		m.SameSite = http.SameSiteStrictMode
	}
	return m
}

func (m *Manager) SetSession(c *gin.Context, token string, exp time.Time) {
	c.SetSameSite(m.SameSite)
	c.SetCookie(m.Name, token, maxAgeFrom(exp), "/", m.Domain, m.Secure, true)
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(m.SameSite)
	c.SetCookie(m.Name, "", -1, "/", m.Domain, m.Secure, true)
}

func maxAgeFrom(exp time.Time) int {
	sec := int(time.Until(exp).Seconds())
	if sec < 0 {
		return 0
	}
	return sec
}
