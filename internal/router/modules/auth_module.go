package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/readly/internal/container"
	handlers "github.com/oksasatya/readly/internal/interface/http"
	"github.com/oksasatya/readly/internal/interface/middleware"
	"github.com/oksasatya/readly/pkg/helpers"
)

type AuthOptions struct {
	CookieName         string
	DirectoryAdminOnly bool
	RateLimitEnabled   bool
	BypassPrivateIPs   bool
	AllowCIDRs         []string
}

type AuthModule struct {
	Handler *handlers.AuthHandler
	JWT     *helpers.JWTManager
	Opts    AuthOptions
}

func NewAuthModule(h *handlers.AuthHandler, jwt *helpers.JWTManager, opts AuthOptions) *AuthModule {
	return &AuthModule{Handler: h, JWT: jwt, Opts: opts}
}

func (m *AuthModule) limit(max int) gin.HandlerFunc {
	return m.limitBy(max, middleware.KeyByIPAndPath())
}

func (m *AuthModule) limitBy(max int, key middleware.KeyFunc) gin.HandlerFunc {
	if !m.Opts.RateLimitEnabled {
		return func(c *gin.Context) { c.Next() }
	}
	var private middleware.AllowFunc
	if m.Opts.BypassPrivateIPs {
		private = middleware.AllowPrivateIP()
	}
	var cidrs middleware.AllowFunc
	if len(m.Opts.AllowCIDRs) > 0 {
		cidrs = middleware.AllowCIDRs(m.Opts.AllowCIDRs...)
	}
	allow := middleware.AnyOf(private, cidrs)
	return middleware.RateLimit(container.GetRedis(), max, time.Minute, key, allow)
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")

	// Public endpoints with IP-based rate limits
	auth.POST("/signup", m.limit(10), m.Handler.Signup)
	auth.POST("/login", m.limit(10), m.Handler.Login)
	auth.POST("/logout", m.Handler.Logout)
	auth.POST("/verify-email", m.limit(30), m.Handler.VerifyEmail)
	auth.POST("/forgot-password", m.limit(5), m.Handler.ForgotPassword)
	auth.POST("/reset-password/:token", m.limit(30), m.Handler.ResetPassword)

	session := auth.Group("")
	session.Use(middleware.Session(m.JWT, m.Opts.CookieName))
	{
		session.GET("/check-auth", m.Handler.CheckAuth)
		session.POST("/verify-email/resend", m.limit(5), m.Handler.ResendVerification)

		directory := session.Group("")
		if m.Opts.DirectoryAdminOnly {
			directory.Use(middleware.RequireAdmin())
		}
		directory.GET("/users", m.Handler.Users)
		directory.GET("/admins", m.Handler.Admins)

		session.GET("/users/search", middleware.RequireAdmin(), m.limitBy(60, middleware.KeyByUserID()), m.Handler.SearchUsers)
	}
}
