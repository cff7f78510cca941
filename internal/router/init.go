package router

import (
	authapp "github.com/oksasatya/readly/internal/application"
	"github.com/oksasatya/readly/internal/container"
	"github.com/oksasatya/readly/internal/infrastructure/search"
	handlers "github.com/oksasatya/readly/internal/interface/http"
	"github.com/oksasatya/readly/internal/router/modules"
	"github.com/oksasatya/readly/pkg/helpers"
	"github.com/oksasatya/readly/pkg/mailer/templates"
)

type AuthModuleDeps struct {
	Service *authapp.Service
	Handler *handlers.AuthHandler
}

func buildAuthDeps() AuthModuleDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	var index authapp.UserIndexer
	if cfg.SearchEnabled && container.GetES() != nil {
		index = search.NewUserIndex(container.GetES(), cfg.ESUsersIndex)
	}

	service := authapp.NewService(
		container.GetUserRepo(),
		container.GetJWT(),
		container.GetMailSender(),
		index,
		logger,
		authapp.Options{
			BcryptCost:      cfg.BcryptCost,
			VerificationTTL: cfg.VerificationTTL,
			ResetTTL:        cfg.ResetTTL,
			Brand: templates.Brand{
				AppName:     cfg.AppName,
				CompanyName: cfg.CompanyName,
				SupportURL:  cfg.SupportURL,
				ClientURI:   cfg.ClientURI,
			},
		},
	)

	handler := handlers.NewAuthHandler(
		service,
		logger,
		helpers.NewCookie(cfg.SessionCookieName, cfg.CookieDomain, cfg.IsProduction()),
	)

	return AuthModuleDeps{Service: service, Handler: handler}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	deps := buildAuthDeps()

	r.Add(modules.NewHealthModule(container.GetPGPool(), container.GetRedis()))
	r.Add(modules.NewAuthModule(deps.Handler, container.GetJWT(), modules.AuthOptions{
		CookieName:         cfg.SessionCookieName,
		DirectoryAdminOnly: cfg.DirectoryAdminOnly,
		RateLimitEnabled:   cfg.RateLimitEnabled,
		BypassPrivateIPs:   cfg.RateLimitBypassPrivate,
		AllowCIDRs:         cfg.RateLimitAllowList(),
	}))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
