package router

import (
	"net/http"

	"github.com/oksasatya/appserv/internal/container"
	handlers "github.com/oksasatya/appserv/internal/interface/http"
	"github.com/oksasatya/appserv/internal/metrics"
	"github.com/oksasatya/appserv/internal/router/modules"
)

// InitModules builds the handlers from c and registers every module.
func InitModules(r *Registry, c *container.Container) {
	common := handlers.NewCommonHandler(c.Verify, c.Cookies)
	account := handlers.NewAccountHandler(c.Accounts, c.Cookies)
	prefs := handlers.NewPreferenceHandler(c.Preferences)
	admin := handlers.NewAdminHandler(c.Accounts)

	r.Add(modules.NewCommonModule(common, c.Redis, c.Cfg.RateLimitVerify))
	r.Add(modules.NewUserModule(account, c.Resolver, c.Redis, c.Cfg.RateLimitAuth))
	r.Add(modules.NewRadioModule(prefs, c.Resolver, c.Redis))

	var scrape http.Handler
	if c.Cfg.MetricsEnabled {
		scrape = metrics.Handler(c.Registry)
	}
	r.Add(modules.NewAdminModule(admin, scrape, c.Redis))
}
