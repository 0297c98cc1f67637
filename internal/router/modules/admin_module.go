package modules

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/appserv/internal/interface/http"
	"github.com/oksasatya/appserv/internal/interface/middleware"
)

// AdminModule exposes operator endpoints to private networks only.
type AdminModule struct {
	Handler *handlers.AdminHandler
	Metrics http.Handler // nil disables /metrics
	RDB     *redis.Client
}

func NewAdminModule(h *handlers.AdminHandler, metrics http.Handler, rdb *redis.Client) *AdminModule {
	return &AdminModule{Handler: h, Metrics: metrics, RDB: rdb}
}

func (m *AdminModule) Register(rg *gin.RouterGroup) {
	private := middleware.Only(middleware.AllowPrivateIP())
	rl := middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByIP(), nil)

	if m.Metrics != nil {
		rg.GET("/metrics", private, rl, gin.WrapH(m.Metrics))
	}
	rg.GET("/admin/users/search", private, rl, m.Handler.SearchUsers)
}
