package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/appserv/internal/interface/http"
	"github.com/oksasatya/appserv/internal/interface/middleware"
)

// CommonModule serves the pre-auth challenges under /common.
type CommonModule struct {
	Handler *handlers.CommonHandler
	RDB     *redis.Client
	Limit   int // per IP and route per minute
}

func NewCommonModule(h *handlers.CommonHandler, rdb *redis.Client, limit int) *CommonModule {
	return &CommonModule{Handler: h, RDB: rdb, Limit: limit}
}

func (m *CommonModule) Register(rg *gin.RouterGroup) {
	limiter := middleware.RateLimit(m.RDB, m.Limit, time.Minute, middleware.KeyByIPAndPath(), nil)

	g := rg.Group("/common", limiter)
	g.GET("/captcha", m.Handler.Captcha)
	g.POST("/email-code", m.Handler.EmailCode)
}
