package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/appserv/internal/interface/http"
	"github.com/oksasatya/appserv/internal/interface/middleware"
)

// RadioModule wires the preference routes of the radio product. All of them need a session.
type RadioModule struct {
	Handler  *handlers.PreferenceHandler
	Resolver middleware.Resolver
	RDB      *redis.Client
}

func NewRadioModule(h *handlers.PreferenceHandler, resolver middleware.Resolver, rdb *redis.Client) *RadioModule {
	return &RadioModule{Handler: h, Resolver: resolver, RDB: rdb}
}

func (m *RadioModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/radio", middleware.Auth(m.Resolver))
	g.Use(middleware.RateLimit(m.RDB, 300, time.Minute, middleware.KeyByUserID(), nil))

	g.GET("/recently", m.Handler.Recently)
	g.POST("/recently/new", m.Handler.NewRecently)
	g.POST("/recently/modify", m.Handler.ModifyRecently)
	g.POST("/recently/clear", m.Handler.ClearRecently)

	g.GET("/groups", m.Handler.Groups)
	g.POST("/group/new", m.Handler.NewGroups)
	g.POST("/group/modify", m.Handler.ModifyGroup)
	g.POST("/group/delete", m.Handler.DeleteGroups)

	g.GET("/favorites", m.Handler.Favorites)
	g.POST("/favorite/new", m.Handler.NewFavorites)
	g.POST("/favorite/delete", m.Handler.DeleteFavorites)
	g.POST("/favorite/modify", m.Handler.ModifyFavorite)

	g.POST("/sync", m.Handler.Sync)
}
