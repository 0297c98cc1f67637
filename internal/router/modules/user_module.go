package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/appserv/internal/interface/http"
	"github.com/oksasatya/appserv/internal/interface/middleware"
)

// UserModule wires account routes.
// Public: signup, signin, reset-passwd, is-signin, products, avatar/:name
// Protected: signout, info, products of the caller, modify, upload, open-product
type UserModule struct {
	Handler  *handlers.AccountHandler
	Resolver middleware.Resolver
	RDB      *redis.Client
	Limit    int
}

func NewUserModule(h *handlers.AccountHandler, resolver middleware.Resolver, rdb *redis.Client, limit int) *UserModule {
	return &UserModule{Handler: h, Resolver: resolver, RDB: rdb, Limit: limit}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	credLimiter := middleware.RateLimit(m.RDB, m.Limit, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.GET("/products", m.Handler.Products)
	rg.GET("/avatar/:name", m.Handler.Avatar)

	user := rg.Group("/user")
	user.POST("/signup", credLimiter, m.Handler.Signup)
	user.POST("/signin", credLimiter, m.Handler.Signin)
	user.POST("/reset-passwd", credLimiter, m.Handler.ResetPassword)
	user.GET("/is-signin", m.Handler.IsSignin(m.Resolver))

	auth := user.Group("", middleware.Auth(m.Resolver))
	auth.Use(middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("/signout", m.Handler.Signout)
		auth.GET("/info", m.Handler.Info)
		auth.GET("/products", m.Handler.UserProducts)
		auth.POST("/modify", m.Handler.Modify)
		auth.POST("/upload", m.Handler.Upload)
		auth.POST("/open-product", m.Handler.OpenProduct)
	}
}
