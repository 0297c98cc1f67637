package middleware

import (
	"net"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/appserv/pkg/apperr"
	"github.com/oksasatya/appserv/pkg/response"
)

// AllowPrivateIP reports whether the client is on loopback or a private network.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		parsed := net.ParseIP(ipFromCtx(c))
		if parsed == nil {
			return false
		}
		return parsed.IsLoopback() || parsed.IsPrivate()
	}
}

// Only aborts with UserNotLogin unless allow accepts the request.
func Only(allow AllowFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !allow(c) {
			response.Abort(c, apperr.ErrUserNotLogin)
			return
		}
		c.Next()
	}
}
