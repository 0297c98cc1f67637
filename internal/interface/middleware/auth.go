package middleware

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/appserv/internal/domain/entity"
	"github.com/oksasatya/appserv/pkg/apperr"
	"github.com/oksasatya/appserv/pkg/response"
)

// CtxAuthKey holds the *entity.AuthContext of an authorized request.
const CtxAuthKey = "auth"

const (
	HeaderNewToken  = "X-New-Token"
	HeaderNewExpire = "X-New-Expire"
)

type Resolver interface {
	Resolve(ctx context.Context, token string) (*entity.AuthContext, error)
}

// BearerToken returns the credential of "Authorization: Bearer <token>", or "".
func BearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Auth resolves the bearer token and stores the caller under CtxAuthKey.
// A replacement token issued inside the refresh window is sent back in headers.
func Auth(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth, err := resolver.Resolve(c.Request.Context(), BearerToken(c))
		if err != nil {
			response.Abort(c, err)
			return
		}
		if auth.NewToken != "" {
			c.Header(HeaderNewToken, auth.NewToken)
			c.Header(HeaderNewExpire, strconv.FormatInt(auth.NewExpire, 10))
		}
		c.Set(CtxAuthKey, auth)
		c.Set(CtxUserIDKey, strconv.FormatInt(auth.User.ID, 10))
		c.Next()
	}
}

// AuthFrom returns the caller set by Auth. Handlers behind Auth can rely on it.
func AuthFrom(c *gin.Context) (*entity.AuthContext, error) {
	v, ok := c.Get(CtxAuthKey)
	if !ok {
		return nil, apperr.ErrUserNotLogin
	}
	auth, ok := v.(*entity.AuthContext)
	if !ok || auth == nil {
		return nil, apperr.ErrUserNotLogin
	}
	return auth, nil
}
