package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/appserv/internal/domain/entity"
	"github.com/oksasatya/appserv/pkg/apperr"
)

func init() { gin.SetMode(gin.TestMode) }

type resolverFunc func(ctx context.Context, token string) (*entity.AuthContext, error)

func (f resolverFunc) Resolve(ctx context.Context, token string) (*entity.AuthContext, error) {
	return f(ctx, token)
}

type envelope struct {
	Error     int    `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"Bearer":       "",
		"":             "",
	}
	for header, want := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set("Authorization", header)
		assert.Equal(t, want, BearerToken(c), header)
	}
}

func TestAuth(t *testing.T) {
	resolver := resolverFunc(func(_ context.Context, token string) (*entity.AuthContext, error) {
		switch token {
		case "":
			return nil, apperr.ErrUserNotLogin
		case "good":
			return &entity.AuthContext{User: entity.User{ID: 7}, Token: token}, nil
		case "aging":
			return &entity.AuthContext{User: entity.User{ID: 7}, Token: token, NewToken: "fresh", NewExpire: 42}, nil
		}
		return nil, apperr.ErrTokenInvalid
	})

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/me", Auth(resolver), func(c *gin.Context) {
		auth, err := AuthFrom(c)
		require.NoError(t, err)
		c.JSON(http.StatusOK, gin.H{"error": 0, "uid": auth.User.ID, "key": c.GetString(CtxUserIDKey)})
	})

	do := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("missing", func(t *testing.T) {
		w := do("")
		assert.Equal(t, http.StatusOK, w.Code)
		env := decode(t, w)
		assert.Equal(t, apperr.KindUserNotLogin.Code(), env.Error)
		assert.NotEmpty(t, env.RequestID)
	})

	t.Run("invalid", func(t *testing.T) {
		assert.Equal(t, apperr.KindTokenInvalid.Code(), decode(t, do("bad")).Error)
	})

	t.Run("authorized", func(t *testing.T) {
		w := do("good")
		assert.JSONEq(t, `{"error":0,"uid":7,"key":"7"}`, w.Body.String())
		assert.Empty(t, w.Header().Get(HeaderNewToken))
	})

	t.Run("replacement token in headers", func(t *testing.T) {
		w := do("aging")
		assert.Equal(t, "fresh", w.Header().Get(HeaderNewToken))
		assert.Equal(t, "42", w.Header().Get(HeaderNewExpire))
	})
}

func TestAuthFromWithoutAuth(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, err := AuthFrom(c)
	assert.ErrorIs(t, err, apperr.ErrUserNotLogin)
}

func TestRequestIDKeepsValidHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	const id = "0b6f7c1e-8a33-4b8e-9d3a-0c0d2b4e6f11"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, id)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, id, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "<script>")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "<script>", w.Body.String())
	assert.Len(t, w.Body.String(), 36)
}

func TestRealIP(t *testing.T) {
	handler := func(trust bool) *gin.Engine {
		r := gin.New()
		r.Use(RealIP(trust))
		r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("real_ip")) })
		return r
	}
	req := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
		return req
	}

	w := httptest.NewRecorder()
	handler(true).ServeHTTP(w, req())
	assert.Equal(t, "203.0.113.5", w.Body.String())

	w = httptest.NewRecorder()
	r := gin.New()
	require.NoError(t, r.SetTrustedProxies(nil))
	r.Use(RealIP(false))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("real_ip")) })
	r.ServeHTTP(w, req())
	assert.Equal(t, "10.0.0.9", w.Body.String())
}

func TestOnlyPrivate(t *testing.T) {
	r := gin.New()
	require.NoError(t, r.SetTrustedProxies(nil))
	r.Use(RealIP(false))
	r.GET("/", Only(AllowPrivateIP()), func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"error": 0}) })

	for addr, code := range map[string]int{
		"127.0.0.1:1":   0,
		"192.168.1.4:1": 0,
		"8.8.8.8:1":     apperr.KindUserNotLogin.Code(),
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, code, decode(t, w).Error, addr)
	}
}

func TestRateLimitWithoutRedisIsOpen(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimit(nil, 1, 0, KeyByIP(), nil), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}
