package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/appserv/internal/application"
	"github.com/oksasatya/appserv/internal/domain/entity"
	"github.com/oksasatya/appserv/internal/domain/repository"
	"github.com/oksasatya/appserv/internal/infrastructure/storage"
	"github.com/oksasatya/appserv/internal/infrastructure/verification"
	"github.com/oksasatya/appserv/internal/interface/middleware"
	"github.com/oksasatya/appserv/pkg/apperr"
	"github.com/oksasatya/appserv/pkg/helpers"
	"github.com/oksasatya/appserv/pkg/mailer"
	mailtpl "github.com/oksasatya/appserv/pkg/mailer/templates"
	"github.com/oksasatya/appserv/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

// fakeRepo overrides what the tests touch; anything else panics on the nil embedded interface.
type fakeRepo struct {
	repository.Repository

	mu       sync.Mutex
	signin   repository.SigninParams
	recently map[int64][]entity.Recently
	avatar   string
	group    entity.FavGroup
}

func (f *fakeRepo) SigninUser(_ context.Context, p repository.SigninParams) (*entity.SigninResult, error) {
	f.mu.Lock()
	f.signin = p
	f.mu.Unlock()
	if p.PasswdHash != helpers.HashPassword(p.Email, "secret1") {
		return nil, apperr.ErrUserPasswdError
	}
	return &entity.SigninResult{
		User:       entity.User{ID: 1, UserName: "bob", Email: p.Email},
		Product:    entity.Product{ID: 2, Code: p.ProductCode},
		Membership: entity.Membership{Avatar: "a.png"},
		Session:    entity.Session{Token: "tok", Expire: 99},
	}, nil
}

func (f *fakeRepo) Products(context.Context) ([]entity.Product, error) {
	return []entity.Product{{ID: 2, Code: "radio"}}, nil
}

func (f *fakeRepo) UpdateUserInfo(_ context.Context, p repository.UserInfoParams) error {
	if p.Avatar != nil {
		f.mu.Lock()
		f.avatar = *p.Avatar
		f.mu.Unlock()
	}
	return nil
}

func (f *fakeRepo) NewRecently(_ context.Context, uid int64, items []entity.Recently) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recently[uid] = append(f.recently[uid], items...)
	return len(items), nil
}

func (f *fakeRepo) ModifyGroup(_ context.Context, _ int64, _ string, g entity.FavGroup) error {
	f.mu.Lock()
	f.group = g
	f.mu.Unlock()
	return nil
}

func (f *fakeRepo) QuerySync(_ context.Context, uid, since int64) (*entity.SyncSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := &entity.SyncSet{Groups: []entity.FavGroup{}, Recently: []entity.Recently{}, Favorites: []entity.StationGroup{}}
	for _, r := range f.recently[uid] {
		if r.StartTime > since {
			set.Recently = append(set.Recently, r)
		}
	}
	return set, nil
}

type nopMailer struct{}

func (nopMailer) Dispatch(mailer.EmailJob) {}

type staticResolver struct{}

func (staticResolver) Resolve(_ context.Context, token string) (*entity.AuthContext, error) {
	if token == "" {
		return nil, apperr.ErrUserNotLogin
	}
	if token != "tok" {
		return nil, apperr.ErrTokenInvalid
	}
	return &entity.AuthContext{
		User:    entity.User{ID: 1, UserName: "bob", Email: "bob@example.com"},
		Product: entity.Product{ID: 2, Code: "radio"},
		Token:   token,
		Expire:  99,
	}, nil
}

type fixture struct {
	engine *gin.Engine
	store  *verification.MemoryStore
	repo   *fakeRepo
	avatar *storage.LocalStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := verification.NewMemoryStore()
	verify := application.NewVerificationService(store, nopMailer{}, mailtpl.Brand{AppName: "Radio"}, application.VerifyConfig{
		CaptchaTTL:     5 * time.Minute,
		CodeTTL:        5 * time.Minute,
		ResendInterval: time.Minute,
	})
	repo := &fakeRepo{recently: map[int64][]entity.Recently{}}
	avatars, err := storage.NewLocalStore(filepath.Join(t.TempDir(), "avatar"))
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()

	accounts := &application.AccountService{Repo: repo, Verify: verify, Avatars: avatars, Mail: nopMailer{}, Logger: logger}
	cookies := helpers.NewCookie("", false)
	common := NewCommonHandler(verify, cookies)
	account := NewAccountHandler(accounts, cookies)
	prefs := NewPreferenceHandler(&application.PreferenceService{Repo: repo})

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	api := r.Group("/api")
	api.GET("/common/captcha", common.Captcha)
	api.POST("/common/email-code", common.EmailCode)
	api.POST("/user/signin", account.Signin)
	api.POST("/user/signup", account.Signup)
	api.GET("/user/is-signin", account.IsSignin(staticResolver{}))
	api.GET("/products", account.Products)
	api.GET("/avatar/:name", account.Avatar)
	authed := api.Group("/", middleware.Auth(staticResolver{}))
	authed.GET("/user/info", account.Info)
	authed.POST("/user/upload", account.Upload)
	authed.POST("/radio/recently/new", prefs.NewRecently)
	authed.POST("/radio/group/modify", prefs.ModifyGroup)
	authed.POST("/radio/sync", prefs.Sync)

	return &fixture{engine: r, store: store, repo: repo, avatar: avatars}
}

type envelope struct {
	Error   int               `json:"error"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Details map[string]string `json:"details"`
}

func (f *fixture) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func authorized(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer tok")
	return req
}

// captcha starts a verification session and returns its cookie and answer.
func (f *fixture) captcha(t *testing.T) (*http.Cookie, string) {
	t.Helper()
	w, env := f.do(t, httptest.NewRequest(http.MethodGet, "/api/common/captcha", nil))
	require.Equal(t, 0, env.Error)
	assert.Contains(t, string(env.Data), "data:image/png;base64,")

	var session *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == helpers.VerifyCookieName {
			session = ck
		}
	}
	require.NotNil(t, session)
	answer, ok, err := f.store.Get(context.Background(), "verify:"+session.Value+":captcha")
	require.NoError(t, err)
	require.True(t, ok)
	return session, answer
}

func TestSigninFlow(t *testing.T) {
	f := newFixture(t)
	session, answer := f.captcha(t)

	body := `{"email":"Bob@Example.com","passwd":"secret1","captcha":"` + answer + `","product":"radio","auto_open":true}`
	req := jsonRequest(http.MethodPost, "/api/user/signin", body)
	req.AddCookie(session)
	_, env := f.do(t, req)
	require.Equal(t, 0, env.Error, env.Message)

	var v userView
	require.NoError(t, json.Unmarshal(env.Data, &v))
	assert.Equal(t, "tok", v.Token)
	assert.Equal(t, "radio", v.Product)
	assert.Equal(t, "a.png", v.Avatar)
	assert.Equal(t, "bob@example.com", f.repo.signin.Email)
	assert.True(t, f.repo.signin.AutoOpen)

	// the captcha is single use
	req = jsonRequest(http.MethodPost, "/api/user/signin", body)
	req.AddCookie(session)
	_, env = f.do(t, req)
	assert.Equal(t, apperr.KindCaptcha.Code(), env.Error)
}

func TestSigninWrongCaptcha(t *testing.T) {
	f := newFixture(t)
	session, _ := f.captcha(t)

	req := jsonRequest(http.MethodPost, "/api/user/signin", `{"email":"bob@example.com","passwd":"secret1","captcha":"nope","product":"radio"}`)
	req.AddCookie(session)
	_, env := f.do(t, req)
	assert.Equal(t, apperr.KindCaptcha.Code(), env.Error)
}

func TestSigninAcceptsForm(t *testing.T) {
	f := newFixture(t)
	session, answer := f.captcha(t)

	form := "email=bob%40example.com&passwd=wrong1&captcha=" + answer + "&product=radio"
	req := httptest.NewRequest(http.MethodPost, "/api/user/signin", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(session)
	_, env := f.do(t, req)
	assert.Equal(t, apperr.KindUserPasswdError.Code(), env.Error)
}

func TestSignupBindFailure(t *testing.T) {
	f := newFixture(t)
	_, env := f.do(t, jsonRequest(http.MethodPost, "/api/user/signup", `{"email":"bob@example.com"}`))
	assert.Equal(t, apperr.KindParse.Code(), env.Error)
	assert.Equal(t, "is required", env.Details["passwd"])
	assert.Equal(t, "is required", env.Details["product"])

	_, env = f.do(t, jsonRequest(http.MethodPost, "/api/user/signup", `{`))
	assert.Equal(t, apperr.KindParse.Code(), env.Error)
}

func TestEmailCodeFrequent(t *testing.T) {
	f := newFixture(t)
	session, answer := f.captcha(t)
	body := `{"email":"bob@example.com","captcha":"` + answer + `"}`

	req := jsonRequest(http.MethodPost, "/api/common/email-code", body)
	req.AddCookie(session)
	_, env := f.do(t, req)
	require.Equal(t, 0, env.Error, env.Message)

	req = jsonRequest(http.MethodPost, "/api/common/email-code", body)
	req.AddCookie(session)
	_, env = f.do(t, req)
	assert.Equal(t, apperr.KindFrequent.Code(), env.Error)
}

func TestIsSignin(t *testing.T) {
	f := newFixture(t)

	_, env := f.do(t, httptest.NewRequest(http.MethodGet, "/api/user/is-signin", nil))
	require.Equal(t, 0, env.Error)
	assert.JSONEq(t, `{"signin":false}`, string(env.Data))

	_, env = f.do(t, authorized(httptest.NewRequest(http.MethodGet, "/api/user/is-signin", nil)))
	assert.JSONEq(t, `{"signin":true,"expire":99}`, string(env.Data))
}

func TestInfoNeedsToken(t *testing.T) {
	f := newFixture(t)

	_, env := f.do(t, httptest.NewRequest(http.MethodGet, "/api/user/info", nil))
	assert.Equal(t, apperr.KindUserNotLogin.Code(), env.Error)

	_, env = f.do(t, authorized(httptest.NewRequest(http.MethodGet, "/api/user/info", nil)))
	require.Equal(t, 0, env.Error)
	var v userView
	require.NoError(t, json.Unmarshal(env.Data, &v))
	assert.Equal(t, int64(1), v.ID)
	assert.Empty(t, v.Token)
}

func TestProducts(t *testing.T) {
	f := newFixture(t)
	_, env := f.do(t, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	require.Equal(t, 0, env.Error)
	assert.Contains(t, string(env.Data), `"product":"radio"`)
}

func TestRecentlyThenSync(t *testing.T) {
	f := newFixture(t)

	_, env := f.do(t, authorized(jsonRequest(http.MethodPost, "/api/radio/sync", `{"since":0}`)))
	require.Equal(t, 0, env.Error)
	assert.JSONEq(t, `{"groups":[],"recently":[],"favorites":[]}`, string(env.Data))

	_, env = f.do(t, authorized(jsonRequest(http.MethodPost, "/api/radio/recently/new",
		`{"recently":[{"stationuuid":"s1","start_time":1000}]}`)))
	require.Equal(t, 0, env.Error, env.Message)
	assert.JSONEq(t, `{"inserted":1}`, string(env.Data))

	_, env = f.do(t, authorized(httptest.NewRequest(http.MethodPost, "/api/radio/sync?since=0", nil)))
	require.Equal(t, 0, env.Error)
	var set entity.SyncSet
	require.NoError(t, json.Unmarshal(env.Data, &set))
	require.Len(t, set.Recently, 1)
	assert.Equal(t, "s1", set.Recently[0].StationUUID)

	_, env = f.do(t, authorized(jsonRequest(http.MethodPost, "/api/radio/sync", `{"since":1000}`)))
	require.NoError(t, json.Unmarshal(env.Data, &set))
	assert.Empty(t, set.Recently)
}

func TestModifyGroupIgnoresDefaultFlag(t *testing.T) {
	f := newFixture(t)
	_, env := f.do(t, authorized(jsonRequest(http.MethodPost, "/api/radio/group/modify",
		`{"old_name":"jazz","name":"bebop","desc":"late","is_def":true}`)))
	require.Equal(t, 0, env.Error, env.Message)

	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	assert.Equal(t, entity.FavGroup{Name: "bebop", Desc: "late"}, f.repo.group)
}

func TestNewRecentlyValidatesItems(t *testing.T) {
	f := newFixture(t)
	_, env := f.do(t, authorized(jsonRequest(http.MethodPost, "/api/radio/recently/new", `{"recently":[{"start_time":1}]}`)))
	assert.Equal(t, apperr.KindParse.Code(), env.Error)
}

func TestUploadAndServeAvatar(t *testing.T) {
	f := newFixture(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "me.PNG")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/user/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	_, env := f.do(t, authorized(req))
	require.Equal(t, 0, env.Error, env.Message)

	var got avatarResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.True(t, strings.HasSuffix(got.Avatar, ".png"))
	assert.Equal(t, got.Avatar, f.repo.avatar)

	w, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/api/avatar/"+got.Avatar, nil))
	assert.Equal(t, "png-bytes", w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	_, env = f.do(t, httptest.NewRequest(http.MethodGet, "/api/avatar/missing.png", nil))
	assert.Equal(t, apperr.KindParse.Code(), env.Error)
}

func TestUploadWithoutFile(t *testing.T) {
	f := newFixture(t)
	_, env := f.do(t, authorized(jsonRequest(http.MethodPost, "/api/user/upload", `{}`)))
	assert.Equal(t, apperr.KindParse.Code(), env.Error)
}
