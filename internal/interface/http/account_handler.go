package handlers

import (
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/appserv/internal/application"
	"github.com/oksasatya/appserv/internal/domain/entity"
	"github.com/oksasatya/appserv/internal/interface/middleware"
	"github.com/oksasatya/appserv/pkg/apperr"
	"github.com/oksasatya/appserv/pkg/helpers"
	"github.com/oksasatya/appserv/pkg/response"
)

// MaxAvatarSize bounds an uploaded avatar file.
const MaxAvatarSize = 2 << 20

type AccountHandler struct {
	Svc     *application.AccountService
	Cookies *helpers.Manager
}

func NewAccountHandler(svc *application.AccountService, cookies *helpers.Manager) *AccountHandler {
	return &AccountHandler{Svc: svc, Cookies: cookies}
}

// userView is the signed-in profile for one product.
type userView struct {
	ID       int64  `json:"id"`
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Product  string `json:"product"`
	Avatar   string `json:"avatar"`
	Token    string `json:"token,omitempty"`
	Expire   int64  `json:"expire,omitempty"`
}

func viewOf(u entity.User, p entity.Product, m entity.Membership) userView {
	return userView{ID: u.ID, UserName: u.UserName, Email: u.Email, Product: p.Code, Avatar: m.Avatar}
}

type signupRequest struct {
	UserName string `json:"user_name" form:"user_name"`
	Email    string `json:"email" form:"email" binding:"required"`
	Passwd   string `json:"passwd" form:"passwd" binding:"required"`
	Captcha  string `json:"captcha" form:"captcha" binding:"required"`
	Code     string `json:"code" form:"code" binding:"required"`
	Product  string `json:"product" form:"product" binding:"required"`
}

// Signup POST /api/user/signup
func (h *AccountHandler) Signup(c *gin.Context) {
	var req signupRequest
	if !bind(c, &req) {
		return
	}
	u, err := h.Svc.Signup(c.Request.Context(), h.Cookies.VerifySession(c), application.SignupInput{
		UserName: req.UserName,
		Email:    req.Email,
		Passwd:   req.Passwd,
		Captcha:  req.Captcha,
		Code:     req.Code,
		Product:  req.Product,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	h.Cookies.ClearVerifySession(c)
	response.OK(c, userView{ID: u.ID, UserName: u.UserName, Email: u.Email, Product: req.Product})
}

type signinRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Passwd   string `json:"passwd" form:"passwd" binding:"required"`
	Captcha  string `json:"captcha" form:"captcha" binding:"required"`
	Product  string `json:"product" form:"product" binding:"required"`
	AutoOpen bool   `json:"auto_open" form:"auto_open"`
}

// Signin POST /api/user/signin
func (h *AccountHandler) Signin(c *gin.Context) {
	var req signinRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.Svc.Signin(c.Request.Context(), h.Cookies.VerifySession(c), application.SigninInput{
		Email:    req.Email,
		Passwd:   req.Passwd,
		Captcha:  req.Captcha,
		Product:  req.Product,
		AutoOpen: req.AutoOpen,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	h.Cookies.ClearVerifySession(c)
	v := viewOf(res.User, res.Product, res.Membership)
	v.Token, v.Expire = res.Session.Token, res.Session.Expire
	response.OK(c, v)
}

// Signout POST /api/user/signout
func (h *AccountHandler) Signout(c *gin.Context) {
	auth, err := middleware.AuthFrom(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	reply[any](c, nil, h.Svc.Signout(c.Request.Context(), auth.Token))
}

type resetRequest struct {
	Email   string `json:"email" form:"email" binding:"required"`
	Passwd  string `json:"passwd" form:"passwd" binding:"required"`
	Captcha string `json:"captcha" form:"captcha" binding:"required"`
	Code    string `json:"code" form:"code" binding:"required"`
}

// ResetPassword POST /api/user/reset-passwd
func (h *AccountHandler) ResetPassword(c *gin.Context) {
	var req resetRequest
	if !bind(c, &req) {
		return
	}
	err := h.Svc.ResetPassword(c.Request.Context(), h.Cookies.VerifySession(c), application.ResetInput{
		Email:   req.Email,
		Passwd:  req.Passwd,
		Captcha: req.Captcha,
		Code:    req.Code,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	h.Cookies.ClearVerifySession(c)
	response.OK[any](c, nil)
}

// Info GET /api/user/info
func (h *AccountHandler) Info(c *gin.Context) {
	auth, err := middleware.AuthFrom(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	v := viewOf(auth.User, auth.Product, auth.Membership)
	v.Expire = auth.Expire
	response.OK(c, v)
}

type signinState struct {
	Signin bool  `json:"signin"`
	Expire int64 `json:"expire,omitempty"`
}

// IsSignin GET /api/user/is-signin
// Answers false instead of an error for anonymous or stale credentials.
func (h *AccountHandler) IsSignin(resolver middleware.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := middleware.BearerToken(c)
		if token == "" {
			response.OK(c, signinState{})
			return
		}
		auth, err := resolver.Resolve(c.Request.Context(), token)
		switch apperr.KindOf(err) {
		case apperr.KindSuccess:
			response.OK(c, signinState{Signin: true, Expire: auth.Expire})
		case apperr.KindUserNotLogin, apperr.KindTokenInvalid:
			response.OK(c, signinState{})
		default:
			response.Fail(c, err)
		}
	}
}

// Products GET /api/products
func (h *AccountHandler) Products(c *gin.Context) {
	products, err := h.Svc.Products(c.Request.Context())
	reply(c, products, err)
}

// UserProducts GET /api/user/products
func (h *AccountHandler) UserProducts(c *gin.Context) {
	auth, err := middleware.AuthFrom(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	products, err := h.Svc.UserProducts(c.Request.Context(), auth.User.ID)
	reply(c, products, err)
}

type modifyRequest struct {
	UserName  *string `json:"user_name" form:"user_name"`
	Passwd    *string `json:"passwd" form:"passwd"`
	NewPasswd *string `json:"new_passwd" form:"new_passwd"`
}

// Modify POST /api/user/modify
func (h *AccountHandler) Modify(c *gin.Context) {
	auth, err := middleware.AuthFrom(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	var req modifyRequest
	if !bind(c, &req) {
		return
	}
	if req.UserName == nil && req.NewPasswd == nil {
		response.Fail(c, apperr.Parse("user_name or new_passwd is required"))
		return
	}
	err = h.Svc.Modify(c.Request.Context(), auth, application.ModifyInput{
		UserName:  req.UserName,
		Passwd:    req.Passwd,
		NewPasswd: req.NewPasswd,
	})
	reply[any](c, nil, err)
}

type avatarResponse struct {
	Avatar string `json:"avatar"`
}

// Upload POST /api/user/upload (multipart, field "file")
func (h *AccountHandler) Upload(c *gin.Context) {
	auth, err := middleware.AuthFrom(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, apperr.Parse("file is required"))
		return
	}
	if fh.Size > MaxAvatarSize {
		response.Fail(c, apperr.Parse("file too large"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Fail(c, apperr.Internal(err))
		return
	}
	defer f.Close()

	name, err := h.Svc.UploadAvatar(c.Request.Context(), auth, fh.Filename, fh.Header.Get("Content-Type"), f)
	reply(c, avatarResponse{Avatar: name}, err)
}

type openProductRequest struct {
	Product string `json:"product" form:"product" binding:"required"`
}

// OpenProduct POST /api/user/open-product
func (h *AccountHandler) OpenProduct(c *gin.Context) {
	auth, err := middleware.AuthFrom(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	var req openProductRequest
	if !bind(c, &req) {
		return
	}
	m, err := h.Svc.OpenProduct(c.Request.Context(), auth.User.ID, req.Product)
	reply(c, m, err)
}

// Avatar GET /api/avatar/:name streams the stored file.
func (h *AccountHandler) Avatar(c *gin.Context) {
	name := c.Param("name")
	rc, err := h.Svc.Avatar(c.Request.Context(), name)
	if err != nil {
		response.Fail(c, err)
		return
	}
	defer rc.Close()

	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, -1, ct, rc, nil)
}
