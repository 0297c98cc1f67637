package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/appserv/internal/application"
	"github.com/oksasatya/appserv/pkg/helpers"
	"github.com/oksasatya/appserv/pkg/response"
)

// CommonHandler serves the pre-auth challenges.
type CommonHandler struct {
	Verify  *application.VerificationService
	Cookies *helpers.Manager
}

func NewCommonHandler(verify *application.VerificationService, cookies *helpers.Manager) *CommonHandler {
	return &CommonHandler{Verify: verify, Cookies: cookies}
}

type captchaResponse struct {
	Image string `json:"image"`
}

// Captcha GET /api/common/captcha
// Starts a verification session when the client has none.
func (h *CommonHandler) Captcha(c *gin.Context) {
	sid := h.Cookies.VerifySession(c)
	if sid == "" {
		sid = h.Verify.NewSessionID()
	}
	png, err := h.Verify.Captcha(c.Request.Context(), sid)
	if err != nil {
		response.Fail(c, err)
		return
	}
	h.Cookies.SetVerifySession(c, sid, h.Verify.Cfg.CodeTTL+h.Verify.Cfg.CaptchaTTL)
	response.OK(c, captchaResponse{Image: "data:image/png;base64," + png})
}

type emailCodeRequest struct {
	Email   string `json:"email" form:"email" binding:"required"`
	Captcha string `json:"captcha" form:"captcha" binding:"required"`
}

// EmailCode POST /api/common/email-code
func (h *CommonHandler) EmailCode(c *gin.Context) {
	var req emailCodeRequest
	if !bind(c, &req) {
		return
	}
	err := h.Verify.SendEmailCode(c.Request.Context(), h.Cookies.VerifySession(c), req.Email, req.Captcha)
	reply[any](c, nil, err)
}
