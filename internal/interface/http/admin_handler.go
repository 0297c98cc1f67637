package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/appserv/internal/application"
	"github.com/oksasatya/appserv/pkg/apperr"
	"github.com/oksasatya/appserv/pkg/response"
)

type AdminHandler struct {
	Svc *application.AccountService
}

func NewAdminHandler(svc *application.AccountService) *AdminHandler {
	return &AdminHandler{Svc: svc}
}

// SearchUsers GET /api/admin/users/search?q=&size=
func (h *AdminHandler) SearchUsers(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Fail(c, apperr.Parse("q is required"))
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	docs, err := h.Svc.SearchUsers(c.Request.Context(), q, size)
	reply(c, docs, err)
}
