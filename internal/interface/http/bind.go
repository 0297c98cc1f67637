package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/appserv/pkg/apperr"
	"github.com/oksasatya/appserv/pkg/response"
	"github.com/oksasatya/appserv/pkg/validation"
)

// bind decodes the body (JSON or form, by content type) into req.
// On failure it answers Parse with per-field details and returns false.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBind(req); err != nil {
		response.FailDetails(c, apperr.Parse(validation.Message(err)), validation.ToDetails(err))
		return false
	}
	return true
}

// reply answers data, or err when set.
func reply[T any](c *gin.Context, data T, err error) {
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, data)
}
