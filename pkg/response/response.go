package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/appserv/pkg/apperr"
)

// CodeKey holds the business error code of the response in the gin context.
const CodeKey = "error_code"

// APIResponse is the envelope of every answer. Failures are signalled by Error,
// never by the HTTP status, which is always 200.
type APIResponse[T any] struct {
	Error     int               `json:"error"`
	Message   string            `json:"message"`
	RequestID string            `json:"request_id,omitempty"`
	Timestamp int64             `json:"timestamp"`
	Data      T                 `json:"data,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

func Success[T any](c *gin.Context, data T) APIResponse[T] {
	c.Set(CodeKey, apperr.KindSuccess.Code())
	return APIResponse[T]{
		Error:     apperr.KindSuccess.Code(),
		Message:   apperr.KindSuccess.String(),
		RequestID: c.GetString("request_id"),
		Timestamp: time.Now().Unix(),
		Data:      data,
	}
}

// Failure renders err. The error is attached to the context so the request logger sees the cause.
func Failure(c *gin.Context, err error, details map[string]string) APIResponse[any] {
	kind := apperr.KindOf(err)
	c.Set(CodeKey, kind.Code())
	_ = c.Error(err)
	return APIResponse[any]{
		Error:     kind.Code(),
		Message:   apperr.PublicMessage(err),
		RequestID: c.GetString("request_id"),
		Timestamp: time.Now().Unix(),
		Details:   details,
	}
}

func OK[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, Success(c, data))
}

func Fail(c *gin.Context, err error) {
	c.JSON(http.StatusOK, Failure(c, err, nil))
}

func FailDetails(c *gin.Context, err error, details map[string]string) {
	c.JSON(http.StatusOK, Failure(c, err, details))
}

// Abort renders err and stops the handler chain.
func Abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusOK, Failure(c, err, nil))
}
