package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/appserv/internal/metrics"
	"github.com/oksasatya/appserv/pkg/apperr"
	"github.com/oksasatya/appserv/pkg/response"
)

// RequestLogger logs infrastructure failures attached by the handlers.
// With verbose set every request is logged at info level as well.
func RequestLogger(logger *logrus.Logger, verbose bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"ip":         ipFromCtx(c),
			"code":       c.GetInt(response.CodeKey),
			"latency_ms": time.Since(start).Milliseconds(),
		})
		for _, e := range c.Errors {
			switch apperr.KindOf(e.Err) {
			case apperr.KindDatabase, apperr.KindInternal, apperr.KindSendEmail:
				entry.WithError(e.Err).Error("request failed")
			}
		}
		if verbose {
			entry.Info("request")
		}
	}
}

// Metrics records every request by route template and business code.
func Metrics(m *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.RecordRequest(c.Request.Method, normalizePath(c), c.GetInt(response.CodeKey), time.Since(start))
	}
}
