// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records service metrics. All methods are safe on a nil *Collector.
type Collector struct {
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	signins       *prometheus.CounterVec
	signups       prometheus.Counter
	bulkRows      *prometheus.CounterVec
	sweptSessions prometheus.Counter
	sweptVerify   prometheus.Counter
	purgedAvatars prometheus.Counter
}

// NewCollector registers every metric on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appserv_http_requests_total",
			Help: "HTTP requests by route and response error code.",
		}, []string{"method", "route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "appserv_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		signins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appserv_signin_total",
			Help: "Sign-in attempts by result.",
		}, []string{"result"}),
		signups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appserv_signup_total",
			Help: "Accounts created.",
		}),
		bulkRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appserv_bulk_rows_inserted_total",
			Help: "Preference rows inserted by bulk operations.",
		}, []string{"kind"}),
		sweptSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appserv_expired_sessions_deleted_total",
			Help: "Expired sessions removed by the sweeper.",
		}),
		sweptVerify: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appserv_verification_entries_swept_total",
			Help: "Expired in-memory verification entries removed.",
		}),
		purgedAvatars: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appserv_orphan_avatars_deleted_total",
			Help: "Avatar files deleted because no membership references them.",
		}),
	}
	reg.MustRegister(
		c.requests,
		c.latency,
		c.signins,
		c.signups,
		c.bulkRows,
		c.sweptSessions,
		c.sweptVerify,
		c.purgedAvatars,
	)
	return c
}

func (c *Collector) RecordRequest(method, route string, code int, d time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) RecordSignin(ok bool) {
	if c == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "fail"
	}
	c.signins.WithLabelValues(result).Inc()
}

func (c *Collector) RecordSignup() {
	if c == nil {
		return
	}
	c.signups.Inc()
}

func (c *Collector) RecordBulkRows(kind string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.bulkRows.WithLabelValues(kind).Add(float64(n))
}

func (c *Collector) RecordSessionsSwept(n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.sweptSessions.Add(float64(n))
}

func (c *Collector) RecordVerifySwept(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.sweptVerify.Add(float64(n))
}

func (c *Collector) RecordAvatarsPurged(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.purgedAvatars.Add(float64(n))
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
