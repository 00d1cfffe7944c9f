package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsPath    = "/metrics"
	unmatchedRoute = "unmatched"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratingsite",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route template and status code",
		},
		[]string{"service", "method", "route", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ratingsite",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route template",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"service", "method", "route"},
	)

	requestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ratingsite",
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests being served, websocket sessions included",
		},
		[]string{"service"},
	)

	friendOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratingsite",
			Name:      "friend_operations_total",
			Help:      "Friend list operations by outcome",
		},
		[]string{"service", "operation", "status"},
	)
)

// PrometheusMiddleware метит запросы шаблоном маршрута (users/:user_nickname/),
// а не сырым путем, чтобы никнеймы не плодили серии. Сбор /metrics не считается.
func PrometheusMiddleware(serviceName string) gin.HandlerFunc {
	inFlight := requestsInFlight.WithLabelValues(serviceName)

	return func(c *gin.Context) {
		if c.Request.URL.Path == MetricsPath {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}

		inFlight.Inc()
		start := time.Now()
		c.Next()
		inFlight.Dec()

		method := c.Request.Method
		requestsTotal.WithLabelValues(serviceName, method, route, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(serviceName, method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordFriendOperation считает операции с друзьями (add, list) по исходу
func RecordFriendOperation(operation, serviceName string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	friendOperationsTotal.WithLabelValues(serviceName, operation, status).Inc()
}
