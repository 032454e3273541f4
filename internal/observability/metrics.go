package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total number of HTTP requests processed by the chat backend.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chat_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"kind", "event"},
	)
	widgetRendersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_widget_renders_total",
			Help: "Total number of messages rendered into the view window.",
		},
		[]string{"mode"},
	)
	widgetEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_widget_evictions_total",
			Help: "Total number of view nodes evicted by the window cap.",
		},
	)
	widgetReconcileEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_widget_reconcile_events_total",
			Help: "Total number of push events applied by the reconciler.",
		},
		[]string{"event"},
	)
	widgetForwardOpensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_widget_forward_opens_total",
			Help: "Total number of forward dropdown opens by trigger.",
		},
		[]string{"trigger"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		widgetRendersTotal,
		widgetEvictionsTotal,
		widgetReconcileEventsTotal,
		widgetForwardOpensTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

// IncWidgetRender counts a rendered message; mode is "single" or "batch".
func IncWidgetRender(mode string) {
	widgetRendersTotal.WithLabelValues(mode).Inc()
}

func AddWidgetEvictions(count int) {
	widgetEvictionsTotal.Add(float64(count))
}

func IncReconcileEvent(event string) {
	widgetReconcileEventsTotal.WithLabelValues(event).Inc()
}

// IncForwardOpen counts a dropdown open; trigger is "hover" or "click".
func IncForwardOpen(trigger string) {
	widgetForwardOpensTotal.WithLabelValues(trigger).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
