package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "alerta_mesh"

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// Relay metrics
	alertsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "alerts_sent_total",
			Help:      "Outbound alert deliveries by target and result",
		},
		[]string{"target", "result"},
	)

	alertsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "alerts_received_total",
			Help:      "Inbound companion payloads by result",
		},
		[]string{"result"},
	)

	historyRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "history_records",
			Help:      "Records stored by the last history replacement",
		},
	)

	// Link metrics
	linkState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "state",
			Help:      "Current link state per role (0 idle, 1 connecting, 2 listening, 3 connected, 4 disconnected)",
		},
		[]string{"role"},
	)

	// Notifier metrics
	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "events_total",
			Help:      "Events pushed to UI clients by type",
		},
		[]string{"type"},
	)

	websocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "websocket_clients",
			Help:      "Number of connected websocket clients",
		},
	)
)

// Middleware records request count and latency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordAlertSent(target, result string) {
	alertsSentTotal.WithLabelValues(target, result).Inc()
}

func RecordAlertReceived(result string) {
	alertsReceivedTotal.WithLabelValues(result).Inc()
}

func SetHistoryRecords(n int) {
	historyRecords.Set(float64(n))
}

func SetLinkState(role string, state int) {
	linkState.WithLabelValues(role).Set(float64(state))
}

func RecordNotification(eventType string) {
	notificationsTotal.WithLabelValues(eventType).Inc()
}

func WebsocketClientConnected() {
	websocketClients.Inc()
}

func WebsocketClientDisconnected() {
	websocketClients.Dec()
}
