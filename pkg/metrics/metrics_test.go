package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestRecorders(t *testing.T) {
	RecordAlertSent("controller", "sent")
	RecordAlertReceived("ok")
	SetLinkState("companion", 3)
	SetHistoryRecords(7)
	RecordNotification("notice")

	body := scrape(t)
	assert.Contains(t, body, `alerta_mesh_relay_alerts_sent_total{result="sent",target="controller"}`)
	assert.Contains(t, body, `alerta_mesh_relay_alerts_received_total{result="ok"}`)
	assert.Contains(t, body, `alerta_mesh_link_state{role="companion"} 3`)
	assert.Contains(t, body, `alerta_mesh_relay_history_records 7`)
	assert.Contains(t, body, `alerta_mesh_notify_events_total{type="notice"}`)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Contains(t, scrape(t), `alerta_mesh_http_requests_total{method="GET",path="/healthz",status="200"}`)
}
