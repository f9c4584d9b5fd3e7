package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"liyu1981.xyz/alerta-mesh/pkg/alerta"
	"liyu1981.xyz/alerta-mesh/pkg/apperr"
	"liyu1981.xyz/alerta-mesh/pkg/common"
	"liyu1981.xyz/alerta-mesh/pkg/metrics"
	"liyu1981.xyz/alerta-mesh/pkg/notify"
	"liyu1981.xyz/alerta-mesh/pkg/relay"
)

// RestfulServer is the local surface a UI drives: history, buttons,
// settings, peer links and the websocket notification feed.
type RestfulServer struct {
	Server           *gin.Engine
	Alerta           *alerta.Alerta
	Session          *relay.Session
	Hub              *notify.Hub
	RateLimiterStore *alerta.RateLimiterStore
}

func (rs *RestfulServer) logger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNameRestfulServer)
}

func (rs *RestfulServer) CheckClientLimiter(clientID string) bool {
	return rs.RateLimiterStore.Allow(clientID)
}

func (rs *RestfulServer) SetLimiter(clientID string, clientRate float64, clientBurst int) {
	if rs.RateLimiterStore == nil {
		return
	}
	rs.RateLimiterStore.SetLimiter(clientID, rate.Limit(clientRate), clientBurst)
}

// respondError answers with the status of err's kind and its notice.
func (rs *RestfulServer) respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= 500 {
		rs.logger().Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": apperr.From(err)})
}

func (rs *RestfulServer) Setup() {
	rs.Server.Use(metrics.Middleware())

	rs.Server.GET("/healthz", rs.HealthCheck)
	rs.Server.GET("/metrics", gin.WrapH(metrics.Handler()))
	if rs.Hub != nil {
		rs.Server.GET("/ws", gin.WrapF(rs.Hub.ServeWS))
	}

	alerts := rs.Server.Group("/alerts")
	{
		alerts.GET("", rs.ListAlerts)
		alerts.DELETE("", rs.DeleteAllAlerts)
		alerts.DELETE("/:id", rs.DeleteAlert)
		alerts.POST("/send", rs.SendAlert)
	}

	buttons := rs.Server.Group("/buttons")
	{
		buttons.GET("", rs.ListButtons)
		buttons.POST("", rs.CreateButton)
	}

	settings := rs.Server.Group("/settings")
	{
		settings.GET("", rs.ListSettings)
		settings.PUT("/:key", rs.UpdateSetting)
		settings.POST("/reset", rs.ResetSettings)
	}

	peers := rs.Server.Group("/peers")
	{
		peers.GET("", rs.GetPeers)
		peers.POST("/controller/connect", rs.ConnectController)
		peers.POST("/companion/connect", rs.ConnectCompanion)
		peers.POST("/companion/listen", rs.ListenCompanion)
		peers.DELETE("/companion/listen", rs.CancelListen)
		peers.POST("/:role/disconnect", rs.DisconnectPeer)
	}

	rs.Server.POST("/clients/:client_id/limiter", rs.PostLimiter)
}
