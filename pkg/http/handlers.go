package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"

	"liyu1981.xyz/alerta-mesh/pkg/apperr"
	"liyu1981.xyz/alerta-mesh/pkg/models"
	"liyu1981.xyz/alerta-mesh/pkg/registry"
	"liyu1981.xyz/alerta-mesh/pkg/relay"
)

var priorityValues = []string{
	string(models.PriorityBaja),
	string(models.PriorityMedia),
	string(models.PriorityAlta),
}

func (rs *RestfulServer) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (rs *RestfulServer) ListAlerts(c *gin.Context) {
	records, err := rs.Alerta.History.ListAlerts()
	if err != nil {
		rs.respondError(c, err)
		return
	}
	if records == nil {
		records = []models.AlertRecord{}
	}
	c.JSON(http.StatusOK, records)
}

func (rs *RestfulServer) DeleteAllAlerts(c *gin.Context) {
	if err := rs.Alerta.History.DeleteAllAlerts(); err != nil {
		rs.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (rs *RestfulServer) DeleteAlert(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		rs.respondError(c, apperr.Validation("Identificador de alerta inválido."))
		return
	}
	if err := rs.Alerta.History.DeleteAlert(uint(id)); err != nil {
		rs.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SendRequest triggers the button called Name. Message falls back to the
// button's default text, Priority to the button's priority.
type SendRequest struct {
	Name     string `json:"name"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
}

var sendRequestSchema = z.Struct(z.Shape{
	"name":     z.String().Min(1).Required(),
	"message":  z.String(),
	"priority": z.String().OneOf(priorityValues),
})

func (rs *RestfulServer) SendAlert(c *gin.Context) {
	if !rs.CheckClientLimiter(c.ClientIP()) {
		c.Status(http.StatusTooManyRequests)
		return
	}

	var req SendRequest
	if errs := sendRequestSchema.Parse(zhttp.Request(c.Request), &req); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs})
		return
	}

	button, err := rs.Alerta.Button.FindButton(req.Name)
	if err != nil {
		rs.respondError(c, err)
		return
	}

	message := req.Message
	if message == "" {
		message = button.DefaultMessage()
	}
	priority := button.Priority
	if req.Priority != "" {
		priority = models.Priority(req.Priority)
	}

	report, err := rs.Session.Relay().SendAlert(c.Request.Context(), relay.AlertRequest{
		Type:     button.Name,
		Message:  message,
		Priority: priority,
	})
	if err != nil {
		rs.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (rs *RestfulServer) ListButtons(c *gin.Context) {
	buttons, err := rs.Alerta.Button.ListButtonDefinitions()
	if err != nil {
		rs.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, buttons)
}

type ButtonRequest struct {
	Name     string `json:"name"`
	Priority string `json:"priority"`
}

var buttonRequestSchema = z.Struct(z.Shape{
	"name":     z.String().Required(),
	"priority": z.String().OneOf(priorityValues).Required(),
})

func (rs *RestfulServer) CreateButton(c *gin.Context) {
	var req ButtonRequest
	if errs := buttonRequestSchema.Parse(zhttp.Request(c.Request), &req); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs})
		return
	}

	button, err := rs.Alerta.Button.InsertButtonDefinition(req.Name, models.Priority(req.Priority))
	if err != nil {
		rs.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, button)
}

func (rs *RestfulServer) ListSettings(c *gin.Context) {
	settings, err := rs.Alerta.Setting.ListSettings()
	if err != nil {
		rs.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

type SettingRequest struct {
	Value *bool `json:"value"`
}

var settingRequestSchema = z.Struct(z.Shape{
	"value": z.Ptr(z.Bool()).NotNil(),
})

func (rs *RestfulServer) UpdateSetting(c *gin.Context) {
	var req SettingRequest
	if errs := settingRequestSchema.Parse(zhttp.Request(c.Request), &req); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs})
		return
	}

	if err := rs.Alerta.Setting.SetSetting(models.SettingKey(c.Param("key")), *req.Value); err != nil {
		rs.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ResetSettings puts every flag back to its default. History and buttons
// are left alone.
func (rs *RestfulServer) ResetSettings(c *gin.Context) {
	if err := rs.Alerta.Setting.ResetSettings(); err != nil {
		rs.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (rs *RestfulServer) GetPeers(c *gin.Context) {
	c.JSON(http.StatusOK, rs.Session.Status())
}

func (rs *RestfulServer) ConnectController(c *gin.Context) {
	if err := rs.Session.ConnectController(c.Request.Context()); err != nil {
		rs.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rs.Session.Status())
}

func (rs *RestfulServer) ConnectCompanion(c *gin.Context) {
	if err := rs.Session.ConnectCompanion(c.Request.Context()); err != nil {
		rs.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rs.Session.Status())
}

// ListenCompanion starts waiting for the companion in the background and
// answers right away. The outcome reaches the UI through the websocket feed.
func (rs *RestfulServer) ListenCompanion(c *gin.Context) {
	switch rs.Session.Status().CompanionState {
	case "listening":
		rs.respondError(c, apperr.AlreadyListening())
		return
	case "connecting":
		rs.respondError(c, apperr.AlreadyConnecting(string(registry.RoleCompanionPhone)))
		return
	case "connected":
		rs.respondError(c, apperr.AlreadyConnected(string(registry.RoleCompanionPhone)))
		return
	}

	go func() {
		dev, err := rs.Session.ListenCompanion(context.Background())
		if err != nil {
			rs.logger().Info("Listen ended", zap.Error(err))
			return
		}
		rs.logger().Info("Listen accepted", zap.String("address", dev.Address))
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "listening"})
}

func (rs *RestfulServer) CancelListen(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cancelled": rs.Session.CancelListen()})
}

func (rs *RestfulServer) DisconnectPeer(c *gin.Context) {
	if err := rs.Session.Disconnect(registry.Role(c.Param("role"))); err != nil {
		rs.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type LimiterRequest struct {
	Rate  float64 `json:"rate"`
	Burst int     `json:"burst"`
}

var limiterRequestSchema = z.Struct(z.Shape{
	"rate":  z.Float64().Required(),
	"burst": z.Int().Required(),
})

func (rs *RestfulServer) PostLimiter(c *gin.Context) {
	clientID := c.Param("client_id")

	var req LimiterRequest
	if errs := limiterRequestSchema.Parse(zhttp.Request(c.Request), &req); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs})
		return
	}

	rs.SetLimiter(clientID, req.Rate, req.Burst)

	c.Status(http.StatusOK)
}
