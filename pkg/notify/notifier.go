// Package notify pushes local notifications (received alerts and error
// notices) to UI clients over websocket.
package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"liyu1981.xyz/alerta-mesh/pkg/alerta"
	"liyu1981.xyz/alerta-mesh/pkg/apperr"
	"liyu1981.xyz/alerta-mesh/pkg/common"
	"liyu1981.xyz/alerta-mesh/pkg/models"
)

const (
	EventAlertReceived = "alert_received"
	EventNotice        = "notice"

	alertReceivedTitle = "¡ALERTA RECIBIDA!"
)

type AlertPayload struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Body      string             `json:"body"`
	Vibrate   bool               `json:"vibrate"`
	Alert     models.AlertRecord `json:"alert"`
	CreatedAt time.Time          `json:"createdAt"`
}

type NoticePayload struct {
	ID        string      `json:"id"`
	Code      apperr.Kind `json:"code"`
	Title     string      `json:"title"`
	Message   string      `json:"message"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Broadcaster is what the notifier publishes to; *Hub implements it.
type Broadcaster interface {
	Broadcast(event Event)
}

type Notifier struct {
	out      Broadcaster
	settings alerta.ISetting
	logger   *zap.Logger
}

func NewNotifier(out Broadcaster, settings alerta.ISetting) *Notifier {
	return &Notifier{
		out:      out,
		settings: settings,
		logger:   common.GetLoggerWith(common.LoggerNameNotify),
	}
}

func (n *Notifier) flag(key models.SettingKey) bool {
	v, err := n.settings.GetSetting(key)
	if err != nil {
		n.logger.Warn("Setting unreadable, using default", zap.String("key", string(key)), zap.Error(err))
		return models.SettingDefaults[key]
	}
	return v
}

// AlertReceived notifies about an alert relayed by the companion phone,
// unless the user turned notifications off.
func (n *Notifier) AlertReceived(record models.AlertRecord) {
	if !n.flag(models.SettingNotificationsEnabled) {
		n.logger.Debug("Notification suppressed", zap.String("type", record.AlertType))
		return
	}

	payload := AlertPayload{
		ID:        uuid.NewString(),
		Title:     alertReceivedTitle,
		Body:      fmt.Sprintf("%s: %s", record.AlertType, record.Message),
		Vibrate:   n.flag(models.SettingVibrateOnAlert),
		Alert:     record,
		CreatedAt: time.Now(),
	}
	n.logger.Info("Alert notification", zap.String("id", payload.ID), zap.String("body", payload.Body), zap.Bool("vibrate", payload.Vibrate))
	n.out.Broadcast(Event{Type: EventAlertReceived, Payload: payload})
}

// Report shows err to the user as a notice.
func (n *Notifier) Report(err error) {
	if err == nil {
		return
	}
	e := apperr.From(err)
	payload := NoticePayload{
		ID:        uuid.NewString(),
		Code:      e.Kind,
		Title:     e.Title,
		Message:   e.Message,
		CreatedAt: time.Now(),
	}
	n.logger.Warn("Notice", zap.String("id", payload.ID), zap.String("code", string(e.Kind)), zap.Error(err))
	n.out.Broadcast(Event{Type: EventNotice, Payload: payload})
}
