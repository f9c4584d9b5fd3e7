// Package relay implements the alert relay protocol between this node, the
// ESP32 controller and the companion phone.
//
// Sending stores the alert first and then fans it out: the controller gets
// the bare priority label, the companion gets the alert together with the
// full local history. Receiving replaces the local history with the one that
// came in, wholesale.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/alerta-mesh/pkg/alerta"
	"liyu1981.xyz/alerta-mesh/pkg/apperr"
	"liyu1981.xyz/alerta-mesh/pkg/common"
	"liyu1981.xyz/alerta-mesh/pkg/metrics"
	"liyu1981.xyz/alerta-mesh/pkg/models"
)

//go:generate mockgen -source=relay.go -destination=mocks/mock_relay.go -package=mocks

// PeerLink is the part of a serial link the relay writes through.
type PeerLink interface {
	IsConnected() bool
	IsServer() bool
	WriteLine(line string) error
}

// Notifier surfaces received alerts and error notices to the user.
type Notifier interface {
	AlertReceived(record models.AlertRecord)
	Report(err error)
}

// PermissionChecker verifies the process may use Bluetooth at all.
type PermissionChecker interface {
	CheckPermission(ctx context.Context) error
}

const (
	TargetController = "controller"
	TargetCompanion  = "companion"
)

type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
	OutcomeRefused Outcome = "refused"
)

// fechaLayout matches what the phone app produces for "fecha".
const fechaLayout = "2006-01-02T15:04:05.000Z07:00"

type AlertRequest struct {
	Type     string          `json:"type"`
	Message  string          `json:"message"`
	Priority models.Priority `json:"priority"`
}

type SendReport struct {
	Record     *models.AlertRecord `json:"record"`
	Controller Outcome             `json:"controller"`
	Companion  Outcome             `json:"companion"`
	Notices    []*apperr.Error     `json:"notices,omitempty"`
}

// WireAlert is the "alerta" object of a companion payload.
type WireAlert struct {
	Tipo      string          `json:"tipo"`
	Mensaje   string          `json:"mensaje"`
	Fecha     string          `json:"fecha"`
	Prioridad models.Priority `json:"prioridad"`
}

// Payload is one line sent to or received from the companion phone.
type Payload struct {
	Alerta    *WireAlert           `json:"alerta"`
	Historial []models.AlertRecord `json:"historial"`
}

type Relay struct {
	History    alerta.IHistory
	Controller PeerLink
	Companion  PeerLink
	Notifier   Notifier
	Now        func() time.Time
}

func New(history alerta.IHistory, controller, companion PeerLink, notifier Notifier) *Relay {
	return &Relay{
		History:    history,
		Controller: controller,
		Companion:  companion,
		Notifier:   notifier,
		Now:        time.Now,
	}
}

func (r *Relay) report(err error) {
	if r.Notifier != nil {
		r.Notifier.Report(err)
	}
}

// SendAlert stores the alert and relays it to every connected peer. Delivery
// failures do not undo the stored record; they come back as notices.
func (r *Relay) SendAlert(ctx context.Context, req AlertRequest) (*SendReport, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameRelay,
		zap.String(common.LoggerFieldAlertaCategory, common.LoggerCategorySender),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Type) == "" {
		return nil, apperr.Validation("El nombre de la alerta no puede estar vacío.")
	}

	record, err := r.History.InsertAlert(req.Type, req.Message, r.Now(), req.Priority)
	if err != nil {
		logger.Error("Alert not stored, send aborted", zap.Error(err))
		return nil, err
	}

	report := &SendReport{Record: record, Controller: OutcomeSkipped, Companion: OutcomeSkipped}
	notice := func(err error) {
		report.Notices = append(report.Notices, apperr.From(err))
		r.report(err)
	}

	if r.Controller != nil && r.Controller.IsConnected() {
		if err := r.Controller.WriteLine(string(record.Priority)); err != nil {
			report.Controller = OutcomeFailed
			notice(err)
		} else {
			report.Controller = OutcomeSent
		}
	}

	if r.Companion != nil && r.Companion.IsConnected() {
		switch {
		case r.Companion.IsServer():
			report.Companion = OutcomeRefused
			notice(apperr.RelayOnly())
		default:
			if err := r.sendToCompanion(record); err != nil {
				report.Companion = OutcomeFailed
				notice(err)
			} else {
				report.Companion = OutcomeSent
			}
		}
	}

	metrics.RecordAlertSent(TargetController, string(report.Controller))
	metrics.RecordAlertSent(TargetCompanion, string(report.Companion))

	logger.Info("Alert relayed",
		zap.Uint("id", record.ID),
		zap.String("type", record.AlertType),
		zap.String("priority", string(record.Priority)),
		zap.String("controller", string(report.Controller)),
		zap.String("companion", string(report.Companion)))

	return report, nil
}

func (r *Relay) sendToCompanion(record *models.AlertRecord) error {
	history, err := r.History.ListAlerts()
	if err != nil {
		return err
	}

	line, err := EncodePayload(*record, history)
	if err != nil {
		return apperr.Storage("No se pudo preparar la alerta.", err)
	}
	return r.Companion.WriteLine(line)
}

// EncodePayload renders the single-line JSON sent to the companion phone.
func EncodePayload(record models.AlertRecord, history []models.AlertRecord) (string, error) {
	if history == nil {
		history = []models.AlertRecord{}
	}
	b, err := json.Marshal(Payload{
		Alerta: &WireAlert{
			Tipo:      record.AlertType,
			Mensaje:   record.Message,
			Fecha:     record.Timestamp.UTC().Format(fechaLayout),
			Prioridad: record.Priority,
		},
		Historial: history,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodePayload parses one companion line. A payload without "alerta" or
// "historial", or with a record of unknown priority, is rejected.
func DecodePayload(line string) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(line), &p); err != nil {
		return nil, apperr.PayloadParse(err)
	}
	if p.Alerta == nil {
		return nil, apperr.PayloadParse(errors.New("missing alerta"))
	}
	if p.Historial == nil {
		return nil, apperr.PayloadParse(errors.New("missing historial"))
	}
	for _, rec := range p.Historial {
		if !rec.Priority.Valid() {
			return nil, apperr.PayloadParse(errors.New("invalid priority in historial: " + string(rec.Priority)))
		}
	}
	return &p, nil
}

// HandleInbound processes one line from the companion phone. Bad lines are
// dropped and reported.
func (r *Relay) HandleInbound(line string) error {
	logger := common.GetLoggerWith(
		common.LoggerNameRelay,
		zap.String(common.LoggerFieldAlertaCategory, common.LoggerCategoryReceiver),
	)

	p, err := DecodePayload(line)
	if err != nil {
		logger.Warn("Dropped inbound line", zap.Int("size", len(line)), zap.Error(err))
		metrics.RecordAlertReceived("parse_error")
		r.report(err)
		return err
	}

	if err := r.History.ReplaceAlerts(p.Historial); err != nil {
		logger.Error("History not replaced", zap.Error(err))
		metrics.RecordAlertReceived("storage_error")
		r.report(err)
		return err
	}
	metrics.SetHistoryRecords(len(p.Historial))
	metrics.RecordAlertReceived("ok")

	received := models.AlertRecord{
		AlertType: p.Alerta.Tipo,
		Message:   p.Alerta.Mensaje,
		Priority:  p.Alerta.Prioridad,
	}
	if ts, err := time.Parse(time.RFC3339, p.Alerta.Fecha); err == nil {
		received.Timestamp = ts
	} else {
		logger.Debug("Unparsable fecha, using receive time", zap.String("fecha", p.Alerta.Fecha), zap.Error(err))
		received.Timestamp = r.Now()
	}

	logger.Info("Alert received",
		zap.String("type", received.AlertType),
		zap.String("priority", string(received.Priority)),
		zap.Int("historial", len(p.Historial)))

	if r.Notifier != nil {
		r.Notifier.AlertReceived(received)
	}
	return nil
}
