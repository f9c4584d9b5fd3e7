package alerta

import (
	"cmp"
	"slices"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/alerta-mesh/pkg/apperr"
	"liyu1981.xyz/alerta-mesh/pkg/common"
	"liyu1981.xyz/alerta-mesh/pkg/models"
)

func historyLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameAlertaCore,
		zap.String(common.LoggerFieldAlertaCategory, common.LoggerCategoryAlertHistory),
	)
}

func (a *Alerta) insertAlert(alertType, message string, timestamp time.Time, priority models.Priority) (*models.AlertRecord, error) {
	logger := historyLogger()

	if !priority.Valid() {
		return nil, apperr.Validation("Prioridad inválida: " + string(priority))
	}

	record := models.AlertRecord{
		AlertType: alertType,
		Message:   message,
		Timestamp: timestamp,
		Priority:  priority,
	}

	logger.Info("Received alert", zap.Reflect("alert", record))

	if err := a.Db.Conn.Create(&record).Error; err != nil {
		return nil, apperr.Storage("No se pudo guardar la alerta.", err)
	}

	logger.Info("Alert saved", zap.Reflect("alert", record))

	return &record, nil
}

func (a *Alerta) listAlerts() ([]models.AlertRecord, error) {
	var records []models.AlertRecord
	if err := a.Db.Conn.Order("id desc").Find(&records).Error; err != nil {
		return nil, apperr.Storage("No se pudo leer el historial.", err)
	}
	return records, nil
}

func (a *Alerta) deleteAlert(id uint) error {
	if err := a.Db.Conn.Delete(&models.AlertRecord{}, id).Error; err != nil {
		return apperr.Storage("No se pudo eliminar la alerta.", err)
	}
	historyLogger().Info("Alert deleted", zap.Uint("id", id))
	return nil
}

func (a *Alerta) deleteAllAlerts() error {
	if err := a.Db.Conn.Where("1 = 1").Delete(&models.AlertRecord{}).Error; err != nil {
		return apperr.Storage("No se pudo borrar el historial.", err)
	}
	historyLogger().Info("History cleared")
	return nil
}

// replaceAlerts swaps the whole history for records inside one transaction.
// Ids from the sender are kept; records without one get a fresh id after the
// others. Any failure rolls back to the previous history.
func (a *Alerta) replaceAlerts(records []models.AlertRecord) error {
	logger := historyLogger()

	ordered := slices.Clone(records)
	slices.SortStableFunc(ordered, func(x, y models.AlertRecord) int {
		switch {
		case x.ID == 0 && y.ID == 0:
			return 0
		case x.ID == 0:
			return 1
		case y.ID == 0:
			return -1
		}
		return cmp.Compare(x.ID, y.ID)
	})

	err := a.Db.Conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.AlertRecord{}).Error; err != nil {
			return err
		}
		for i := range ordered {
			if err := tx.Create(&ordered[i]).Error; err != nil {
				return err
			}
		}
		return syncIDSequence(tx)
	})
	if err != nil {
		logger.Error("History replace rolled back", zap.Int("count", len(records)), zap.Error(err))
		return apperr.Storage("No se pudo sincronizar el historial.", err)
	}

	logger.Info("History replaced", zap.Int("count", len(records)))
	return nil
}

// syncIDSequence moves the postgres id sequence past the ids written
// explicitly by a replace, so the next local insert does not collide.
// sqlite derives the next rowid from the table and needs nothing.
func syncIDSequence(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	table := models.AlertRecord{}.TableName()
	return tx.Exec(
		"SELECT setval(pg_get_serial_sequence(?, 'id'), COALESCE(MAX(id), 0) + 1, false) FROM "+table,
		table,
	).Error
}

type IHistoryImpl struct {
	alerta *Alerta
}

func (ih *IHistoryImpl) InsertAlert(alertType, message string, timestamp time.Time, priority models.Priority) (*models.AlertRecord, error) {
	return ih.alerta.insertAlert(alertType, message, timestamp, priority)
}

func (ih *IHistoryImpl) ListAlerts() ([]models.AlertRecord, error) {
	return ih.alerta.listAlerts()
}

func (ih *IHistoryImpl) DeleteAlert(id uint) error {
	return ih.alerta.deleteAlert(id)
}

func (ih *IHistoryImpl) DeleteAllAlerts() error {
	return ih.alerta.deleteAllAlerts()
}

func (ih *IHistoryImpl) ReplaceAlerts(records []models.AlertRecord) error {
	return ih.alerta.replaceAlerts(records)
}

func (a *Alerta) GetIHistory() IHistory {
	return &IHistoryImpl{alerta: a}
}
