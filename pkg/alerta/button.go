package alerta

import (
	"errors"
	"strings"

	z "github.com/Oudwins/zog"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/alerta-mesh/pkg/apperr"
	"liyu1981.xyz/alerta-mesh/pkg/common"
	"liyu1981.xyz/alerta-mesh/pkg/models"
)

func validateButtonName(name *string) z.ZogIssueList {
	var nameValidator = z.String().Min(1).Required()
	return nameValidator.Validate(name)
}

func validatePriority(priority *string) z.ZogIssueList {
	var priorityValidator = z.String().OneOf([]string{
		string(models.PriorityBaja),
		string(models.PriorityMedia),
		string(models.PriorityAlta),
	}).Required()
	return priorityValidator.Validate(priority)
}

func (a *Alerta) insertButtonDefinition(name string, priority models.Priority) (*models.AlertButton, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameAlertaCore,
		zap.String(common.LoggerFieldAlertaCategory, common.LoggerCategoryAlertButton),
	)

	name = strings.TrimSpace(name)
	if issues := validateButtonName(&name); len(issues) > 0 {
		logger.Info("Rejected button", zap.String("reason", "empty name"))
		return nil, apperr.Validation("El nombre de la alerta no puede estar vacío.")
	}

	p := string(priority)
	if issues := validatePriority(&p); len(issues) > 0 {
		logger.Info("Rejected button", zap.String("reason", "invalid priority"), zap.String("priority", p))
		return nil, apperr.Validation("Prioridad inválida: " + p)
	}

	button := models.AlertButton{Name: name, Priority: priority}

	logger.Info("Received button", zap.Reflect("button", button))

	if err := a.Db.Conn.Create(&button).Error; err != nil {
		return nil, apperr.Storage("No se pudo guardar el botón.", err)
	}

	logger.Info("Button saved", zap.Reflect("button", button))

	return &button, nil
}

func (a *Alerta) listButtonDefinitions() ([]models.AlertButton, error) {
	var custom []models.AlertButton
	if err := a.Db.Conn.Order("id asc").Find(&custom).Error; err != nil {
		return nil, apperr.Storage("No se pudieron leer los botones.", err)
	}
	return append(models.BuiltInButtons(), custom...), nil
}

// findButton resolves a button by exact name. Built-ins shadow custom
// buttons with the same name, matching the displayed order.
func (a *Alerta) findButton(name string) (*models.AlertButton, error) {
	for _, b := range models.BuiltInButtons() {
		if b.Name == name {
			return &b, nil
		}
	}

	var button models.AlertButton
	err := a.Db.Conn.Where("name = ?", name).Order("id asc").First(&button).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Validation("No existe un botón llamado " + name)
	}
	if err != nil {
		return nil, apperr.Storage("No se pudieron leer los botones.", err)
	}
	return &button, nil
}

type IButtonImpl struct {
	alerta *Alerta
}

func (ib *IButtonImpl) InsertButtonDefinition(name string, priority models.Priority) (*models.AlertButton, error) {
	return ib.alerta.insertButtonDefinition(name, priority)
}

func (ib *IButtonImpl) ListButtonDefinitions() ([]models.AlertButton, error) {
	return ib.alerta.listButtonDefinitions()
}

func (ib *IButtonImpl) FindButton(name string) (*models.AlertButton, error) {
	return ib.alerta.findButton(name)
}

func (a *Alerta) GetIButton() IButton {
	return &IButtonImpl{alerta: a}
}
