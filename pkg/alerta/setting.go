package alerta

import (
	"go.uber.org/zap"
	"gorm.io/gorm/clause"
	"liyu1981.xyz/alerta-mesh/pkg/apperr"
	"liyu1981.xyz/alerta-mesh/pkg/common"
	"liyu1981.xyz/alerta-mesh/pkg/models"
)

func settingLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameAlertaCore,
		zap.String(common.LoggerFieldAlertaCategory, common.LoggerCategorySetting),
	)
}

func unknownSetting(key models.SettingKey) error {
	return apperr.Validation("Configuración desconocida: " + string(key))
}

func (a *Alerta) getSetting(key models.SettingKey) (bool, error) {
	if !key.Valid() {
		return false, unknownSetting(key)
	}

	var settings []models.Setting
	if err := a.Db.Conn.Where(&models.Setting{Key: key}).Limit(1).Find(&settings).Error; err != nil {
		return false, apperr.Storage("No se pudo leer la configuración.", err)
	}
	if len(settings) == 0 {
		return models.SettingDefaults[key], nil
	}
	return settings[0].Value, nil
}

func (a *Alerta) setSetting(key models.SettingKey, value bool) error {
	if !key.Valid() {
		return unknownSetting(key)
	}

	setting := models.Setting{Key: key, Value: value}

	err := a.Db.Conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&setting).Error
	if err != nil {
		return apperr.Storage("No se pudo guardar la configuración.", err)
	}

	settingLogger().Info("Upserted setting", zap.Reflect("setting", setting))
	return nil
}

func (a *Alerta) listSettings() (map[models.SettingKey]bool, error) {
	var stored []models.Setting
	if err := a.Db.Conn.Find(&stored).Error; err != nil {
		return nil, apperr.Storage("No se pudo leer la configuración.", err)
	}

	settings := make(map[models.SettingKey]bool, len(models.SettingDefaults))
	for k, v := range models.SettingDefaults {
		settings[k] = v
	}
	for _, s := range stored {
		if s.Key.Valid() {
			settings[s.Key] = s.Value
		}
	}
	return settings, nil
}

func (a *Alerta) resetSettings() error {
	if err := a.Db.Conn.Where("1 = 1").Delete(&models.Setting{}).Error; err != nil {
		return apperr.Storage("No se pudo restablecer la configuración.", err)
	}
	settingLogger().Info("Settings reset to defaults")
	return nil
}

type ISettingImpl struct {
	alerta *Alerta
}

func (is *ISettingImpl) GetSetting(key models.SettingKey) (bool, error) {
	return is.alerta.getSetting(key)
}

func (is *ISettingImpl) SetSetting(key models.SettingKey, value bool) error {
	return is.alerta.setSetting(key, value)
}

func (is *ISettingImpl) ListSettings() (map[models.SettingKey]bool, error) {
	return is.alerta.listSettings()
}

func (is *ISettingImpl) ResetSettings() error {
	return is.alerta.resetSettings()
}

func (a *Alerta) GetISetting() ISetting {
	return &ISettingImpl{alerta: a}
}
