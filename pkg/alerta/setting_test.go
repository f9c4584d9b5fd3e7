package alerta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/alerta-mesh/pkg/apperr"
	"liyu1981.xyz/alerta-mesh/pkg/common"
	"liyu1981.xyz/alerta-mesh/pkg/models"
	_ "liyu1981.xyz/alerta-mesh/pkg/testing"
)

func TestSettingsDefaults(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, alertaObj, _, _, _ := GetMockAlertaWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	settings, err := alertaObj.Setting.ListSettings()
	require.NoError(t, err)
	assert.Equal(t, models.SettingDefaults, settings)

	v, err := alertaObj.Setting.GetSetting(models.SettingNotificationsEnabled)
	require.NoError(t, err)
	assert.True(t, v)
}

func TestSetSetting_Upsert(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, alertaObj, _, _, _ := GetMockAlertaWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	require.NoError(t, alertaObj.Setting.SetSetting(models.SettingDarkMode, true))
	require.NoError(t, alertaObj.Setting.SetSetting(models.SettingVibrateOnAlert, false))
	require.NoError(t, alertaObj.Setting.SetSetting(models.SettingDarkMode, false))
	require.NoError(t, alertaObj.Setting.SetSetting(models.SettingDarkMode, true))

	dark, err := alertaObj.Setting.GetSetting(models.SettingDarkMode)
	require.NoError(t, err)
	assert.True(t, dark)

	var count int64
	require.NoError(t, alertaObj.Db.Conn.Model(&models.Setting{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	settings, err := alertaObj.Setting.ListSettings()
	require.NoError(t, err)
	assert.False(t, settings[models.SettingVibrateOnAlert])
	assert.True(t, settings[models.SettingNotificationsEnabled])
}

func TestResetSettings(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, alertaObj, _, _, _ := GetMockAlertaWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	require.NoError(t, alertaObj.Setting.SetSetting(models.SettingNotificationsEnabled, false))
	require.NoError(t, alertaObj.Setting.ResetSettings())

	settings, err := alertaObj.Setting.ListSettings()
	require.NoError(t, err)
	assert.Equal(t, models.SettingDefaults, settings)
}

func TestSettings_UnknownKey(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, alertaObj, _, _, _ := GetMockAlertaWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	_, err := alertaObj.Setting.GetSetting("fontSize")
	require.ErrorIs(t, err, apperr.ErrValidation)

	err = alertaObj.Setting.SetSetting("fontSize", true)
	require.ErrorIs(t, err, apperr.ErrValidation)
}
