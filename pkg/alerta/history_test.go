package alerta

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"liyu1981.xyz/alerta-mesh/pkg/apperr"
	"liyu1981.xyz/alerta-mesh/pkg/common"
	"liyu1981.xyz/alerta-mesh/pkg/db"
	"liyu1981.xyz/alerta-mesh/pkg/models"
	_ "liyu1981.xyz/alerta-mesh/pkg/testing"
)

func TestInsertAndListAlerts(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, alertaObj, _, _, _ := GetMockAlertaWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	cases := []struct {
		alertType string
		message   string
		priority  models.Priority
	}{
		{"Robo", "Se detectó un intento de robo", models.PriorityAlta},
		{"Gas", "Fuga de gas en la cocina", models.PriorityMedia},
		{"Puerta", "", models.PriorityBaja},
	}

	for _, c := range cases {
		before, err := alertaObj.History.ListAlerts()
		require.NoError(t, err)

		start := time.Now()
		_, err = alertaObj.History.InsertAlert(c.alertType, c.message, time.Now(), c.priority)
		require.NoError(t, err)
		end := time.Now()

		after, err := alertaObj.History.ListAlerts()
		require.NoError(t, err)
		require.Len(t, after, len(before)+1)

		// most recent first
		newest := after[0]
		assert.Equal(t, c.alertType, newest.AlertType)
		assert.Equal(t, c.message, newest.Message)
		assert.Equal(t, c.priority, newest.Priority)
		assert.False(t, newest.Timestamp.Before(start.Truncate(time.Millisecond)))
		assert.False(t, newest.Timestamp.After(end))
	}

	all, err := alertaObj.History.ListAlerts()
	require.NoError(t, err)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i-1].ID, all[i].ID, "ids should be listed descending")
	}
}

func TestInsertAlert_InvalidPriority(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, alertaObj, _, _, _ := GetMockAlertaWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	_, err := alertaObj.History.InsertAlert("Robo", "x", time.Now(), "Urgente")
	require.ErrorIs(t, err, apperr.ErrValidation)

	alerts, err := alertaObj.History.ListAlerts()
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestDeleteAlerts(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, alertaObj, _, _, _ := GetMockAlertaWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	first, err := alertaObj.History.InsertAlert("Robo", "a", time.Now(), models.PriorityAlta)
	require.NoError(t, err)
	_, err = alertaObj.History.InsertAlert("Incendio", "b", time.Now(), models.PriorityAlta)
	require.NoError(t, err)

	require.NoError(t, alertaObj.History.DeleteAlert(first.ID))
	alerts, err := alertaObj.History.ListAlerts()
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Incendio", alerts[0].AlertType)

	require.NoError(t, alertaObj.History.DeleteAllAlerts())
	alerts, err = alertaObj.History.ListAlerts()
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestReplaceAlerts(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, alertaObj, _, _, _ := GetMockAlertaWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	_, err := alertaObj.History.InsertAlert("Local", "will be gone", time.Now(), models.PriorityBaja)
	require.NoError(t, err)

	ts := time.Date(2025, 9, 1, 10, 30, 0, 0, time.UTC)
	incoming := []models.AlertRecord{
		{ID: 7, AlertType: "Robo", Message: "m7", Timestamp: ts.Add(2 * time.Minute), Priority: models.PriorityAlta},
		{ID: 3, AlertType: "Incendio", Message: "m3", Timestamp: ts.Add(time.Minute), Priority: models.PriorityAlta},
		{ID: 1, AlertType: "Gas", Message: "m1", Timestamp: ts, Priority: models.PriorityMedia},
	}

	require.NoError(t, alertaObj.History.ReplaceAlerts(incoming))

	alerts, err := alertaObj.History.ListAlerts()
	require.NoError(t, err)
	require.Len(t, alerts, len(incoming))
	for i := range incoming {
		assert.Equal(t, incoming[i].ID, alerts[i].ID)
		assert.Equal(t, incoming[i].AlertType, alerts[i].AlertType)
		assert.Equal(t, incoming[i].Message, alerts[i].Message)
		assert.Equal(t, incoming[i].Priority, alerts[i].Priority)
		assert.True(t, incoming[i].Timestamp.Equal(alerts[i].Timestamp))
	}

	// ids keep growing after a resync
	next, err := alertaObj.History.InsertAlert("Nueva", "n", time.Now(), models.PriorityBaja)
	require.NoError(t, err)
	assert.Greater(t, next.ID, uint(7))
}

func TestReplaceAlerts_PostgresInsertAfterResync(t *testing.T) {
	common.SetTestLoggerNop()

	dsn := os.Getenv(common.EnvKeyAlertaDbDSN)
	if os.Getenv(common.EnvKeyRunIntegrationTests) != "true" || dsn == "" {
		t.Skip("Skipping integration test: RUN_INTEGRATION_TESTS and ALERTA_DB_DSN must be set")
	}

	dbInstance, err := db.Open(db.UsePostgresDialector(dsn))
	require.NoError(t, err)
	alertaObj := New(dbInstance)
	require.NoError(t, alertaObj.History.DeleteAllAlerts())
	t.Cleanup(func() { _ = alertaObj.History.DeleteAllAlerts() })

	ts := time.Date(2025, 9, 1, 10, 30, 0, 0, time.UTC)
	require.NoError(t, alertaObj.History.ReplaceAlerts([]models.AlertRecord{
		{ID: 1, AlertType: "Gas", Message: "m1", Timestamp: ts, Priority: models.PriorityMedia},
		{ID: 2, AlertType: "Robo", Message: "m2", Timestamp: ts.Add(time.Minute), Priority: models.PriorityAlta},
	}))

	next, err := alertaObj.History.InsertAlert("Nueva", "n", time.Now(), models.PriorityBaja)
	require.NoError(t, err)
	assert.Equal(t, uint(3), next.ID)

	require.NoError(t, alertaObj.History.ReplaceAlerts(nil))
	next, err = alertaObj.History.InsertAlert("Otra", "o", time.Now(), models.PriorityBaja)
	require.NoError(t, err)
	assert.Equal(t, uint(1), next.ID)
}

func TestReplaceAlerts_RollbackKeepsHistory(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, alertaObj, _, _, _ := GetMockAlertaWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	_, err := alertaObj.History.InsertAlert("Robo", "keep me", time.Now(), models.PriorityAlta)
	require.NoError(t, err)

	// the check constraint on priority fails on the second insert
	err = alertaObj.History.ReplaceAlerts([]models.AlertRecord{
		{ID: 1, AlertType: "Gas", Timestamp: time.Now(), Priority: models.PriorityMedia},
		{ID: 2, AlertType: "Bad", Timestamp: time.Now(), Priority: "Urgente"},
	})
	require.ErrorIs(t, err, apperr.ErrStorage)

	alerts, err := alertaObj.History.ListAlerts()
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "keep me", alerts[0].Message)
}

func TestReplaceAlerts_Empty(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, alertaObj, _, _, _ := GetMockAlertaWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	_, err := alertaObj.History.InsertAlert("Robo", "x", time.Now(), models.PriorityAlta)
	require.NoError(t, err)

	require.NoError(t, alertaObj.History.ReplaceAlerts(nil))

	alerts, err := alertaObj.History.ListAlerts()
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestInsertAlert_WithLog(t *testing.T) {
	var buf = &bytes.Buffer{}
	common.SetTestCaptureLogger(buf, zapcore.InfoLevel)

	ctrl, alertaObj, _, _, _ := GetMockAlertaWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	_, err := alertaObj.History.InsertAlert("Robo", "Se detectó un intento de robo", time.Now(), models.PriorityAlta)
	require.NoError(t, err)

	logs := ParseLogs(buf)

	for _, msg := range []string{"Received alert", "Alert saved"} {
		found := false
		for _, log := range logs {
			lobj := log.(map[string]any)
			if lobj["category"] == "history" &&
				lobj["logger"] == "alerta_core" &&
				lobj["msg"] == msg &&
				lobj["alert"].(map[string]any)["TIPO_ALERTA"] == "Robo" &&
				lobj["alert"].(map[string]any)["PRIORIDAD"] == "Alta" {
				found = true
			}
		}
		assert.True(t, found, "log %q not found", msg)
	}
}
