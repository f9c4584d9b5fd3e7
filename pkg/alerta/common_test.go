package alerta

import (
	"bufio"
	"encoding/json"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"liyu1981.xyz/alerta-mesh/pkg/alerta/mocks"
	"liyu1981.xyz/alerta-mesh/pkg/db"
)

func GetMockAlertaWithMemorySqliteDialector(t *testing.T, useMockIHistory, useMockIButton, useMockISetting bool) (
	*gomock.Controller,
	*Alerta,
	*mocks.MockIHistory,
	*mocks.MockIButton,
	*mocks.MockISetting,
) {
	ctrl := gomock.NewController(t)

	mockIHistory := mocks.NewMockIHistory(ctrl)
	mockIButton := mocks.NewMockIButton(ctrl)
	mockISetting := mocks.NewMockISetting(ctrl)

	dbInstance, err := db.Open(db.UseNamedMemorySqliteDialector(uuid.NewString()))
	require.NoError(t, err)
	alertaInstance := &Alerta{Db: *dbInstance}

	historyService := alertaInstance.GetIHistory()
	if useMockIHistory {
		historyService = mockIHistory
	}

	buttonService := alertaInstance.GetIButton()
	if useMockIButton {
		buttonService = mockIButton
	}

	settingService := alertaInstance.GetISetting()
	if useMockISetting {
		settingService = mockISetting
	}

	alertaInstance.WithServices(ServiceOpts{
		History: historyService,
		Button:  buttonService,
		Setting: settingService,
	})

	return ctrl, alertaInstance, mockIHistory, mockIButton, mockISetting
}

func ParseLogs(r io.Reader) []any {
	scanner := bufio.NewScanner(r)
	var logs []any

	for scanner.Scan() {
		line := scanner.Text()
		var j any
		if err := json.Unmarshal([]byte(line), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}
