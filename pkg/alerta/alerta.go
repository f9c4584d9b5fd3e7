package alerta

import (
	"time"

	"liyu1981.xyz/alerta-mesh/pkg/db"
	"liyu1981.xyz/alerta-mesh/pkg/models"
)

//go:generate mockgen -source=alerta.go -destination=mocks/mock_alerta.go -package=mocks

type IHistory interface {
	InsertAlert(alertType, message string, timestamp time.Time, priority models.Priority) (*models.AlertRecord, error)
	ListAlerts() ([]models.AlertRecord, error)
	DeleteAlert(id uint) error
	DeleteAllAlerts() error
	ReplaceAlerts(records []models.AlertRecord) error
}

type IButton interface {
	InsertButtonDefinition(name string, priority models.Priority) (*models.AlertButton, error)
	ListButtonDefinitions() ([]models.AlertButton, error)
	FindButton(name string) (*models.AlertButton, error)
}

type ISetting interface {
	GetSetting(key models.SettingKey) (bool, error)
	SetSetting(key models.SettingKey, value bool) error
	ListSettings() (map[models.SettingKey]bool, error)
	ResetSettings() error
}

// Alerta is the local store facade: alert history, custom buttons and the
// settings flags, all on one database.
type Alerta struct {
	Db      db.DB
	History IHistory
	Button  IButton
	Setting ISetting
}

type ServiceOpts struct {
	History IHistory
	Button  IButton
	Setting ISetting
}

func (a *Alerta) WithServices(opts ServiceOpts) *Alerta {
	if opts.History != nil {
		a.History = opts.History
	}
	if opts.Button != nil {
		a.Button = opts.Button
	}
	if opts.Setting != nil {
		a.Setting = opts.Setting
	}
	return a
}

// New wires the database-backed services.
func New(database *db.DB) *Alerta {
	a := &Alerta{Db: *database}
	return a.WithServices(ServiceOpts{
		History: a.GetIHistory(),
		Button:  a.GetIButton(),
		Setting: a.GetISetting(),
	})
}
