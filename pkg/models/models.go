package models

import (
	"fmt"
	"time"
)

type Priority string

const (
	PriorityBaja  Priority = "Baja"
	PriorityMedia Priority = "Media"
	PriorityAlta  Priority = "Alta"
)

var Priorities = []Priority{PriorityBaja, PriorityMedia, PriorityAlta}

func (p Priority) Valid() bool {
	switch p {
	case PriorityBaja, PriorityMedia, PriorityAlta:
		return true
	}
	return false
}

// AlertRecord is one row of the alert history. The JSON names are the ones
// exchanged with the companion phone inside "historial".
type AlertRecord struct {
	ID        uint      `gorm:"primaryKey" json:"Id"`
	AlertType string    `gorm:"not null" json:"TIPO_ALERTA"`
	Message   string    `json:"MENSAJE"`
	Timestamp time.Time `gorm:"index" json:"FECHA"`
	Priority  Priority  `gorm:"type:varchar(10);check:priority IN ('Baja','Media','Alta')" json:"PRIORIDAD"`
}

func (AlertRecord) TableName() string {
	return "alerts"
}

// AlertButton is a user defined alert button. Built-in buttons have ID 0 and
// are never stored.
type AlertButton struct {
	ID       uint     `gorm:"primaryKey" json:"id"`
	Name     string   `gorm:"not null" json:"name"`
	Priority Priority `gorm:"type:varchar(10);check:priority IN ('Baja','Media','Alta')" json:"priority"`
	BuiltIn  bool     `gorm:"-" json:"builtIn"`
}

func (AlertButton) TableName() string {
	return "alert_buttons"
}

var builtInMessages = map[string]string{
	"Robo":     "Se detectó un intento de robo",
	"Incendio": "Se detectó un incendio",
}

// BuiltInButtons are prepended to the persisted buttons on every read.
func BuiltInButtons() []AlertButton {
	return []AlertButton{
		{Name: "Robo", Priority: PriorityAlta, BuiltIn: true},
		{Name: "Incendio", Priority: PriorityAlta, BuiltIn: true},
	}
}

// DefaultMessage is the message sent when the user triggers the button
// without typing one.
func (b AlertButton) DefaultMessage() string {
	if b.BuiltIn {
		if msg, ok := builtInMessages[b.Name]; ok {
			return msg
		}
	}
	return fmt.Sprintf("Alerta: %s", b.Name)
}

type SettingKey string

const (
	SettingDarkMode             SettingKey = "isDarkMode"
	SettingVibrateOnAlert       SettingKey = "vibrateOnAlert"
	SettingNotificationsEnabled SettingKey = "notificationsEnabled"
)

var SettingDefaults = map[SettingKey]bool{
	SettingDarkMode:             false,
	SettingVibrateOnAlert:       true,
	SettingNotificationsEnabled: true,
}

func (k SettingKey) Valid() bool {
	_, ok := SettingDefaults[k]
	return ok
}

type Setting struct {
	Key   SettingKey `gorm:"primaryKey;type:varchar(32)" json:"key"`
	Value bool       `json:"value"`
}
