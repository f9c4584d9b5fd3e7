// Package cli implements alertactl. Store commands work directly on the
// local database; link commands go through the HTTP API of the running
// server, which owns the peer links.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"liyu1981.xyz/alerta-mesh/pkg/alerta"
	"liyu1981.xyz/alerta-mesh/pkg/common"
	"liyu1981.xyz/alerta-mesh/pkg/db"
)

const defaultServerURL = "http://localhost" + common.DefaultHttpHostPort

type app struct {
	v *viper.Viper

	cfgFile      string
	outputFormat string
	serverURL    string

	// openStore is replaced in tests.
	openStore func(cfg *common.Config) (*alerta.Alerta, error)
}

func openConfiguredStore(cfg *common.Config) (*alerta.Alerta, error) {
	dialector, err := db.UseConfigDialector(cfg)
	if err != nil {
		return nil, err
	}
	dbInstance, err := db.Open(dialector)
	if err != nil {
		return nil, err
	}
	return alerta.New(dbInstance), nil
}

func newApp() *app {
	return &app{
		v:         common.NewViper(),
		openStore: openConfiguredStore,
	}
}

func NewRootCmd() *cobra.Command {
	return newApp().rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alertactl",
		Short: "alertactl - manage an Alerta Mesh node",
		Long: `alertactl inspects and edits the alert history, buttons and settings of
an Alerta Mesh node, and drives its peer links through the running server.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default $HOME/.alerta-mesh/config.yaml)")
	cmd.PersistentFlags().StringVarP(&a.outputFormat, "output", "o", "table", "output format: table, json, yaml")
	cmd.PersistentFlags().StringVar(&a.serverURL, "server", "", "server URL (overrides config)")

	_ = a.v.BindPFlag("output", cmd.PersistentFlags().Lookup("output"))
	_ = a.v.BindPFlag("server_url", cmd.PersistentFlags().Lookup("server"))

	cmd.AddCommand(a.newHistoryCmd())
	cmd.AddCommand(a.newButtonsCmd())
	cmd.AddCommand(a.newSettingsCmd())
	cmd.AddCommand(a.newSendCmd())
	cmd.AddCommand(a.newPeersCmd())

	return cmd
}

func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		a.v.AddConfigPath(filepath.Join(home, ".alerta-mesh"))
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
	}

	a.v.SetDefault("server_url", defaultServerURL)
	a.v.SetDefault("output", "table")

	if err := a.v.ReadInConfig(); err != nil {
		// a missing default config file is fine, env and flags still apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || a.cfgFile != "" {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func (a *app) store() (*alerta.Alerta, error) {
	cfg, err := common.LoadConfig(a.v)
	if err != nil {
		return nil, err
	}
	return a.openStore(cfg)
}

func (a *app) server() string {
	if a.serverURL != "" {
		return a.serverURL
	}
	return a.v.GetString("server_url")
}

func (a *app) format() string {
	if a.outputFormat != "" && a.outputFormat != "table" {
		return a.outputFormat
	}
	return a.v.GetString("output")
}

func Execute() error {
	return NewRootCmd().Execute()
}
