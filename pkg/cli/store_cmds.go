package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
	"liyu1981.xyz/alerta-mesh/pkg/models"
)

func (a *app) newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the local alert history",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List alerts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			records, err := store.History.ListAlerts()
			if err != nil {
				return fmt.Errorf("failed to list alerts: %w", err)
			}

			if f := a.format(); f != "table" {
				return printOutput(cmd.OutOrStdout(), f, records)
			}

			t := NewTable(cmd.OutOrStdout(), "ID", "TYPE", "PRIORITY", "DATE", "MESSAGE")
			for _, r := range records {
				t.AddRow(
					strconv.FormatUint(uint64(r.ID), 10),
					r.AlertType,
					string(r.Priority),
					r.Timestamp.Local().Format("2006-01-02 15:04:05"),
					truncate(r.Message, 50),
				)
			}
			t.Render()
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid alert ID: %s", args[0])
			}
			store, err := a.store()
			if err != nil {
				return err
			}
			if err := store.History.DeleteAlert(uint(id)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Alert %d deleted\n", id)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the whole history",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			if err := store.History.DeleteAllAlerts(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		},
	})

	return cmd
}

func (a *app) newButtonsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buttons",
		Short: "Manage alert buttons",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List built-in and custom buttons",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			buttons, err := store.Button.ListButtonDefinitions()
			if err != nil {
				return fmt.Errorf("failed to list buttons: %w", err)
			}

			if f := a.format(); f != "table" {
				return printOutput(cmd.OutOrStdout(), f, buttons)
			}

			t := NewTable(cmd.OutOrStdout(), "NAME", "PRIORITY", "BUILT-IN")
			for _, b := range buttons {
				t.AddRow(b.Name, string(b.Priority), strconv.FormatBool(b.BuiltIn))
			}
			t.Render()
			return nil
		},
	})

	var priority string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a custom button",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			button, err := store.Button.InsertButtonDefinition(args[0], models.Priority(priority))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Button %q added with priority %s\n", button.Name, button.Priority)
			return nil
		},
	}
	add.Flags().StringVarP(&priority, "priority", "p", string(models.PriorityMedia), "priority: Baja, Media or Alta")
	cmd.AddCommand(add)

	return cmd
}

func (a *app) newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage node settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show every setting with its current value",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			settings, err := store.Setting.ListSettings()
			if err != nil {
				return err
			}

			if f := a.format(); f != "table" {
				return printOutput(cmd.OutOrStdout(), f, settings)
			}

			keys := make([]string, 0, len(settings))
			for k := range settings {
				keys = append(keys, string(k))
			}
			sort.Strings(keys)

			t := NewTable(cmd.OutOrStdout(), "KEY", "VALUE")
			for _, k := range keys {
				t.AddRow(k, strconv.FormatBool(settings[models.SettingKey(k)]))
			}
			t.Render()
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <true|false>",
		Short: "Change one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("invalid value %q, want true or false", args[1])
			}
			store, err := a.store()
			if err != nil {
				return err
			}
			if err := store.Setting.SetSetting(models.SettingKey(args[0]), value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %t\n", args[0], value)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			if err := store.Setting.ResetSettings(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Settings restored to defaults")
			return nil
		},
	})

	return cmd
}
