package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"liyu1981.xyz/alerta-mesh/pkg/relay"
)

func (a *app) newSendCmd() *cobra.Command {
	var message, priority string

	cmd := &cobra.Command{
		Use:   "send <button>",
		Short: "Trigger an alert button on the running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"name": args[0]}
			if message != "" {
				body["message"] = message
			}
			if priority != "" {
				body["priority"] = priority
			}

			var report relay.SendReport
			client := newAPIClient(a.server())
			if err := client.do(cmd.Context(), http.MethodPost, "/alerts/send", body, &report); err != nil {
				return err
			}

			if f := a.format(); f != "table" {
				return printOutput(cmd.OutOrStdout(), f, report)
			}

			out := cmd.OutOrStdout()
			if report.Record != nil {
				fmt.Fprintf(out, "Alert %d stored: %s (%s)\n", report.Record.ID, report.Record.AlertType, report.Record.Priority)
			}
			t := NewTable(out, "PEER", "RESULT")
			t.AddRow("controller", string(report.Controller))
			t.AddRow("companion", string(report.Companion))
			t.Render()
			for _, n := range report.Notices {
				fmt.Fprintf(out, "! %s: %s\n", n.Title, n.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "alert message (default: the button's message)")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "override priority: Baja, Media or Alta")
	return cmd
}
