package cli

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"
	"liyu1981.xyz/alerta-mesh/pkg/registry"
	"liyu1981.xyz/alerta-mesh/pkg/relay"
)

func (a *app) newPeersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peers",
		Short: "Inspect and drive the peer links of the running server",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show both peers and their link state",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status relay.SessionStatus
			if err := newAPIClient(a.server()).do(cmd.Context(), http.MethodGet, "/peers", nil, &status); err != nil {
				return err
			}
			return a.printStatus(cmd, status)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:       "connect <controller|companion>",
		Short:     "Dial a bonded peer",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(registry.RoleController), string(registry.RoleCompanionPhone)},
		RunE: func(cmd *cobra.Command, args []string) error {
			role := registry.Role(args[0])
			if !role.Valid() {
				return fmt.Errorf("unknown role %q", args[0])
			}
			var status relay.SessionStatus
			path := "/peers/" + string(role) + "/connect"
			if err := newAPIClient(a.server()).do(cmd.Context(), http.MethodPost, path, nil, &status); err != nil {
				return err
			}
			return a.printStatus(cmd, status)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "listen",
		Short: "Wait for the companion phone to connect",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newAPIClient(a.server()).do(cmd.Context(), http.MethodPost, "/peers/companion/listen", nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Waiting for the companion phone")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cancel-listen",
		Short: "Stop waiting for the companion phone",
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				Cancelled bool `json:"cancelled"`
			}
			if err := newAPIClient(a.server()).do(cmd.Context(), http.MethodDelete, "/peers/companion/listen", nil, &res); err != nil {
				return err
			}
			if res.Cancelled {
				fmt.Fprintln(cmd.OutOrStdout(), "Listen cancelled")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "No listen in progress")
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:       "disconnect <controller|companion>",
		Short:     "Close a peer link",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(registry.RoleController), string(registry.RoleCompanionPhone)},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/peers/" + args[0] + "/disconnect"
			if err := newAPIClient(a.server()).do(cmd.Context(), http.MethodPost, path, nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s disconnected\n", args[0])
			return nil
		},
	})

	return cmd
}

func (a *app) printStatus(cmd *cobra.Command, status relay.SessionStatus) error {
	if f := a.format(); f != "table" {
		return printOutput(cmd.OutOrStdout(), f, status)
	}

	t := NewTable(cmd.OutOrStdout(), "ROLE", "NAME", "CONNECTED", "ADDRESS")
	for _, p := range status.Peers {
		address := "-"
		if p.Device != nil {
			address = p.Device.Address
		}
		t.AddRow(string(p.Role), p.Identity, strconv.FormatBool(p.IsConnected), address)
	}
	t.Render()
	fmt.Fprintf(cmd.OutOrStdout(), "controller: %s, companion: %s", status.ControllerState, status.CompanionState)
	if status.CompanionServer {
		fmt.Fprint(cmd.OutOrStdout(), " (relay only)")
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}
