package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/earthbuild/hello-earthly/pkg/probe"
)

var errNotListening = errors.New("nothing listening")

func newProbeCommand(a *app) *cobra.Command {
	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Check whether a server is already listening on the port",
		Long: `Make a single TCP connection attempt to host:port and print "open" or
"closed". Exits non-zero when the port is closed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := a.cfg.ProbeAddress()
			if !probe.IsOpen(cmd.Context(), addr, a.cfg.ProbeTimeout) {
				fmt.Fprintln(cmd.OutOrStdout(), "closed")
				return fmt.Errorf("%s: %w", addr, errNotListening)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "open")
			return nil
		},
	}

	probeCmd.Flags().Duration("probe-timeout", probe.DefaultTimeout, "Connection attempt timeout")
	a.bindFlags(probeCmd, "probe-timeout")

	return probeCmd
}
