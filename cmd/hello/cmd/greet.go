package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/earthbuild/hello-earthly/pkg/client"
	"github.com/earthbuild/hello-earthly/pkg/greeting"
)

func newGreetCommand(a *app) *cobra.Command {
	var (
		who     string
		baseURL string
		local   bool
	)

	greetCmd := &cobra.Command{
		Use:   "greet",
		Short: "Ask a running hello server for a greeting",
		Long: `Call GET /hello on a running server and print the greeting.

With --local the greeting is formatted in-process without any network call.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if local {
				fmt.Fprintln(cmd.OutOrStdout(), greeting.SayHello(who))
				return nil
			}

			if baseURL == "" {
				baseURL = a.cfg.BaseURL()
			}
			resp, err := client.New(baseURL).Hello(cmd.Context(), who)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Body)
			return nil
		},
	}

	flags := greetCmd.Flags()
	flags.StringVar(&who, "who", "", "Name to greet")
	flags.StringVar(&baseURL, "url", "", "Server base URL (default derived from --host and --port)")
	flags.BoolVar(&local, "local", false, "Format the greeting locally")

	return greetCmd
}
