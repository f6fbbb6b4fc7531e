// Package commands implements the igdm CLI: each subcommand is one HTTP
// round trip against the bridge server.
package commands

import (
	"github.com/spf13/cobra"

	"igdm/internal/client"
)

var (
	serverURL string
	apiClient *client.Client
)

// Execute runs the root command.
func Execute() error {
	root := &cobra.Command{
		Use:          "igdm",
		Short:        "Manage your DMs from the terminal",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			apiClient = client.New(serverURL)
		},
	}

	root.PersistentFlags().StringVarP(&serverURL, "server", "s", "",
		"server URL (default "+client.DefaultServerURL+")")

	root.AddCommand(
		loginCmd(),
		logoutCmd(),
		statusCmd(),
		inboxCmd(),
		threadCmd(),
		sendCmd(),
		replyCmd(),
		whoisCmd(),
		liveCmd(),
	)
	return root.Execute()
}
