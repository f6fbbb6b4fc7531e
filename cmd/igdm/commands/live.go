package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"igdm/internal/model/api"
)

// live <id|@handle>: watch a conversation for new messages until Ctrl-C.
func liveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "live <id|@handle>",
		Short: "Watch a conversation for new messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Println(styleMuted.Render("Watching " + args[0] + " (Ctrl-C to stop)"))
			return apiClient.WatchThread(ctx, args[0], func(event api.WSEvent) {
				switch event.Type {
				case "message":
					if event.Message != nil {
						printMessage(*event.Message)
					}
				case "status":
					if event.Status != "watching" {
						fmt.Println(styleMuted.Render("· " + event.Status))
					}
				}
			})
		},
	}
}
