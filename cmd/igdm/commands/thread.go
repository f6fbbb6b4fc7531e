package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"igdm/internal/model/api"
	"igdm/internal/model/dm"
)

// thread: show messages in a conversation by thread id or @handle.
func threadCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "thread <id|@handle>",
		Short: "Show messages in a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := apiClient.Thread(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			printThread(resp)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "number of messages")
	return cmd
}

// printThread renders a page oldest first, chat style. The server returns
// newest first.
func printThread(resp api.ThreadResponse) {
	if resp.Title != "" {
		fmt.Println(styleHeader.Render(resp.Title))
	}
	if len(resp.Messages) == 0 {
		fmt.Println(styleMuted.Render("No messages"))
		return
	}
	for i := len(resp.Messages) - 1; i >= 0; i-- {
		printMessage(resp.Messages[i])
	}
}

func printMessage(msg dm.Message) {
	who := styleHandle.Render(msg.SenderPK)
	if msg.IsSentByViewer {
		who = styleViewer.Render("you")
	}

	body := msg.Text
	if body == "" {
		body = styleMuted.Render("[" + msg.ItemType + "]")
	}

	fmt.Printf("%s %s  %s\n", styleMuted.Render(msg.Timestamp.Local().Format("Jan 2 15:04")), who, body)
	if msg.LinkURL != "" {
		fmt.Printf("    %s\n", styleMuted.Render(msg.LinkURL))
	}
}
