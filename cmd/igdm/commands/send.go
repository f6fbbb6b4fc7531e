package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// send <handle>: message a user, creating the thread if needed.
func sendCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "send <handle>",
		Short: "Send a message to a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := messageText(message)
			if err != nil {
				return err
			}
			resp, err := apiClient.SendToUser(cmd.Context(), args[0], text)
			if err != nil {
				return err
			}
			fmt.Printf("Sent to %s %s\n", styleHandle.Render(args[0]),
				styleMuted.Render(resp.Message.Timestamp.Local().Format("15:04:05")))
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "message text (prompted if omitted)")
	return cmd
}

// reply <thread-id>: message an existing thread.
func replyCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "reply <thread-id>",
		Short: "Reply to an existing conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := messageText(message)
			if err != nil {
				return err
			}
			resp, err := apiClient.SendToThread(cmd.Context(), args[0], text)
			if err != nil {
				return err
			}
			fmt.Printf("Sent %s\n", styleMuted.Render(resp.Message.Timestamp.Local().Format("15:04:05")))
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "message text (prompted if omitted)")
	return cmd
}

func messageText(flagValue string) (string, error) {
	if strings.TrimSpace(flagValue) != "" {
		return flagValue, nil
	}
	fmt.Print("Message: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	text := strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("message text is empty")
	}
	return text, nil
}
