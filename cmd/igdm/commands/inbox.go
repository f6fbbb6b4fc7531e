package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// inbox: list conversations, optionally unread only.
func inboxCmd() *cobra.Command {
	var (
		limit  int
		unread bool
	)

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := apiClient.Inbox(cmd.Context(), limit, unread)
			if err != nil {
				return err
			}

			if len(resp.Conversations) == 0 {
				fmt.Println(styleMuted.Render("Inbox is empty"))
				return nil
			}

			fmt.Println(styleHeader.Render("Inbox"))
			for i, conv := range resp.Conversations {
				marker := "  "
				title := conv.Title
				if conv.HasUnread {
					marker = styleUnread.Render("● ")
					title = styleUnread.Render(title)
				}
				fmt.Printf("%2d. %s%s  %s\n", i+1, marker, title,
					styleMuted.Render(relativeTime(conv.LastActivityAt)))
				if conv.LastMessageText != "" {
					fmt.Printf("      %s\n", styleMuted.Render(truncate(conv.LastMessageText, 70)))
				}
				fmt.Printf("      %s\n", styleMuted.Render("id: "+conv.ThreadID))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "number of conversations")
	cmd.Flags().BoolVarP(&unread, "unread", "u", false, "unread conversations only")
	return cmd
}

func whoisCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whois <handle>",
		Short: "Look up a user by handle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := apiClient.User(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			u := resp.User
			fmt.Printf("%s %s\n", styleHandle.Render("@"+u.Username), u.FullName)
			details := "public"
			if u.IsPrivate {
				details = "private"
			}
			if u.IsVerified {
				details += ", verified"
			}
			fmt.Println(styleMuted.Render(details + " · id " + u.PK))
			return nil
		},
	}
}
