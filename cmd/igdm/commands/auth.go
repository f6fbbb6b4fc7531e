package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// login: prompt for missing credentials, encrypt the password under the
// server's public key, and authenticate.
func loginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in (password is encrypted before transmission)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				fmt.Print("Username: ")
				reader := bufio.NewReader(os.Stdin)
				line, err := reader.ReadString('\n')
				if err != nil {
					return err
				}
				username = strings.TrimSpace(line)
			}
			if username == "" {
				return fmt.Errorf("username is required")
			}

			if password == "" {
				fmt.Print("Password: ")
				raw, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Println()
				if err != nil {
					return err
				}
				password = string(raw)
			}

			resp, err := apiClient.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}

			fmt.Println(styleHeader.Render("Logged in"))
			fmt.Printf("%s %s\n", styleHandle.Render("@"+resp.Handle), styleMuted.Render(resp.DisplayName))
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "username (prompted if omitted)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted securely if omitted)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear the server's saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server status and authentication state",
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := apiClient.Health(cmd.Context())
			if err != nil {
				return err
			}
			if health.Authenticated {
				fmt.Printf("Server %s, logged in as %s\n",
					health.Status, styleHandle.Render("@"+health.Username))
			} else {
				fmt.Printf("Server %s, %s\n", health.Status, styleMuted.Render("not logged in"))
			}
			return nil
		},
	}
}
