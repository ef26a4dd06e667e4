package auth

import (
	"fmt"

	"github.com/devplane-io/devplane/cmd/cli/config"
	"github.com/spf13/cobra"
)

// InitAuth registers register, login, and logout on the root command.
func InitAuth(rootCmd *cobra.Command) {
	rootCmd.AddCommand(registerCmd(), loginCmd(), logoutCmd())
}

func registerCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on the devplane API",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds := map[string]string{"username": username, "password": password}
			if err := config.Do("POST", "/auth/register", creds, nil); err != nil {
				return err
			}
			fmt.Printf("Registered %s. Run `devplane login` to get a token.\n", username)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username to register")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")

	return cmd
}

func loginCmd() *cobra.Command {
	var username, password string
	var register bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the devplane API",
		Long:  "Authenticate and store a JWT token for subsequent CLI commands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("username is required")
			}

			creds := map[string]string{"username": username, "password": password}

			if register {
				if err := config.Do("POST", "/auth/register", creds, nil); err != nil {
					return fmt.Errorf("register: %w", err)
				}
			}

			var loginResp struct {
				Token string `json:"token"`
			}
			if err := config.Do("POST", "/auth/login", creds, &loginResp); err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if loginResp.Token == "" {
				return fmt.Errorf("login succeeded but no token returned")
			}

			if err := config.SaveToken(loginResp.Token); err != nil {
				return fmt.Errorf("save token: %w", err)
			}

			fmt.Println("Login successful. Token stored locally.")
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username to authenticate as")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	cmd.Flags().BoolVar(&register, "register", false, "Register the user before logging in")

	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the locally stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.DeleteToken(); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}
