package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"followgraph/pkg/auth"
	"followgraph/pkg/ui"
)

var (
	loginBaseURL string
	logoutAll    bool
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage API credentials",
	Long: `Manage stored API bearer tokens.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (` + auth.TokenEnv + `)

Never share your credentials or config files!`,
}

var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store a bearer token securely",
	Example: `  # Interactive login under the default name
  followgraph auth login

  # Store a second token
  followgraph auth login research`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout [name]",
	Short: "Remove stored credentials",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored credentials",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd, logoutCmd, listCmd)

	loginCmd.Flags().StringVar(&loginBaseURL, "base-url", "", "API base URL to use with this token")
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "remove every stored credential")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	name := ""
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}

	auth.ShowTokenGuide(os.Stdout)
	creds, err := auth.NewPrompter().Credentials(name)
	if err != nil {
		return err
	}
	creds.BaseURL = loginBaseURL

	if err := manager.Store(creds); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	ui.PrintSuccess(fmt.Sprintf("Credentials %q stored", creds.Name))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if logoutAll {
		if err := manager.DeleteAll(); err != nil {
			return err
		}
		ui.PrintSuccess("All stored credentials removed")
		return nil
	}

	name := auth.DefaultName
	if len(args) > 0 {
		name = args[0]
	}
	if err := manager.Delete(name); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Credentials %q removed", name))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	creds, err := manager.List()
	if err != nil {
		return err
	}
	if len(creds) == 0 {
		ui.PrintWarning("No stored credentials", "run 'followgraph auth login'")
		return nil
	}
	ui.Print(ui.CredentialsTable(creds))
	return nil
}
