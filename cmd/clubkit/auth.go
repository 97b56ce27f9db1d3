package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"syscall"

	"clubkit/pkg/auth"
	"clubkit/pkg/ui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage directory logins",
	Long: `Manage stored club kit directory logins.

Logins are stored in:
  - the system keychain (when available)
  - an encrypted file with a PBKDF2-derived key

CLUBKIT_USERNAME and CLUBKIT_PASSWORD are also read, but never written.`,
}

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store a directory login",
	Long: `Store the username and password you sign in to the directory with.

The password is read without echo.`,
	Example: `  # Interactive login
  clubkit auth login

  # Login with username
  clubkit auth login rider@example.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout <username>",
	Short: "Remove a stored login",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored logins",
	RunE:  runList,
}

var helpLoginCmd = &cobra.Command{
	Use:   "where",
	Short: "Explain where the crawler looks for a login",
	Run: func(cmd *cobra.Command, args []string) {
		auth.WriteCredentialHelp(cmd.OutOrStdout())
	},
}

var logoutAll bool

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
	authCmd.AddCommand(helpLoginCmd)

	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "remove every stored login")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	var username string
	if len(args) > 0 {
		username = strings.TrimSpace(args[0])
	}
	if username == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Username: ")
		input, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			ui.PrintError("Failed to read username", err.Error())
			return err
		}
		username = strings.TrimSpace(input)
	}
	if username == "" {
		ui.PrintError("Username is required")
		return fmt.Errorf("username is required")
	}

	if existing, _ := manager.Retrieve(username); existing != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Login '%s' already exists. Replace it? (y/N): ", username)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	fmt.Fprint(cmd.OutOrStdout(), "Password: ")
	password, err := readPassword(reader)
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		ui.PrintError("Failed to read password", err.Error())
		return err
	}
	if password == "" {
		ui.PrintError("Password is required")
		return fmt.Errorf("password is required")
	}

	if err := manager.Store(&auth.Account{Username: username, Password: password}); err != nil {
		ui.PrintError("Failed to store login", err.Error())
		return err
	}

	ui.PrintSuccess("Login saved: " + username)
	fmt.Fprintf(cmd.OutOrStdout(), "\nStart a crawl with:\n  clubkit crawl --account %s\n", username)
	return nil
}

// readPassword reads without echo from a terminal, or a plain line otherwise
func readPassword(reader *bufio.Reader) (string, error) {
	fd := int(syscall.Stdin)
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}

	if logoutAll {
		if err := manager.DeleteAll(); err != nil {
			ui.PrintError("Failed to remove logins", err.Error())
			return err
		}
		ui.PrintSuccess("All stored logins removed")
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("give a username or --all")
	}

	if err := manager.Delete(args[0]); err != nil {
		ui.PrintError("Failed to remove login", err.Error())
		return err
	}
	ui.PrintSuccess("Login removed: " + args[0])
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list logins", err.Error())
		return err
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored logins", "use 'clubkit auth login' to add one")
		return nil
	}

	ui.PrintHighlight("Stored logins")
	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, sanitized.Username)
		fmt.Fprintf(cmd.OutOrStdout(), "   Password: %s\n", sanitized.Password)
		fmt.Fprintf(cmd.OutOrStdout(), "   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
	}
	return nil
}
