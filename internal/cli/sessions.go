// internal/cli/sessions.go
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wpitallo/crawlee/internal/auth"
	"github.com/wpitallo/crawlee/internal/ui"
)

var sessionsDeleteYes bool

// sessionsCmd represents the sessions command
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved authentication sessions",
	Long: `List, view, and delete saved authentication sessions.

Sessions hold cookies and headers for crawling content behind a login. They
are stored in your OS keyring, or as files when no keyring is available.
Use a session with the --session flag on run.`,
	Example: `  # List all saved sessions
  crawlee sessions list

  # View details of a specific session
  crawlee sessions view github

  # Import cookies exported from your browser
  crawlee sessions import github --url=https://github.com < cookies.json

  # Delete a session
  crawlee sessions delete github`,
	Annotations: map[string]string{standaloneAnnotation: "true"},
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved sessions",
	RunE:  runSessionsList,
}

var sessionsViewCmd = &cobra.Command{
	Use:   "view <session-name>",
	Short: "View details of a saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsView,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-name>",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsViewCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)

	sessionsDeleteCmd.Flags().BoolVarP(&sessionsDeleteYes, "yes", "y", false, "Delete without asking for confirmation")
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	sessions, err := auth.ListSessions()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("\nNo saved sessions found.")
		fmt.Println("\nCreate one by importing browser cookies:")
		fmt.Println("  crawlee sessions import <name> --url=<site> < cookies.json")
		fmt.Println()
		return nil
	}

	fmt.Printf("\n%s (%d)\n\n", ui.Bold("Saved sessions"), len(sessions))

	for i, name := range sessions {
		fmt.Printf("%s\n", ui.Accent(name))

		session, err := auth.LoadSession(name)
		if err != nil {
			fmt.Printf("  %s %v\n", ui.Error("unreadable:"), err)
			continue
		}

		fmt.Printf("  URL:     %s\n", session.URL)
		fmt.Printf("  Cookies: %d\n", len(session.Cookies))
		fmt.Printf("  Created: %s\n", session.CreatedAt.Format(time.RFC1123))
		if !session.ExpiresAt.IsZero() {
			if session.Expired() {
				fmt.Printf("  Status:  %s\n", ui.Warn(fmt.Sprintf("expired %s ago", time.Since(session.ExpiresAt).Round(time.Hour))))
			} else {
				fmt.Printf("  Expires: %s\n", session.ExpiresAt.Format(time.RFC1123))
			}
		}

		if i < len(sessions)-1 {
			fmt.Println()
		}
	}

	fmt.Println()
	return nil
}

func runSessionsView(cmd *cobra.Command, args []string) error {
	name := args[0]

	session, err := auth.LoadSession(name)
	if err != nil {
		return fmt.Errorf("failed to load session '%s': %w", name, err)
	}

	fmt.Printf("\n%s\n\n", ui.Bold("Session "+name))
	fmt.Printf("URL:      %s\n", session.URL)
	fmt.Printf("Created:  %s\n", session.CreatedAt.Format(time.RFC1123))
	if !session.ExpiresAt.IsZero() {
		fmt.Printf("Expires:  %s\n", session.ExpiresAt.Format(time.RFC1123))
	}

	fmt.Printf("\nCookies (%d):\n", len(session.Cookies))
	for i, cookie := range session.Cookies {
		if i >= 5 {
			fmt.Printf("  ... and %d more\n", len(session.Cookies)-5)
			break
		}
		fmt.Printf("  %s (domain: %s)\n", cookie.Name, cookie.Domain)
	}

	if len(session.Headers) > 0 {
		fmt.Printf("\nHeaders (%d):\n", len(session.Headers))
		for key, value := range session.Headers {
			fmt.Printf("  %s: %s\n", key, value)
		}
	}

	fmt.Println()
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	name := args[0]

	if !sessionsDeleteYes {
		fmt.Printf("Delete session '%s'? [y/N]: ", name)
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "y" && confirm != "Y" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := auth.DeleteSessionWithManifest(name); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	fmt.Printf("%s Session '%s' deleted.\n", ui.Success("✓"), name)
	return nil
}
