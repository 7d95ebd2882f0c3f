// internal/cli/sessions_import.go
package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wpitallo/crawlee/internal/auth"
	"github.com/wpitallo/crawlee/internal/ui"
)

var (
	importURL    string
	importFormat string
	importFile   string
)

// sessionsImportCmd represents the sessions import command
var sessionsImportCmd = &cobra.Command{
	Use:   "import <session-name>",
	Short: "Import cookies from your browser to create a session",
	Long: `Create an authenticated session from cookies exported out of a browser.

Log in to the site normally, export the cookies (a DevTools extension that
produces JSON, or curl's Netscape cookies.txt format), and pipe the file into
this command. The resulting session can then be used with --session on run.`,
	Example: `  # Import a DevTools JSON export
  crawlee sessions import github --url=https://github.com < cookies.json

  # Import a Netscape/curl cookies.txt
  crawlee sessions import github --url=https://github.com --format=netscape < cookies.txt

  # Read from a file instead of stdin
  crawlee sessions import github --url=https://github.com --file=cookies.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionsImport,
}

func init() {
	sessionsCmd.AddCommand(sessionsImportCmd)

	sessionsImportCmd.Flags().StringVar(&importURL, "url", "", "Website URL for this session (required)")
	sessionsImportCmd.Flags().StringVar(&importFormat, "format", "json", "Import format: json or netscape")
	sessionsImportCmd.Flags().StringVar(&importFile, "file", "", "Read cookies from this file instead of stdin")
	sessionsImportCmd.MarkFlagRequired("url")
}

func runSessionsImport(cmd *cobra.Command, args []string) error {
	sessionName := args[0]

	input := io.Reader(os.Stdin)
	if importFile != "" {
		f, err := os.Open(importFile)
		if err != nil {
			return fmt.Errorf("failed to open cookie file: %w", err)
		}
		defer f.Close()
		input = f
	}

	var cookies []auth.Cookie
	var err error
	switch importFormat {
	case "json":
		cookies, err = importCookiesJSON(input)
	case "netscape":
		cookies, err = importCookiesNetscape(input)
	default:
		return fmt.Errorf("unsupported format: %s (use: json, netscape)", importFormat)
	}
	if err != nil {
		return fmt.Errorf("failed to import cookies: %w", err)
	}
	if len(cookies) == 0 {
		return fmt.Errorf("no cookies found in input")
	}

	session := &auth.SessionData{
		Name:      sessionName,
		URL:       importURL,
		Cookies:   cookies,
		Headers:   make(map[string]string),
		CreatedAt: time.Now(),
	}

	// The session is only usable until its shortest-lived cookie expires.
	var earliest time.Time
	for _, c := range cookies {
		if c.Expires <= 0 {
			continue
		}
		expiry := time.Unix(int64(c.Expires), 0)
		if earliest.IsZero() || expiry.Before(earliest) {
			earliest = expiry
		}
	}
	if !earliest.IsZero() {
		session.ExpiresAt = earliest
	}

	if err := auth.SaveSessionWithManifest(session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Printf("\n%s Session '%s' created with %d cookies.\n", ui.Success("✓"), sessionName, len(cookies))
	if !session.ExpiresAt.IsZero() {
		fmt.Printf("  Expires: %s\n", session.ExpiresAt.Format(time.RFC1123))
	}
	fmt.Printf("\nUse it with:\n  crawlee run <url> --session=%s\n\n", sessionName)

	return nil
}

// importCookiesJSON reads a DevTools-style JSON cookie array.
func importCookiesJSON(r io.Reader) ([]auth.Cookie, error) {
	var cookies []auth.Cookie
	if err := json.NewDecoder(r).Decode(&cookies); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return cookies, nil
}

// importCookiesNetscape reads the Netscape cookies.txt format used by curl
// and wget: seven tab-separated fields per line, expiry in unix seconds.
func importCookiesNetscape(r io.Reader) ([]auth.Cookie, error) {
	var cookies []auth.Cookie
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 7 {
			continue
		}

		cookie := auth.Cookie{
			Domain: fields[0],
			Path:   fields[2],
			Secure: strings.EqualFold(fields[3], "TRUE"),
			Name:   fields[5],
			Value:  fields[6],
		}
		if secs, err := strconv.ParseInt(fields[4], 10, 64); err == nil && secs > 0 {
			cookie.Expires = float64(secs)
		}

		cookies = append(cookies, cookie)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cookies, nil
}
