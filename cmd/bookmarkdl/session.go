package main

import (
	"errors"
	"fmt"
	"time"

	"bookmarkdl/pkg/auth"
	"bookmarkdl/pkg/ui"

	"github.com/spf13/cobra"
)

// sessionCmd manages remembered browser sessions
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage remembered login sessions",
	Long: `Manage the login sessions remembered between runs.

After a successful login the browser cookies are stored under the
configured profile name, using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation

The next run restores them and skips the login hand-off.`,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remembered sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionList,
}

var sessionForgetCmd = &cobra.Command{
	Use:   "forget [profile]",
	Short: "Forget one remembered session (default: the configured profile)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionForget,
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every remembered session",
	Args:  cobra.NoArgs,
	RunE:  runSessionClear,
}

var showCookies bool

func init() {
	sessionListCmd.Flags().BoolVar(&showCookies, "cookies", false, "list the live cookies of each session, values masked")

	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionForgetCmd)
	sessionCmd.AddCommand(sessionClearCmd)
}

func runSessionList(cmd *cobra.Command, args []string) error {
	manager, err := openSessions()
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	sessions, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		ui.PrintWarning("No remembered sessions")
		return nil
	}

	now := time.Now()
	ui.PrintHighlight("Remembered sessions")
	for _, s := range sessions {
		marker := " "
		if s.Profile == cfg.Browser.Profile {
			marker = "*"
		}
		live := len(s.Live(now))
		status := ui.Green(fmt.Sprintf("%d live cookies", live))
		if live == 0 {
			status = ui.Red("expired")
		}
		fmt.Printf(" %s %-16s %-14s saved %s  %s\n",
			marker, s.Profile, s.Domain, s.SavedAt.Format("2006-01-02 15:04"), status)
		if showCookies {
			for _, line := range cookieLines(s, now) {
				fmt.Println("     " + ui.Dim(line))
			}
		}
	}
	return nil
}

// cookieLines describes the live cookies of s without revealing their values
func cookieLines(s *auth.Session, now time.Time) []string {
	var lines []string
	for _, c := range s.Live(now) {
		line := fmt.Sprintf("%s=%s (%s)", c.Name, auth.MaskValue(c.Value), c.Domain)
		if c.Expires > 0 {
			line += " expires " + time.Unix(int64(c.Expires), 0).Format("2006-01-02")
		}
		lines = append(lines, line)
	}
	return lines
}

func runSessionForget(cmd *cobra.Command, args []string) error {
	profile := cfg.Browser.Profile
	if len(args) > 0 {
		profile = args[0]
	}

	manager, err := openSessions()
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	if err := manager.Delete(profile); err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) {
			ui.PrintWarning("No remembered session for profile", profile)
			return nil
		}
		return fmt.Errorf("failed to forget session: %w", err)
	}
	ui.PrintSuccess("Forgot session for profile " + profile)
	return nil
}

func runSessionClear(cmd *cobra.Command, args []string) error {
	manager, err := openSessions()
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	n, err := manager.DeleteAll()
	if err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	ui.PrintSuccess(fmt.Sprintf("Forgot %d session(s)", n))
	return nil
}
