// Package cli defines the dealporter command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dealporter",
	Short: "Migrate CRM deal attachments from Zoho to HubSpot",
	Long: `dealporter downloads every attachment of every Zoho CRM deal, uploads it
to HubSpot Files, and pins it to the matching HubSpot deal with a note.
Progress is recorded in a local SQLite ledger so interrupted runs resume
where they left off instead of duplicating work.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setupLogging installs the default slog handler at the configured level.
func setupLogging(level string) error {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info", "":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}
