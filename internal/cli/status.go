package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	sqliteadapter "github.com/kmorganti/dealporter/internal/adapter/driven/sqlite"
	"github.com/kmorganti/dealporter/internal/config"
	"github.com/kmorganti/dealporter/internal/domain/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ledger progress counts",
	Long:  `Prints how many attachments are fully migrated and how many are downloaded but not yet uploaded.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg.LogLevel); err != nil {
		return err
	}

	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}

	counts, err := sqliteadapter.NewLedgerRepo(db).CountByStatus(cmd.Context())
	if err != nil {
		return err
	}

	uploaded := counts[model.StatusUploaded]
	downloaded := counts[model.StatusDownloaded]
	fmt.Printf("Ledger: %s\n", cfg.DBPath)
	fmt.Printf("Migrated:   %d\n", uploaded)
	fmt.Printf("In flight:  %d (downloaded, awaiting upload)\n", downloaded)
	fmt.Printf("Total:      %d\n", uploaded+downloaded)
	return nil
}
