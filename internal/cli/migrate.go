package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kmorganti/dealporter/internal/adapter/driven/hubspot"
	"github.com/kmorganti/dealporter/internal/adapter/driven/jsonfile"
	"github.com/kmorganti/dealporter/internal/adapter/driven/oauth"
	sqliteadapter "github.com/kmorganti/dealporter/internal/adapter/driven/sqlite"
	"github.com/kmorganti/dealporter/internal/adapter/driven/sysbrowser"
	"github.com/kmorganti/dealporter/internal/adapter/driven/zoho"
	"github.com/kmorganti/dealporter/internal/adapter/driving/callback"
	"github.com/kmorganti/dealporter/internal/application"
	"github.com/kmorganti/dealporter/internal/config"
	"github.com/kmorganti/dealporter/internal/domain/model"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run one migration pass over all source deals",
	Long: `Authorizes against both services (opening a browser if no usable
credentials are stored), then walks every Zoho deal and moves each attachment
to HubSpot. Safe to rerun: completed attachments are skipped and interrupted
ones resumed.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg.LogLevel); err != nil {
		return err
	}
	if !cfg.HasOAuthCredentials() {
		return errors.New("OAuth client credentials missing: set DEALPORTER_ZOHO_CLIENT_ID, DEALPORTER_ZOHO_CLIENT_SECRET, DEALPORTER_HUBSPOT_CLIENT_ID and DEALPORTER_HUBSPOT_CLIENT_SECRET")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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
	slog.Info("ledger ready", "path", cfg.DBPath)

	ledger := sqliteadapter.NewLedgerRepo(db)
	credentials := jsonfile.NewTokenStore(cfg.ZohoTokenPath, cfg.HubSpotTokenPath)
	folders := jsonfile.NewFolderStore(cfg.FolderConfigPath)

	gateway := oauth.NewGateway(
		oauth.ClientCredentials{ID: cfg.ZohoClientID, Secret: cfg.ZohoClientSecret},
		oauth.ClientCredentials{ID: cfg.HubSpotClientID, Secret: cfg.HubSpotClientSecret},
		cfg.RedirectURI,
		cfg.ZohoAccountsBase,
		cfg.HubSpotAPIBase,
		cfg.HubSpotAuthURL,
	)

	listener := callback.NewServer(cfg.ListenAddr)
	listener.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := listener.Shutdown(shutdownCtx); shutdownErr != nil {
			slog.Error("error stopping callback listener", "error", shutdownErr)
		}
	}()

	tokenSvc := application.NewTokenService(
		gateway,
		credentials,
		folders,
		sysbrowser.NewOpener(),
		func(state string, needsFolder bool) application.AuthSession {
			return listener.NewSession(state, needsFolder)
		},
		cfg.AuthTimeout,
	)

	// Authorize both services up front so credential problems abort the run
	// before any attachment is touched.
	if _, err := tokenSvc.AccessToken(ctx, model.ServiceZoho); err != nil {
		return fmt.Errorf("zoho authorization: %w", err)
	}
	if _, err := tokenSvc.AccessToken(ctx, model.ServiceHubSpot); err != nil {
		return fmt.Errorf("hubspot authorization: %w", err)
	}

	source := zoho.NewClient(cfg.ZohoAPIBase, cfg.AttachmentsDir, tokenSvc.For(model.ServiceZoho))
	dest := hubspot.NewClient(cfg.HubSpotAPIBase, tokenSvc.For(model.ServiceHubSpot), cfg.NoteOwnerID, cfg.NoteAssociationTypeID)

	migrationSvc := application.NewMigrationService(source, dest, ledger, folders)
	summary, err := migrationSvc.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Deals scanned: %d\n", summary.Deals)
	fmt.Printf("Migrated:      %d (%d resumed)\n", summary.Uploaded, summary.Resumed)
	fmt.Printf("Skipped:       %d\n", summary.Skipped)
	fmt.Printf("Failed:        %d\n", summary.Failed)
	if summary.Failed > 0 {
		fmt.Println("Failed attachments stay in the ledger and will be retried on the next run.")
	}
	return nil
}
