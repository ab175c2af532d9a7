package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kmorganti/dealporter/internal/domain/model"
	"github.com/kmorganti/dealporter/internal/domain/port/driven"
)

// MigrationService walks every source deal and moves each attachment through
// the download/upload pipeline, consulting the ledger so completed work is
// never repeated. Per-attachment failures are logged and skipped; only
// credential acquisition and ledger failures abort a run.
type MigrationService struct {
	source  driven.SourceClient
	dest    driven.DestinationClient
	ledger  driven.LedgerStore
	folders driven.FolderStore
	now     func() time.Time
}

// NewMigrationService creates a MigrationService with all required
// dependencies.
func NewMigrationService(
	source driven.SourceClient,
	dest driven.DestinationClient,
	ledger driven.LedgerStore,
	folders driven.FolderStore,
) *MigrationService {
	return &MigrationService{
		source:  source,
		dest:    dest,
		ledger:  ledger,
		folders: folders,
		now:     time.Now,
	}
}

// Run executes one migration pass over all source deals. It returns the
// per-attachment outcome counts; a non-nil error means the run was aborted
// and the counts cover only the work done before the abort.
func (s *MigrationService) Run(ctx context.Context) (model.RunSummary, error) {
	var summary model.RunSummary

	folderID, err := s.folders.Load(ctx)
	if err != nil {
		return summary, fmt.Errorf("resolving destination folder: %w", err)
	}

	deals, err := s.source.ListDeals(ctx)
	if err != nil {
		slog.Error("listing source deals failed, nothing to migrate", "error", err)
		return summary, nil
	}
	summary.Deals = len(deals)
	slog.Info("migration run started", "deals", len(deals))

	for _, deal := range deals {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		attachments, err := s.source.ListAttachments(ctx, deal.ID)
		if err != nil {
			slog.Error("listing attachments failed, skipping deal", "deal_id", deal.ID, "error", err)
			continue
		}
		if len(attachments) == 0 {
			slog.Info("deal has no attachments", "deal_id", deal.ID, "deal_name", deal.Name)
			continue
		}

		for _, att := range attachments {
			if err := s.processAttachment(ctx, deal, att, folderID, &summary); err != nil {
				return summary, err
			}
		}
	}

	slog.Info("migration run complete",
		"deals", summary.Deals,
		"skipped", summary.Skipped,
		"resumed", summary.Resumed,
		"downloaded", summary.Downloaded,
		"uploaded", summary.Uploaded,
		"failed", summary.Failed)
	return summary, nil
}

// processAttachment advances one attachment as far as possible. Remote
// failures increment Failed and return nil; a non-nil error is a ledger
// failure that aborts the run.
func (s *MigrationService) processAttachment(ctx context.Context, deal model.Deal, att model.Attachment, folderID string, summary *model.RunSummary) error {
	log := slog.With("deal_id", deal.ID, "attachment_id", att.ID, "file_name", att.FileName)

	rec, err := s.ledger.Get(ctx, deal.ID, att.ID)
	if err != nil {
		return fmt.Errorf("reading ledger for %s/%s: %w", deal.ID, att.ID, err)
	}

	var localPath string
	switch {
	case rec != nil && rec.Status == model.StatusUploaded:
		log.Info("already migrated, skipping")
		summary.Skipped++
		return nil

	case rec != nil:
		// Prior run downloaded this file but never finished the upload side.
		localPath = rec.LocalFilePath
		if _, statErr := os.Stat(localPath); statErr != nil {
			log.Info("resumed file missing locally, re-downloading", "path", localPath)
			localPath, err = s.source.DownloadAttachment(ctx, deal.ID, att.ID, att.FileName)
			if err != nil {
				log.Error("re-download failed", "error", err)
				summary.Failed++
				return nil
			}
			if err := s.ledger.UpdateLocalFile(ctx, deal.ID, att.ID, localPath); err != nil {
				return fmt.Errorf("recording re-download of %s/%s: %w", deal.ID, att.ID, err)
			}
		}
		log.Info("resuming upload of previously downloaded file", "path", localPath)
		summary.Resumed++

	default:
		localPath, err = s.source.DownloadAttachment(ctx, deal.ID, att.ID, att.FileName)
		if errors.Is(err, driven.ErrNoContent) {
			log.Warn("attachment has no content, skipping")
			summary.Skipped++
			return nil
		}
		if err != nil {
			log.Error("download failed", "error", err)
			summary.Failed++
			return nil
		}
		rec := model.MigrationRecord{
			SourceDealID:       deal.ID,
			SourceAttachmentID: att.ID,
			FileName:           att.FileName,
			LocalFilePath:      localPath,
			Status:             model.StatusDownloaded,
			CreatedDate:        s.now().UTC(),
		}
		if err := s.ledger.InsertDownloaded(ctx, rec); err != nil {
			return fmt.Errorf("recording download of %s: %w", rec.Key(), err)
		}
		log.Info("downloaded", "path", localPath)
		summary.Downloaded++
	}

	fileID, err := s.dest.UploadFile(ctx, localPath, folderID)
	if err != nil {
		log.Error("upload failed, local file kept for resume", "error", err)
		summary.Failed++
		return nil
	}

	destDealID, err := s.dest.FindDealBySourceID(ctx, deal.ID)
	if err != nil {
		log.Error("destination deal lookup failed, local file kept for resume", "error", err)
		summary.Failed++
		return nil
	}

	noteID, err := s.dest.CreateNote(ctx, fileID, destDealID, deal.ID)
	if err != nil {
		log.Error("note creation failed, local file kept for resume", "error", err)
		summary.Failed++
		return nil
	}

	if err := s.ledger.MarkUploaded(ctx, deal.ID, att.ID, fileID, destDealID, noteID); err != nil {
		return fmt.Errorf("recording upload of %s/%s: %w", deal.ID, att.ID, err)
	}

	if err := os.Remove(localPath); err != nil {
		log.Warn("could not remove local copy", "path", localPath, "error", err)
	}

	log.Info("migrated", "file_id", fileID, "destination_deal_id", destDealID, "note_id", noteID)
	summary.Uploaded++
	return nil
}
