package driven

import (
	"context"
	"errors"

	"github.com/kmorganti/dealporter/internal/domain/model"
)

// ErrStatusRegression indicates an attempted transition from uploaded back to
// downloaded, which the ledger forbids.
var ErrStatusRegression = errors.New("migration record cannot regress from uploaded")

// LedgerStore defines the driven port for the durable migration ledger. One
// record per (source deal id, source attachment id); uniqueness is enforced at
// this boundary via Has before InsertDownloaded, not by the storage schema.
// No deletion is exposed — the ledger is an append/update-only audit trail.
type LedgerStore interface {
	// Has reports whether a record exists for the composite key.
	Has(ctx context.Context, sourceDealID, sourceAttachmentID string) (bool, error)

	// Get returns the record for the composite key, or nil if absent.
	Get(ctx context.Context, sourceDealID, sourceAttachmentID string) (*model.MigrationRecord, error)

	// InsertDownloaded writes a new record in the downloaded state. Callers
	// must verify the key is absent first (Has or Get); inserting an existing
	// key is a ledger integrity violation.
	InsertDownloaded(ctx context.Context, rec model.MigrationRecord) error

	// MarkUploaded transitions a downloaded record to uploaded, filling in the
	// three destination-side ids. Returns ErrStatusRegression if the record is
	// already uploaded.
	MarkUploaded(ctx context.Context, sourceDealID, sourceAttachmentID, fileID, destinationDealID, noteID string) error

	// UpdateLocalFile replaces the recorded local path of a downloaded record,
	// used when a resumed run has to re-download a missing file.
	UpdateLocalFile(ctx context.Context, sourceDealID, sourceAttachmentID, localPath string) error

	// CountByStatus returns the number of records per status.
	CountByStatus(ctx context.Context) (map[model.MigrationStatus]int, error)
}
