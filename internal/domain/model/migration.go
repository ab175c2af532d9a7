package model

import "time"

// MigrationStatus tracks how far an attachment has progressed through the
// download/upload pipeline.
type MigrationStatus string

const (
	// StatusDownloaded means the file exists locally and the ledger row was
	// written, but the destination side has not been completed.
	StatusDownloaded MigrationStatus = "downloaded"
	// StatusUploaded is terminal: file uploaded, deal resolved, note created,
	// local copy removed.
	StatusUploaded MigrationStatus = "uploaded"
)

// MigrationRecord is one row of the migration ledger. The composite natural
// key is (SourceDealID, SourceAttachmentID); the ledger holds at most one
// record per key. Records are never deleted — the ledger doubles as an audit
// trail of everything the tool has moved.
type MigrationRecord struct {
	ID                 int64
	SourceDealID       string
	SourceAttachmentID string
	FileName           string
	LocalFilePath      string
	DestinationFileID  string
	DestinationDealID  string
	DestinationNoteID  string
	Status             MigrationStatus
	CreatedDate        time.Time
}

// Key returns the composite natural key as a printable identifier for logs
// and error messages.
func (r MigrationRecord) Key() string {
	return r.SourceDealID + "/" + r.SourceAttachmentID
}

// RunSummary aggregates per-attachment outcomes for one orchestrator run.
type RunSummary struct {
	Deals      int
	Skipped    int
	Resumed    int
	Downloaded int
	Uploaded   int
	Failed     int
}
