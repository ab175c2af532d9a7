package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kmorganti/dealporter/internal/domain/model"
	"github.com/kmorganti/dealporter/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.LedgerStore = (*LedgerRepo)(nil)

// LedgerRepo is the SQLite implementation of the LedgerStore port interface.
type LedgerRepo struct {
	db *DB
}

// NewLedgerRepo creates a new LedgerRepo backed by the given DB.
func NewLedgerRepo(db *DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

// Has reports whether a record exists for the composite key.
func (r *LedgerRepo) Has(ctx context.Context, sourceDealID, sourceAttachmentID string) (bool, error) {
	const query = `SELECT 1 FROM attachments WHERE zoho_deal_id = ? AND zoho_attachment_id = ?`

	var one int
	err := r.db.Reader.QueryRowContext(ctx, query, sourceDealID, sourceAttachmentID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check ledger record %s/%s: %w", sourceDealID, sourceAttachmentID, err)
	}
	return true, nil
}

// Get returns the record for the composite key, or nil if absent.
func (r *LedgerRepo) Get(ctx context.Context, sourceDealID, sourceAttachmentID string) (*model.MigrationRecord, error) {
	const query = `
		SELECT id, zoho_deal_id, zoho_attachment_id, file_name, file_path,
		       hubspot_attachment_id, hubspot_deal_id, hubspot_note_id, status, created_date
		FROM attachments
		WHERE zoho_deal_id = ? AND zoho_attachment_id = ?
	`

	rec, err := scanRecord(r.db.Reader.QueryRowContext(ctx, query, sourceDealID, sourceAttachmentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger record %s/%s: %w", sourceDealID, sourceAttachmentID, err)
	}

	return rec, nil
}

// InsertDownloaded writes a new record in the downloaded state.
func (r *LedgerRepo) InsertDownloaded(ctx context.Context, rec model.MigrationRecord) error {
	const query = `
		INSERT INTO attachments (zoho_deal_id, zoho_attachment_id, file_name, file_path, status, created_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	created := rec.CreatedDate
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		rec.SourceDealID, rec.SourceAttachmentID, rec.FileName, rec.LocalFilePath,
		string(model.StatusDownloaded), created.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert ledger record %s: %w", rec.Key(), err)
	}

	return nil
}

// MarkUploaded transitions a downloaded record to uploaded, filling in the
// destination-side ids. A record that is already uploaded is left untouched
// and ErrStatusRegression is returned.
func (r *LedgerRepo) MarkUploaded(ctx context.Context, sourceDealID, sourceAttachmentID, fileID, destinationDealID, noteID string) error {
	const query = `
		UPDATE attachments
		SET hubspot_attachment_id = ?, hubspot_deal_id = ?, hubspot_note_id = ?, status = ?
		WHERE zoho_deal_id = ? AND zoho_attachment_id = ? AND status = ?
	`

	result, err := r.db.Writer.ExecContext(ctx, query,
		fileID, destinationDealID, noteID, string(model.StatusUploaded),
		sourceDealID, sourceAttachmentID, string(model.StatusDownloaded),
	)
	if err != nil {
		return fmt.Errorf("mark uploaded %s/%s: %w", sourceDealID, sourceAttachmentID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		// Either the key does not exist or the record is already uploaded.
		exists, err := r.Has(ctx, sourceDealID, sourceAttachmentID)
		if err != nil {
			return err
		}
		if exists {
			return driven.ErrStatusRegression
		}
		return fmt.Errorf("ledger record %s/%s not found", sourceDealID, sourceAttachmentID)
	}

	return nil
}

// UpdateLocalFile replaces the recorded local path of a downloaded record.
func (r *LedgerRepo) UpdateLocalFile(ctx context.Context, sourceDealID, sourceAttachmentID, localPath string) error {
	const query = `
		UPDATE attachments
		SET file_path = ?
		WHERE zoho_deal_id = ? AND zoho_attachment_id = ? AND status = ?
	`

	result, err := r.db.Writer.ExecContext(ctx, query,
		localPath, sourceDealID, sourceAttachmentID, string(model.StatusDownloaded),
	)
	if err != nil {
		return fmt.Errorf("update local file %s/%s: %w", sourceDealID, sourceAttachmentID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("downloaded ledger record %s/%s not found", sourceDealID, sourceAttachmentID)
	}

	return nil
}

// CountByStatus returns the number of records per status.
func (r *LedgerRepo) CountByStatus(ctx context.Context) (map[model.MigrationStatus]int, error) {
	const query = `SELECT status, COUNT(*) FROM attachments GROUP BY status`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count ledger records: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.MigrationStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[model.MigrationStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}

	return counts, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*model.MigrationRecord, error) {
	var rec model.MigrationRecord
	var fileID, dealID, noteID sql.NullString
	var status, createdDate string

	err := s.Scan(
		&rec.ID, &rec.SourceDealID, &rec.SourceAttachmentID, &rec.FileName, &rec.LocalFilePath,
		&fileID, &dealID, &noteID, &status, &createdDate,
	)
	if err != nil {
		return nil, err
	}

	rec.DestinationFileID = fileID.String
	rec.DestinationDealID = dealID.String
	rec.DestinationNoteID = noteID.String
	rec.Status = model.MigrationStatus(status)

	rec.CreatedDate, err = parseTime(createdDate)
	if err != nil {
		return nil, fmt.Errorf("parse created_date: %w", err)
	}

	return &rec, nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
