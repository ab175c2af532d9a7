package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmorganti/dealporter/internal/domain/model"
	"github.com/kmorganti/dealporter/internal/domain/port/driven"
)

func makeRecord(dealID, attachmentID, fileName string) model.MigrationRecord {
	return model.MigrationRecord{
		SourceDealID:       dealID,
		SourceAttachmentID: attachmentID,
		FileName:           fileName,
		LocalFilePath:      "attachments/" + fileName,
		CreatedDate:        time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
	}
}

func TestLedgerRepo_InsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.InsertDownloaded(ctx, makeRecord("D1", "A1", "invoice.pdf")))

	got, err := repo.Get(ctx, "D1", "A1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "D1", got.SourceDealID)
	assert.Equal(t, "A1", got.SourceAttachmentID)
	assert.Equal(t, "invoice.pdf", got.FileName)
	assert.Equal(t, "attachments/invoice.pdf", got.LocalFilePath)
	assert.Equal(t, model.StatusDownloaded, got.Status)
	assert.Empty(t, got.DestinationFileID)
	assert.Empty(t, got.DestinationDealID)
	assert.Empty(t, got.DestinationNoteID)
}

func TestLedgerRepo_Get_Absent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepo(db)

	got, err := repo.Get(context.Background(), "D1", "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLedgerRepo_Has(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepo(db)
	ctx := context.Background()

	ok, err := repo.Has(ctx, "D1", "A1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.InsertDownloaded(ctx, makeRecord("D1", "A1", "invoice.pdf")))

	ok, err = repo.Has(ctx, "D1", "A1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedgerRepo_MarkUploaded(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.InsertDownloaded(ctx, makeRecord("D1", "A1", "invoice.pdf")))
	require.NoError(t, repo.MarkUploaded(ctx, "D1", "A1", "file-9", "deal-7", "note-3"))

	got, err := repo.Get(ctx, "D1", "A1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, model.StatusUploaded, got.Status)
	assert.Equal(t, "file-9", got.DestinationFileID)
	assert.Equal(t, "deal-7", got.DestinationDealID)
	assert.Equal(t, "note-3", got.DestinationNoteID)
}

func TestLedgerRepo_MarkUploaded_NoRegression(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.InsertDownloaded(ctx, makeRecord("D1", "A1", "invoice.pdf")))
	require.NoError(t, repo.MarkUploaded(ctx, "D1", "A1", "file-9", "deal-7", "note-3"))

	// A second transition must not overwrite the uploaded record.
	err := repo.MarkUploaded(ctx, "D1", "A1", "file-X", "deal-X", "note-X")
	require.ErrorIs(t, err, driven.ErrStatusRegression)

	got, err := repo.Get(ctx, "D1", "A1")
	require.NoError(t, err)
	assert.Equal(t, "file-9", got.DestinationFileID)
}

func TestLedgerRepo_MarkUploaded_Missing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepo(db)

	err := repo.MarkUploaded(context.Background(), "D1", "nope", "f", "d", "n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLedgerRepo_UpdateLocalFile(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.InsertDownloaded(ctx, makeRecord("D1", "A1", "invoice.pdf")))
	require.NoError(t, repo.UpdateLocalFile(ctx, "D1", "A1", "attachments/invoice_1.pdf"))

	got, err := repo.Get(ctx, "D1", "A1")
	require.NoError(t, err)
	assert.Equal(t, "attachments/invoice_1.pdf", got.LocalFilePath)
}

func TestLedgerRepo_UpdateLocalFile_UploadedRecordRejected(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.InsertDownloaded(ctx, makeRecord("D1", "A1", "invoice.pdf")))
	require.NoError(t, repo.MarkUploaded(ctx, "D1", "A1", "f", "d", "n"))

	err := repo.UpdateLocalFile(ctx, "D1", "A1", "attachments/other.pdf")
	require.Error(t, err)
}

func TestLedgerRepo_CountByStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.InsertDownloaded(ctx, makeRecord("D1", "A1", "a.pdf")))
	require.NoError(t, repo.InsertDownloaded(ctx, makeRecord("D1", "A2", "b.pdf")))
	require.NoError(t, repo.InsertDownloaded(ctx, makeRecord("D2", "A3", "c.pdf")))
	require.NoError(t, repo.MarkUploaded(ctx, "D1", "A2", "f", "d", "n"))

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, counts[model.StatusDownloaded])
	assert.Equal(t, 1, counts[model.StatusUploaded])
}
