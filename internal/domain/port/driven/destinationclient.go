package driven

import (
	"context"
	"errors"
)

// ErrDealNotFound indicates no destination deal carries the requested source
// deal id in its custom property.
var ErrDealNotFound = errors.New("no matching destination deal")

// DestinationClient defines the driven port for the destination CRM: file
// upload, source-to-destination deal resolution, and note creation.
type DestinationClient interface {
	// UploadFile performs a multipart upload of the local file into the given
	// destination folder and returns the new file id.
	UploadFile(ctx context.Context, localPath, folderID string) (string, error)

	// FindDealBySourceID resolves a source deal id to the destination deal
	// whose custom property records it, paginating through all destination
	// deals and comparing client-side. Returns ErrDealNotFound when the
	// pagination cursor is exhausted without a match.
	FindDealBySourceID(ctx context.Context, sourceDealID string) (string, error)

	// CreateNote creates a note referencing the uploaded file, associated to
	// the destination deal, with a body naming the originating source deal.
	// Returns the new note id.
	CreateNote(ctx context.Context, fileID, destinationDealID, sourceDealID string) (string, error)
}
