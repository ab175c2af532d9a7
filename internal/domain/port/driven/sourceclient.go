// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"

	"github.com/kmorganti/dealporter/internal/domain/model"
)

// ErrNoContent indicates the remote service answered 204 for an attachment
// download — there is nothing to migrate for that item.
var ErrNoContent = errors.New("attachment has no content")

// SourceClient defines the driven port for the source CRM: listing deals,
// listing their attachments, and streaming attachment bodies to local disk.
type SourceClient interface {
	// ListDeals returns all deals visible to the authorized user. A remote
	// failure is returned as an error; callers treat it as "nothing to migrate".
	ListDeals(ctx context.Context) ([]model.Deal, error)

	// ListAttachments returns the attachments of one deal. An empty slice (not
	// an error) is returned when the deal has none.
	ListAttachments(ctx context.Context, dealID string) ([]model.Attachment, error)

	// DownloadAttachment streams an attachment body into the working directory
	// and returns the local path it was written to. The final filename may
	// differ from suggestedName: the server-supplied content-disposition name
	// wins, and local collisions are disambiguated with numeric suffixes.
	// Returns ErrNoContent when the server answers 204.
	DownloadAttachment(ctx context.Context, dealID, attachmentID, suggestedName string) (string, error)
}
