package driven

import (
	"context"
	"errors"

	"github.com/kmorganti/dealporter/internal/domain/model"
)

// ErrTokenNotFound indicates no persisted credential exists for a service.
var ErrTokenNotFound = errors.New("no stored token for service")

// ErrFolderNotSelected indicates no destination folder id has been persisted
// or supplied interactively.
var ErrFolderNotSelected = errors.New("destination folder not selected")

// CredentialStore defines the driven port for persisted OAuth credentials,
// one durable record per service. Save overwrites any existing record.
type CredentialStore interface {
	// Load returns the persisted TokenSet for the service, or ErrTokenNotFound.
	Load(ctx context.Context, service model.Service) (model.TokenSet, error)

	// Save persists the TokenSet for the service, replacing any prior record.
	Save(ctx context.Context, service model.Service, tokens model.TokenSet) error
}

// FolderStore defines the driven port for the single destination folder id,
// resolved once via interactive selection and read-only afterwards.
type FolderStore interface {
	// Load returns the configured folder id, or ErrFolderNotSelected.
	Load(ctx context.Context) (string, error)

	// Save persists the folder id.
	Save(ctx context.Context, folderID string) error
}
