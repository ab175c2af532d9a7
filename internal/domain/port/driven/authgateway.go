package driven

import (
	"context"

	"github.com/kmorganti/dealporter/internal/domain/model"
)

// AuthGateway defines the driven port for the OAuth token endpoints of both
// services. It performs the wire-level grant exchanges; credential caching and
// the interactive flow live in the application layer.
type AuthGateway interface {
	// AuthorizeURL builds the browser authorization URL for the service. The
	// state value is echoed back on the redirect and lets the callback
	// listener reject responses from unrelated flows.
	AuthorizeURL(service model.Service, state string) string

	// Refresh exchanges a refresh token for a new TokenSet.
	Refresh(ctx context.Context, service model.Service, refreshToken string) (model.TokenSet, error)

	// Exchange trades an authorization code for a TokenSet.
	Exchange(ctx context.Context, service model.Service, code string) (model.TokenSet, error)
}

// BrowserOpener defines the driven port for opening the user's browser during
// the interactive authorization flow.
type BrowserOpener interface {
	OpenURL(url string) error
}
