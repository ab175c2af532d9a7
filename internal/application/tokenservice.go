// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kmorganti/dealporter/internal/domain/model"
	"github.com/kmorganti/dealporter/internal/domain/port/driven"
)

// tokenFreshMargin is the minimum remaining lifetime an access token must
// have before it is handed out; anything closer to expiry is refreshed.
const tokenFreshMargin = 300 * time.Second

// AuthSession is one armed callback-listener session. The TokenService waits
// on it for the redirect results of an interactive grant.
type AuthSession interface {
	WaitForCode(ctx context.Context) (string, error)
	WaitForFolder(ctx context.Context) (string, error)
}

// SessionStarter arms the callback listener for one authorization flow keyed
// by the OAuth state parameter.
type SessionStarter func(state string, needsFolder bool) AuthSession

// TokenService provides valid access tokens for both services. It reuses a
// persisted token while it is fresh, refreshes it when it is near expiry, and
// falls back to a full interactive browser grant when refreshing is not
// possible.
type TokenService struct {
	gateway      driven.AuthGateway
	credentials  driven.CredentialStore
	folders      driven.FolderStore
	browser      driven.BrowserOpener
	startSession SessionStarter
	authTimeout  time.Duration
	now          func() time.Time
}

// NewTokenService creates a TokenService with all required dependencies.
func NewTokenService(
	gateway driven.AuthGateway,
	credentials driven.CredentialStore,
	folders driven.FolderStore,
	browser driven.BrowserOpener,
	startSession SessionStarter,
	authTimeout time.Duration,
) *TokenService {
	return &TokenService{
		gateway:      gateway,
		credentials:  credentials,
		folders:      folders,
		browser:      browser,
		startSession: startSession,
		authTimeout:  authTimeout,
		now:          time.Now,
	}
}

// AccessToken returns a usable access token for the service, acquiring or
// refreshing credentials as needed. Every newly acquired TokenSet is
// persisted before the token is returned.
func (s *TokenService) AccessToken(ctx context.Context, service model.Service) (string, error) {
	tokens, err := s.credentials.Load(ctx, service)
	if err != nil && !errors.Is(err, driven.ErrTokenNotFound) {
		return "", fmt.Errorf("loading %s credentials: %w", service, err)
	}

	if err == nil && tokens.Fresh(s.now(), tokenFreshMargin) {
		return tokens.AccessToken, nil
	}

	if tokens.RefreshToken != "" {
		refreshed, err := s.gateway.Refresh(ctx, service, tokens.RefreshToken)
		if err == nil {
			if err := s.credentials.Save(ctx, service, refreshed); err != nil {
				return "", fmt.Errorf("saving %s credentials: %w", service, err)
			}
			slog.Info("access token refreshed", "service", service)
			return refreshed.AccessToken, nil
		}
		slog.Warn("token refresh failed, starting interactive grant", "service", service, "error", err)
	}

	tokens, err = s.interactiveGrant(ctx, service)
	if err != nil {
		return "", err
	}
	return tokens.AccessToken, nil
}

// FolderID returns the persisted destination folder id. It is resolved during
// the destination service's interactive grant; a missing id means that grant
// has to be rerun.
func (s *TokenService) FolderID(ctx context.Context) (string, error) {
	return s.folders.Load(ctx)
}

// interactiveGrant runs the full browser authorization flow: open the
// authorize URL, wait for the redirect to deliver the code, and exchange it
// for a TokenSet. For the destination service a folder id must be known
// before the exchange, collected through the callback form when no persisted
// id exists.
func (s *TokenService) interactiveGrant(ctx context.Context, service model.Service) (model.TokenSet, error) {
	needsFolder := false
	if service == model.ServiceHubSpot {
		if _, err := s.folders.Load(ctx); err != nil {
			if !errors.Is(err, driven.ErrFolderNotSelected) {
				return model.TokenSet{}, fmt.Errorf("loading folder selection: %w", err)
			}
			needsFolder = true
		}
	}

	state := uuid.NewString()
	sess := s.startSession(state, needsFolder)

	authorizeURL := s.gateway.AuthorizeURL(service, state)
	if err := s.browser.OpenURL(authorizeURL); err != nil {
		slog.Warn("could not open browser, open the URL manually", "url", authorizeURL, "error", err)
	}
	slog.Info("waiting for authorization", "service", service)

	waitCtx, cancel := context.WithTimeout(ctx, s.authTimeout)
	defer cancel()

	code, err := sess.WaitForCode(waitCtx)
	if err != nil {
		return model.TokenSet{}, fmt.Errorf("%s authorization: %w", service, err)
	}

	if needsFolder {
		folderID, err := sess.WaitForFolder(waitCtx)
		if err != nil {
			return model.TokenSet{}, fmt.Errorf("%s folder selection: %w", service, err)
		}
		if err := s.folders.Save(ctx, folderID); err != nil {
			return model.TokenSet{}, fmt.Errorf("saving folder selection: %w", err)
		}
		slog.Info("destination folder saved", "folder_id", folderID)
	}

	tokens, err := s.gateway.Exchange(ctx, service, code)
	if err != nil {
		return model.TokenSet{}, fmt.Errorf("%s code exchange: %w", service, err)
	}
	if err := s.credentials.Save(ctx, service, tokens); err != nil {
		return model.TokenSet{}, fmt.Errorf("saving %s credentials: %w", service, err)
	}

	slog.Info("authorization complete", "service", service)
	return tokens, nil
}

// ServiceTokens binds a TokenService to one service so the HTTP connectors
// can pull tokens without knowing which service they serve.
type ServiceTokens struct {
	svc     *TokenService
	service model.Service
}

// For returns a token source fixed to the given service.
func (s *TokenService) For(service model.Service) ServiceTokens {
	return ServiceTokens{svc: s, service: service}
}

// AccessToken implements the connectors' token source interfaces.
func (t ServiceTokens) AccessToken(ctx context.Context) (string, error) {
	return t.svc.AccessToken(ctx, t.service)
}
