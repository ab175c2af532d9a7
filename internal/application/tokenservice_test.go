package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmorganti/dealporter/internal/application"
	"github.com/kmorganti/dealporter/internal/domain/model"
	"github.com/kmorganti/dealporter/internal/domain/port/driven"
)

type mockGateway struct {
	refreshTokens  model.TokenSet
	refreshErr     error
	refreshCalls   int
	exchangeTokens model.TokenSet
	exchangeErr    error
	exchangeCodes  []string
}

func (m *mockGateway) AuthorizeURL(service model.Service, state string) string {
	return "https://auth.example/" + string(service) + "?state=" + state
}

func (m *mockGateway) Refresh(_ context.Context, _ model.Service, _ string) (model.TokenSet, error) {
	m.refreshCalls++
	return m.refreshTokens, m.refreshErr
}

func (m *mockGateway) Exchange(_ context.Context, _ model.Service, code string) (model.TokenSet, error) {
	m.exchangeCodes = append(m.exchangeCodes, code)
	return m.exchangeTokens, m.exchangeErr
}

type mockCredStore struct {
	tokens map[model.Service]model.TokenSet
	saves  []model.Service
}

func newMockCredStore() *mockCredStore {
	return &mockCredStore{tokens: make(map[model.Service]model.TokenSet)}
}

func (m *mockCredStore) Load(_ context.Context, service model.Service) (model.TokenSet, error) {
	ts, ok := m.tokens[service]
	if !ok {
		return model.TokenSet{}, driven.ErrTokenNotFound
	}
	return ts, nil
}

func (m *mockCredStore) Save(_ context.Context, service model.Service, tokens model.TokenSet) error {
	m.tokens[service] = tokens
	m.saves = append(m.saves, service)
	return nil
}

type mockBrowser struct {
	opened  []string
	openErr error
}

func (m *mockBrowser) OpenURL(url string) error {
	m.opened = append(m.opened, url)
	return m.openErr
}

type mockSession struct {
	code      string
	codeErr   error
	folder    string
	folderErr error
}

func (m *mockSession) WaitForCode(_ context.Context) (string, error) {
	return m.code, m.codeErr
}

func (m *mockSession) WaitForFolder(_ context.Context) (string, error) {
	return m.folder, m.folderErr
}

type sessionRecorder struct {
	session     *mockSession
	states      []string
	needsFolder []bool
}

func (r *sessionRecorder) start(state string, needsFolder bool) application.AuthSession {
	r.states = append(r.states, state)
	r.needsFolder = append(r.needsFolder, needsFolder)
	return r.session
}

type tokenFixture struct {
	gateway     *mockGateway
	credentials *mockCredStore
	folders     *mockFolders
	browser     *mockBrowser
	recorder    *sessionRecorder
	svc         *application.TokenService
}

func newTokenFixture() *tokenFixture {
	f := &tokenFixture{
		gateway:     &mockGateway{},
		credentials: newMockCredStore(),
		folders:     &mockFolders{loadErr: driven.ErrFolderNotSelected},
		browser:     &mockBrowser{},
		recorder:    &sessionRecorder{session: &mockSession{code: "auth-code", folder: "folder-9"}},
	}
	f.svc = application.NewTokenService(
		f.gateway, f.credentials, f.folders, f.browser, f.recorder.start, time.Minute)
	return f
}

func TestTokenService_AccessToken_ReturnsFreshToken(t *testing.T) {
	f := newTokenFixture()
	f.credentials.tokens[model.ServiceZoho] = model.TokenSet{
		AccessToken: "fresh-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}

	token, err := f.svc.AccessToken(context.Background(), model.ServiceZoho)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
	assert.Zero(t, f.gateway.refreshCalls)
	assert.Empty(t, f.browser.opened)
}

func TestTokenService_AccessToken_RefreshesNearExpiry(t *testing.T) {
	f := newTokenFixture()
	// Still valid for a minute, but inside the safety margin.
	f.credentials.tokens[model.ServiceZoho] = model.TokenSet{
		AccessToken:  "stale-token",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Minute),
	}
	f.gateway.refreshTokens = model.TokenSet{
		AccessToken:  "new-token",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}

	token, err := f.svc.AccessToken(context.Background(), model.ServiceZoho)
	require.NoError(t, err)
	assert.Equal(t, "new-token", token)
	assert.Equal(t, 1, f.gateway.refreshCalls)
	assert.Equal(t, []model.Service{model.ServiceZoho}, f.credentials.saves)
	assert.Empty(t, f.browser.opened)
}

func TestTokenService_AccessToken_InteractiveWhenNoCredentials(t *testing.T) {
	f := newTokenFixture()
	f.gateway.exchangeTokens = model.TokenSet{
		AccessToken:  "granted-token",
		RefreshToken: "refresh-new",
		ExpiresAt:    time.Now().Add(time.Hour),
	}

	token, err := f.svc.AccessToken(context.Background(), model.ServiceZoho)
	require.NoError(t, err)
	assert.Equal(t, "granted-token", token)

	require.Len(t, f.browser.opened, 1)
	require.Len(t, f.recorder.states, 1)
	assert.True(t, strings.HasSuffix(f.browser.opened[0], "?state="+f.recorder.states[0]),
		"authorize URL must carry the session state")
	assert.Equal(t, []bool{false}, f.recorder.needsFolder)
	assert.Equal(t, []string{"auth-code"}, f.gateway.exchangeCodes)
	assert.Equal(t, "granted-token", f.credentials.tokens[model.ServiceZoho].AccessToken)
}

func TestTokenService_AccessToken_InteractiveAfterFailedRefresh(t *testing.T) {
	f := newTokenFixture()
	f.credentials.tokens[model.ServiceZoho] = model.TokenSet{
		AccessToken:  "expired",
		RefreshToken: "revoked",
		ExpiresAt:    time.Now().Add(-time.Hour),
	}
	f.gateway.refreshErr = errors.New("invalid_grant")
	f.gateway.exchangeTokens = model.TokenSet{AccessToken: "granted-token"}

	token, err := f.svc.AccessToken(context.Background(), model.ServiceZoho)
	require.NoError(t, err)
	assert.Equal(t, "granted-token", token)
	assert.Equal(t, 1, f.gateway.refreshCalls)
	assert.Len(t, f.browser.opened, 1)
}

func TestTokenService_AccessToken_HubSpotCollectsFolder(t *testing.T) {
	f := newTokenFixture()
	f.gateway.exchangeTokens = model.TokenSet{AccessToken: "hs-token"}

	token, err := f.svc.AccessToken(context.Background(), model.ServiceHubSpot)
	require.NoError(t, err)
	assert.Equal(t, "hs-token", token)
	assert.Equal(t, []bool{true}, f.recorder.needsFolder)
	assert.Equal(t, "folder-9", f.folders.folderID)
}

func TestTokenService_AccessToken_HubSpotSkipsFolderWhenPersisted(t *testing.T) {
	f := newTokenFixture()
	f.folders.loadErr = nil
	f.folders.folderID = "folder-existing"
	f.gateway.exchangeTokens = model.TokenSet{AccessToken: "hs-token"}

	_, err := f.svc.AccessToken(context.Background(), model.ServiceHubSpot)
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, f.recorder.needsFolder)
	assert.Equal(t, "folder-existing", f.folders.folderID)
}

func TestTokenService_AccessToken_CodeTimeout(t *testing.T) {
	f := newTokenFixture()
	f.recorder.session.codeErr = context.DeadlineExceeded

	_, err := f.svc.AccessToken(context.Background(), model.ServiceZoho)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, f.gateway.exchangeCodes)
}

func TestTokenService_AccessToken_ExchangeFailure(t *testing.T) {
	f := newTokenFixture()
	f.gateway.exchangeErr = errors.New("server_error")

	_, err := f.svc.AccessToken(context.Background(), model.ServiceZoho)
	require.Error(t, err)
	assert.Empty(t, f.credentials.saves)
}

func TestTokenService_AccessToken_BrowserFailureStillWaits(t *testing.T) {
	f := newTokenFixture()
	f.browser.openErr = errors.New("no display")
	f.gateway.exchangeTokens = model.TokenSet{AccessToken: "granted-token"}

	token, err := f.svc.AccessToken(context.Background(), model.ServiceZoho)
	require.NoError(t, err)
	assert.Equal(t, "granted-token", token)
}

func TestTokenService_For_BindsService(t *testing.T) {
	f := newTokenFixture()
	f.credentials.tokens[model.ServiceHubSpot] = model.TokenSet{
		AccessToken: "hs-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}

	token, err := f.svc.For(model.ServiceHubSpot).AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hs-token", token)
}

func TestTokenService_FolderID(t *testing.T) {
	f := newTokenFixture()
	f.folders.loadErr = nil
	f.folders.folderID = "folder-3"

	id, err := f.svc.FolderID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "folder-3", id)
}
