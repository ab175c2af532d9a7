package jsonfile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmorganti/dealporter/internal/domain/model"
	"github.com/kmorganti/dealporter/internal/domain/port/driven"
)

func TestTokenStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewTokenStore(filepath.Join(dir, "zoho.json"), filepath.Join(dir, "hubspot.json"))
	ctx := context.Background()

	tokens := model.TokenSet{
		AccessToken:  "acc-123",
		RefreshToken: "ref-456",
		ExpiresAt:    time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, model.ServiceZoho, tokens))

	got, err := store.Load(ctx, model.ServiceZoho)
	require.NoError(t, err)
	assert.Equal(t, tokens.AccessToken, got.AccessToken)
	assert.Equal(t, tokens.RefreshToken, got.RefreshToken)
	assert.True(t, tokens.ExpiresAt.Equal(got.ExpiresAt))
}

func TestTokenStore_Load_Missing(t *testing.T) {
	dir := t.TempDir()
	store := NewTokenStore(filepath.Join(dir, "zoho.json"), filepath.Join(dir, "hubspot.json"))

	_, err := store.Load(context.Background(), model.ServiceHubSpot)
	require.ErrorIs(t, err, driven.ErrTokenNotFound)
}

func TestTokenStore_Save_Overwrites(t *testing.T) {
	dir := t.TempDir()
	store := NewTokenStore(filepath.Join(dir, "zoho.json"), filepath.Join(dir, "hubspot.json"))
	ctx := context.Background()

	first := model.TokenSet{AccessToken: "old", RefreshToken: "r1", ExpiresAt: time.Now()}
	require.NoError(t, store.Save(ctx, model.ServiceHubSpot, first))

	second := model.TokenSet{AccessToken: "new", RefreshToken: "r2", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Save(ctx, model.ServiceHubSpot, second))

	got, err := store.Load(ctx, model.ServiceHubSpot)
	require.NoError(t, err)
	assert.Equal(t, "new", got.AccessToken)
	assert.Equal(t, "r2", got.RefreshToken)
}

func TestFolderStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFolderStore(filepath.Join(dir, "folder.json"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "folder-42"))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "folder-42", got)
}

func TestFolderStore_Load_Missing(t *testing.T) {
	dir := t.TempDir()
	store := NewFolderStore(filepath.Join(dir, "folder.json"))

	_, err := store.Load(context.Background())
	require.ErrorIs(t, err, driven.ErrFolderNotSelected)
}
