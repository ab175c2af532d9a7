// Package jsonfile persists credentials and the folder configuration as small
// JSON files on local disk, written atomically.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"

	"github.com/kmorganti/dealporter/internal/domain/model"
	"github.com/kmorganti/dealporter/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*TokenStore)(nil)

// TokenStore stores one TokenSet per service, each in its own JSON file.
type TokenStore struct {
	paths map[model.Service]string
}

// NewTokenStore creates a TokenStore with the given per-service file paths.
func NewTokenStore(zohoPath, hubspotPath string) *TokenStore {
	return &TokenStore{
		paths: map[model.Service]string{
			model.ServiceZoho:    zohoPath,
			model.ServiceHubSpot: hubspotPath,
		},
	}
}

// Load returns the persisted TokenSet for the service, or ErrTokenNotFound
// when the file does not exist.
func (s *TokenStore) Load(_ context.Context, service model.Service) (model.TokenSet, error) {
	path, ok := s.paths[service]
	if !ok {
		return model.TokenSet{}, fmt.Errorf("unknown service %q", service)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return model.TokenSet{}, driven.ErrTokenNotFound
	}
	if err != nil {
		return model.TokenSet{}, fmt.Errorf("read token file %s: %w", path, err)
	}

	var tokens model.TokenSet
	if err := json.Unmarshal(data, &tokens); err != nil {
		return model.TokenSet{}, fmt.Errorf("parse token file %s: %w", path, err)
	}

	return tokens, nil
}

// Save persists the TokenSet, replacing any prior record. The write is atomic
// so a crash cannot leave a half-written credential file behind.
func (s *TokenStore) Save(_ context.Context, service model.Service, tokens model.TokenSet) error {
	path, ok := s.paths[service]
	if !ok {
		return fmt.Errorf("unknown service %q", service)
	}

	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("marshal tokens for %s: %w", service, err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write token file %s: %w", path, err)
	}

	return nil
}
