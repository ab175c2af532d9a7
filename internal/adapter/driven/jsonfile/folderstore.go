package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"

	"github.com/kmorganti/dealporter/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.FolderStore = (*FolderStore)(nil)

// folderConfig mirrors the on-disk JSON shape.
type folderConfig struct {
	FolderID string `json:"folder_id"`
}

// FolderStore stores the destination folder id in a single JSON file.
type FolderStore struct {
	path string
}

// NewFolderStore creates a FolderStore writing to the given path.
func NewFolderStore(path string) *FolderStore {
	return &FolderStore{path: path}
}

// Load returns the configured folder id, or ErrFolderNotSelected when the
// file does not exist or holds an empty id.
func (s *FolderStore) Load(_ context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", driven.ErrFolderNotSelected
	}
	if err != nil {
		return "", fmt.Errorf("read folder config %s: %w", s.path, err)
	}

	var cfg folderConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("parse folder config %s: %w", s.path, err)
	}
	if cfg.FolderID == "" {
		return "", driven.ErrFolderNotSelected
	}

	return cfg.FolderID, nil
}

// Save persists the folder id.
func (s *FolderStore) Save(_ context.Context, folderID string) error {
	data, err := json.Marshal(folderConfig{FolderID: folderID})
	if err != nil {
		return fmt.Errorf("marshal folder config: %w", err)
	}

	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write folder config %s: %w", s.path, err)
	}

	return nil
}
