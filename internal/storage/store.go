// Package storage provides JSON file persistence for pipeline state.
// State files are small and rewritten whole; writes go through a temp
// file and rename so a crash never leaves a half-written file behind.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Store reads and writes JSON state files
type Store struct {
	logger zerolog.Logger
}

// NewStore creates a new JSON state store
func NewStore(logger zerolog.Logger) *Store {
	return &Store{
		logger: logger.With().Str("component", "storage").Logger(),
	}
}

// Load reads the JSON file at path into out. A missing file leaves out
// untouched and returns nil so callers start from their empty state. A
// corrupt file is treated the same way: the damage is logged and the
// caller's next Save replaces it.
func (s *Store) Load(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read state file: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Warn().
			Str("path", path).
			Err(err).
			Msg("State file is corrupt, resetting to empty state")
		return nil
	}

	return nil
}

// Save writes v as indented JSON to path, creating parent directories as
// needed. The write is atomic via temp file and rename.
func (s *Store) Save(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}
