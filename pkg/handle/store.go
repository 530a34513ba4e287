// Package handle persists the external agent's opaque continuity tokens.
// The agent owns its own conversational memory; this store only replays the
// last identifier it reported, keyed by project so work in one repository
// never resumes another repository's conversation.
package handle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// LegacyKey is the project key adopted by a handle migrated from the old
// single-value record, which predates per-project tracking.
const LegacyKey = "default"

type record struct {
	Handles map[string]string `json:"handles"`

	// LastSessionID is only read, never written: the pre-split record held a
	// single process-wide value under this name.
	LastSessionID string `json:"last_session_id,omitempty"`
}

// Store is a durable map from project identifier to the external agent's
// session handle. Writes persist immediately; the file is rewritten whole.
type Store struct {
	path    string
	mu      sync.RWMutex
	handles map[string]string
}

// New creates a handle store backed by the given file path.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("handle store path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create handle store directory: %w", err)
	}

	s := &Store{
		path:    path,
		handles: make(map[string]string),
	}

	s.load()

	return s, nil
}

// load reads the persisted record. Absence is not an error; a parse failure
// degrades to an empty store.
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", s.path).Msg("Could not read handle store")
		}
		return
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Handle store is corrupt, starting empty")
		return
	}

	if rec.Handles != nil {
		s.handles = rec.Handles
	}

	// One-time migration from the single-value format
	if rec.LastSessionID != "" {
		if _, ok := s.handles[LegacyKey]; !ok {
			s.handles[LegacyKey] = rec.LastSessionID
			log.Info().Msg("Migrated legacy session handle")
		}
	}

	log.Debug().Int("handles", len(s.handles)).Msg("Handle store loaded")
}

// Get returns the handle last learned for a project, or "" if none is known.
func (s *Store) Get(projectID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if h, ok := s.handles[projectID]; ok {
		return h
	}
	return s.handles[LegacyKey]
}

// Set records a newly learned handle and persists it immediately. A write
// failure is logged and swallowed; the in-memory value stays authoritative.
func (s *Store) Set(projectID, handle string) {
	if handle == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.handles[projectID] = handle

	if err := s.save(); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("Could not persist session handle")
	}
}

// Clear forgets the handle for a project and persists the removal.
func (s *Store) Clear(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.handles, projectID)

	if err := s.save(); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("Could not persist handle removal")
	}
}

func (s *Store) save() error {
	data, err := json.Marshal(record{Handles: s.handles})
	if err != nil {
		return fmt.Errorf("failed to marshal handle record: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write handle record: %w", err)
	}

	return nil
}
