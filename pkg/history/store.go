package history

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rizal/kova/internal/metrics"
)

const (
	// splitThreshold is the entry count past which a session is split.
	splitThreshold = 50
	// splitKeep is how many recent entries the active session retains.
	splitKeep = 25
)

// ProjectRecord is the on-disk shape of one project's sessions. The project
// path is stored for human inspection only; the file name carries identity.
type ProjectRecord struct {
	ProjectPath string     `json:"project_path"`
	LastUpdated time.Time  `json:"last_updated"`
	Sessions    []*Session `json:"sessions"`
}

// legacyRecord is the flat pre-session format: a bare entry list with no
// session wrapper.
type legacyRecord struct {
	ProjectPath string    `json:"project_path"`
	LastUpdated time.Time `json:"last_updated"`
	Entries     []Entry   `json:"entries"`
}

// Store owns the mapping from project identity to sessions and the single
// active session of the current project. Load and parse failures degrade to
// an empty fresh session; save failures are logged and swallowed so the
// in-memory state stays usable.
type Store struct {
	historyDir string

	mu          sync.Mutex
	projectPath string
	projectID   string
	sessions    []*Session
	activeID    string
}

// NewStore creates a session store rooted at historyDir.
func NewStore(historyDir string) (*Store, error) {
	if historyDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		historyDir = filepath.Join(home, ".kova", "history")
	}

	if err := os.MkdirAll(historyDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	log.Info().Str("dir", historyDir).Msg("History store initialized")

	return &Store{historyDir: historyDir}, nil
}

// ProjectID computes the deterministic identifier for a project path. The
// same path always maps to the same identifier, so it is safe as a file
// name stem and cache key across restarts.
func ProjectID(projectPath string) string {
	if projectPath == "" {
		return "default"
	}
	sum := sha256.Sum256([]byte(filepath.Clean(projectPath)))
	return hex.EncodeToString(sum[:])[:12]
}

func (s *Store) recordPath(projectID string) string {
	return filepath.Join(s.historyDir, "sessions_"+projectID+".json")
}

func (s *Store) legacyPath(projectID string) string {
	return filepath.Join(s.historyDir, "history_"+projectID+".json")
}

// LoadProjectSessions makes projectPath the current project and loads its
// sessions, migrating a legacy flat-history record when no session record
// exists yet. Idempotent: a second call without intervening writes neither
// duplicates sessions nor re-runs migration.
func (s *Store) LoadProjectSessions(projectPath string) []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	defer func() { metrics.RecordHistoryLoad(time.Since(start)) }()

	s.projectPath = projectPath
	s.projectID = ProjectID(projectPath)
	s.sessions = nil
	s.activeID = ""

	if s.readRecordLocked() {
		s.adoptMostRecentLocked()
	} else if s.migrateLegacyLocked() {
		s.adoptMostRecentLocked()
		s.saveLocked()
	}

	if len(s.sessions) == 0 {
		fresh := NewSession("")
		s.sessions = []*Session{fresh}
		s.activeID = fresh.SessionID
		s.saveLocked()
	}

	metrics.SetActiveSessions(len(s.sessions))

	log.Debug().
		Str("project_id", s.projectID).
		Int("sessions", len(s.sessions)).
		Msg("Project sessions loaded")

	return s.sessions
}

// readRecordLocked reports whether a session record exists for the current
// project, regardless of whether it parsed. A corrupt record still counts
// as existing so migration never runs over it.
func (s *Store) readRecordLocked() bool {
	path := s.recordPath(s.projectID)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("Could not read session record")
			return true
		}
		return false
	}

	if err := validateRecord(data); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Session record failed validation, starting fresh")
		quarantineRecord(path)
		return true
	}

	var rec ProjectRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Session record is corrupt, starting fresh")
		quarantineRecord(path)
		return true
	}

	s.sessions = rec.Sessions
	return true
}

// quarantineRecord moves an unreadable record aside so the fresh record
// written in its place never destroys data the user might recover by hand.
func quarantineRecord(path string) {
	quarantined := path + ".corrupt"
	if err := os.Rename(path, quarantined); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Could not quarantine corrupt session record")
		return
	}
	log.Warn().Str("path", quarantined).Msg("Quarantined corrupt session record")
}

// migrateLegacyLocked synthesizes one session from a legacy flat-history
// record. Returns false when there is nothing to migrate.
func (s *Store) migrateLegacyLocked() bool {
	path := s.legacyPath(s.projectID)

	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	var rec legacyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Legacy history record is corrupt, skipping migration")
		return false
	}

	if len(rec.Entries) == 0 {
		return false
	}

	migrated := NewSession(SessionNameFor(rec.Entries[0].PromptText))
	migrated.Entries = rec.Entries
	migrated.CreatedAt = rec.Entries[0].Timestamp
	migrated.UpdatedAt = rec.Entries[len(rec.Entries)-1].Timestamp
	migrated.IsSaved = true
	migrated.AutoNamed = true

	s.sessions = []*Session{migrated}

	log.Info().
		Str("project_id", s.projectID).
		Int("entries", len(rec.Entries)).
		Msg("Migrated legacy flat history into a session")

	return true
}

func (s *Store) adoptMostRecentLocked() {
	var latest *Session
	for _, sess := range s.sessions {
		if latest == nil || sess.UpdatedAt.After(latest.UpdatedAt) {
			latest = sess
		}
	}
	if latest != nil {
		s.activeID = latest.SessionID
	}
}

// StartNewSession creates an empty session, appends it and makes it active.
func (s *Store) StartNewSession(name string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := NewSession(name)
	s.sessions = append(s.sessions, sess)
	s.activeID = sess.SessionID

	metrics.SetActiveSessions(len(s.sessions))

	log.Info().
		Str("session_id", sess.SessionID).
		Str("name", sess.SessionName).
		Msg("Started new session")

	return sess
}

// SwitchToSession makes the session with the given id active. Returns false
// when the id is unknown for the current project; the active session is
// left untouched.
func (s *Store) SwitchToSession(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		if sess.SessionID == sessionID {
			s.activeID = sessionID
			return true
		}
	}

	log.Debug().Str("session_id", sessionID).Msg("Session not found for switch")
	return false
}

// ActiveSession returns the current project's active session, or nil.
func (s *Store) ActiveSession() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked()
}

func (s *Store) activeLocked() *Session {
	for _, sess := range s.sessions {
		if sess.SessionID == s.activeID {
			return sess
		}
	}
	return nil
}

// AddEntry appends an exchange to the active session, creating one if
// needed, auto-naming on the first entry, splitting when the session grows
// past the threshold, and persisting the result.
func (s *Store) AddEntry(kind Kind, promptText, responseText, modelUsed string, usage *TokenUsage) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.activeLocked()
	if active == nil {
		active = NewSession("")
		s.sessions = append(s.sessions, active)
		s.activeID = active.SessionID
	}

	entry := NewEntry(kind, promptText, responseText, modelUsed, usage)
	active.Append(entry)

	if len(active.Entries) == 1 && !active.AutoNamed {
		active.SessionName = SessionNameFor(promptText)
		active.AutoNamed = true
	}

	if len(active.Entries) > splitThreshold {
		s.splitLocked(active)
	}

	s.saveLocked()
	metrics.SetActiveSessions(len(s.sessions))

	return entry
}

// splitLocked moves all but the most recent entries of an oversized session
// into a new retained session inserted just before it. The active session
// keeps its identity.
func (s *Store) splitLocked(active *Session) {
	moved := active.Entries[:len(active.Entries)-splitKeep]
	kept := make([]Entry, splitKeep)
	copy(kept, active.Entries[len(active.Entries)-splitKeep:])

	part := NewSession(active.SessionName + " (Part 1)")
	part.Entries = make([]Entry, len(moved))
	copy(part.Entries, moved)
	part.CreatedAt = moved[0].Timestamp
	part.UpdatedAt = moved[len(moved)-1].Timestamp
	part.IsSaved = true
	part.AutoNamed = true

	active.Entries = kept

	for i, sess := range s.sessions {
		if sess.SessionID == active.SessionID {
			s.sessions = append(s.sessions[:i], append([]*Session{part}, s.sessions[i:]...)...)
			break
		}
	}

	log.Info().
		Str("session_id", active.SessionID).
		Str("part_id", part.SessionID).
		Int("moved", len(moved)).
		Msg("Split oversized session")
}

// MarkSaved flags the active session's entries as durable.
func (s *Store) MarkSaved() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if active := s.activeLocked(); active != nil {
		active.IsSaved = true
		s.saveLocked()
	}
}

// SaveProjectSessions serializes the full session list for the current
// project, overwriting the prior record.
func (s *Store) SaveProjectSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveLocked()
}

func (s *Store) saveLocked() {
	if s.projectID == "" {
		return
	}

	start := time.Now()
	defer func() { metrics.RecordHistorySave(time.Since(start)) }()

	rec := ProjectRecord{
		ProjectPath: s.projectPath,
		LastUpdated: time.Now(),
		Sessions:    s.sessions,
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Could not marshal session record")
		return
	}

	if err := os.WriteFile(s.recordPath(s.projectID), data, 0600); err != nil {
		log.Error().Err(err).Str("project_id", s.projectID).Msg("Could not write session record")
	}
}

// GetProjectSessions returns the in-memory session list for the given path,
// or for the current project when path is empty. Empty when not loaded.
func (s *Store) GetProjectSessions(projectPath string) []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if projectPath != "" && ProjectID(projectPath) != s.projectID {
		return nil
	}
	return s.sessions
}

// RecentEntries returns up to limit most recent entries of the active
// session, oldest first.
func (s *Store) RecentEntries(limit int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.activeLocked()
	if active == nil || len(active.Entries) == 0 {
		return nil
	}

	entries := active.Entries
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// DeleteEntry removes one entry from the active session by id.
func (s *Store) DeleteEntry(entryID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.activeLocked()
	if active == nil {
		return false
	}

	for i, entry := range active.Entries {
		if entry.ID == entryID {
			active.Entries = append(active.Entries[:i], active.Entries[i+1:]...)
			s.saveLocked()
			return true
		}
	}
	return false
}

// ClearProjectHistory drops every session for the current project and
// persists a single fresh one. This is the only deletion path.
func (s *Store) ClearProjectHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := NewSession("")
	s.sessions = []*Session{fresh}
	s.activeID = fresh.SessionID
	s.saveLocked()

	metrics.SetActiveSessions(1)

	log.Info().Str("project_id", s.projectID).Msg("Project history cleared")
}

// Summary describes the active session's history in one line.
func (s *Store) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.activeLocked()
	if active == nil || len(active.Entries) == 0 {
		return "No chat history"
	}

	last := active.Entries[len(active.Entries)-1]
	return fmt.Sprintf("%d chats (Last: %s)", len(active.Entries), last.FormattedTime())
}

// ProjectInfo summarizes one stored project record.
type ProjectInfo struct {
	ProjectPath  string    `json:"project_path"`
	LastUpdated  time.Time `json:"last_updated"`
	SessionCount int       `json:"session_count"`
	EntryCount   int       `json:"entry_count"`
}

// AllProjects lists every project with a stored session record. Unreadable
// records are skipped.
func (s *Store) AllProjects() []ProjectInfo {
	dirEntries, err := os.ReadDir(s.historyDir)
	if err != nil {
		log.Warn().Err(err).Msg("Could not read history directory")
		return nil
	}

	var projects []ProjectInfo
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, "sessions_") || !strings.HasSuffix(name, ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.historyDir, name))
		if err != nil {
			continue
		}

		var rec ProjectRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}

		info := ProjectInfo{
			ProjectPath:  rec.ProjectPath,
			LastUpdated:  rec.LastUpdated,
			SessionCount: len(rec.Sessions),
		}
		for _, sess := range rec.Sessions {
			info.EntryCount += len(sess.Entries)
		}
		projects = append(projects, info)
	}

	return projects
}

// Invalidate drops the in-memory cache for the current project so the next
// load re-reads the record from disk. Used when another process instance
// rewrote the file.
func (s *Store) Invalidate() {
	s.mu.Lock()
	path := s.projectPath
	s.mu.Unlock()

	if path == "" {
		return
	}

	log.Debug().Str("project", path).Msg("Reloading sessions after external change")
	s.LoadProjectSessions(path)
}

// HistoryDir returns the directory session records live in.
func (s *Store) HistoryDir() string {
	return s.historyDir
}
