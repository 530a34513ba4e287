package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestProjectID_Deterministic(t *testing.T) {
	a := ProjectID("/home/dev/project")
	b := ProjectID("/home/dev/project")
	c := ProjectID("/home/dev/other")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 12)
	assert.Equal(t, "default", ProjectID(""))
}

func TestProjectID_CleansPath(t *testing.T) {
	assert.Equal(t, ProjectID("/home/dev/project"), ProjectID("/home/dev//project/"))
}

func TestLoadProjectSessions_FreshProject(t *testing.T) {
	store := newTestStore(t)

	sessions := store.LoadProjectSessions("/tmp/fresh")

	require.Len(t, sessions, 1)
	assert.Equal(t, PlaceholderName, sessions[0].SessionName)
	assert.Empty(t, sessions[0].Entries)
	require.NotNil(t, store.ActiveSession())
	assert.Equal(t, sessions[0].SessionID, store.ActiveSession().SessionID)
}

func TestLoadProjectSessions_Idempotent(t *testing.T) {
	store := newTestStore(t)

	first := store.LoadProjectSessions("/tmp/idem")
	firstID := first[0].SessionID

	second := store.LoadProjectSessions("/tmp/idem")

	require.Len(t, second, 1)
	assert.Equal(t, firstID, second[0].SessionID)
}

func TestAddEntry_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	store.LoadProjectSessions("/tmp/roundtrip")
	usage := &TokenUsage{PromptTokens: 12, CompletionTokens: 34, TotalTokens: 46}
	entry := store.AddEntry(KindInteractive, "解释这段代码 — čitaj pažljivo", "done ✓", "claude", usage)

	assert.NotEmpty(t, entry.ID)

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	sessions := reopened.LoadProjectSessions("/tmp/roundtrip")

	require.Len(t, sessions, 1)
	require.Len(t, sessions[0].Entries, 1)
	got := sessions[0].Entries[0]
	assert.Equal(t, "解释这段代码 — čitaj pažljivo", got.PromptText)
	assert.Equal(t, "done ✓", got.ResponseText)
	assert.Equal(t, KindInteractive, got.Kind)
	require.NotNil(t, got.TokenUsage)
	assert.Equal(t, 46, got.TokenUsage.TotalTokens)
}

func TestAddEntry_AutoNamesFirstEntry(t *testing.T) {
	store := newTestStore(t)
	store.LoadProjectSessions("/tmp/autoname")

	store.AddEntry(KindInteractive, "fix the login bug", "ok", "claude", nil)

	active := store.ActiveSession()
	require.NotNil(t, active)
	assert.True(t, active.AutoNamed)
	assert.NotEqual(t, PlaceholderName, active.SessionName)

	store.AddEntry(KindInteractive, "now refactor the tests", "ok", "claude", nil)
	assert.Equal(t, active.SessionName, store.ActiveSession().SessionName)
}

func TestAddEntry_ImplicitSessionCreation(t *testing.T) {
	store := newTestStore(t)

	entry := store.AddEntry(KindOrchestrator, "run the deploy checklist", "running", "claude", nil)

	assert.NotEmpty(t, entry.ID)
	require.NotNil(t, store.ActiveSession())
	assert.Len(t, store.ActiveSession().Entries, 1)
}

func TestAddEntry_SplitsOversizedSession(t *testing.T) {
	store := newTestStore(t)
	store.LoadProjectSessions("/tmp/split")

	for i := 0; i < 51; i++ {
		store.AddEntry(KindInteractive, fmt.Sprintf("prompt number %d", i), "ok", "claude", nil)
	}

	sessions := store.GetProjectSessions("")
	require.Len(t, sessions, 2)

	part, active := sessions[0], sessions[1]
	assert.Equal(t, store.ActiveSession().SessionID, active.SessionID)
	assert.Len(t, active.Entries, 25)
	assert.Len(t, part.Entries, 26)
	assert.Contains(t, part.SessionName, "(Part 1)")
	assert.True(t, part.IsSaved)

	// No entry lost, order preserved across the boundary.
	assert.Equal(t, "prompt number 25", part.Entries[len(part.Entries)-1].PromptText)
	assert.Equal(t, "prompt number 26", active.Entries[0].PromptText)
	assert.Equal(t, "prompt number 50", active.Entries[len(active.Entries)-1].PromptText)
}

func TestMigrateLegacyRecord(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	projectPath := "/tmp/legacy"
	legacy := legacyRecord{
		ProjectPath: projectPath,
		LastUpdated: time.Now(),
		Entries: []Entry{
			{ID: "aaaa1111", Timestamp: time.Now().Add(-3 * time.Hour), Kind: KindInteractive, PromptText: "fix the auth bug", ResponseText: "patched"},
			{ID: "bbbb2222", Timestamp: time.Now().Add(-2 * time.Hour), Kind: KindInteractive, PromptText: "add a test", ResponseText: "added"},
			{ID: "cccc3333", Timestamp: time.Now().Add(-1 * time.Hour), Kind: KindInteractive, PromptText: "clean up", ResponseText: "done"},
		},
	}
	data, err := json.Marshal(legacy)
	require.NoError(t, err)
	legacyFile := filepath.Join(dir, "history_"+ProjectID(projectPath)+".json")
	require.NoError(t, os.WriteFile(legacyFile, data, 0600))

	sessions := store.LoadProjectSessions(projectPath)

	require.Len(t, sessions, 1)
	migrated := sessions[0]
	assert.Len(t, migrated.Entries, 3)
	assert.True(t, migrated.AutoNamed)
	assert.True(t, migrated.IsSaved)
	assert.NotEqual(t, PlaceholderName, migrated.SessionName)
	assert.Equal(t, "fix the auth bug", migrated.Entries[0].PromptText)

	// The migrated record is persisted; a reload must not migrate again.
	reopened, err := NewStore(dir)
	require.NoError(t, err)
	again := reopened.LoadProjectSessions(projectPath)
	require.Len(t, again, 1)
	assert.Equal(t, migrated.SessionID, again[0].SessionID)
}

func TestLoadProjectSessions_CorruptRecordDegradesFresh(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	projectPath := "/tmp/corrupt"
	recordFile := filepath.Join(dir, "sessions_"+ProjectID(projectPath)+".json")
	require.NoError(t, os.WriteFile(recordFile, []byte("{not json"), 0600))

	// A legacy record being present must not trigger migration over a
	// corrupt session record.
	legacyFile := filepath.Join(dir, "history_"+ProjectID(projectPath)+".json")
	legacy, _ := json.Marshal(legacyRecord{Entries: []Entry{{ID: "dddd4444", Timestamp: time.Now(), PromptText: "old"}}})
	require.NoError(t, os.WriteFile(legacyFile, legacy, 0600))

	sessions := store.LoadProjectSessions(projectPath)

	require.Len(t, sessions, 1)
	assert.Empty(t, sessions[0].Entries)
	assert.Equal(t, PlaceholderName, sessions[0].SessionName)

	// The unreadable bytes are kept aside, not overwritten.
	quarantined, err := os.ReadFile(recordFile + ".corrupt")
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(quarantined))

	fresh, err := os.ReadFile(recordFile)
	require.NoError(t, err)
	assert.NoError(t, validateRecord(fresh))
}

func TestStartNewSessionAndSwitch(t *testing.T) {
	store := newTestStore(t)
	store.LoadProjectSessions("/tmp/switch")

	first := store.ActiveSession()
	store.AddEntry(KindInteractive, "first session work", "ok", "claude", nil)

	second := store.StartNewSession("Review Queue")
	assert.Equal(t, second.SessionID, store.ActiveSession().SessionID)
	assert.Equal(t, "Review Queue", second.SessionName)
	assert.True(t, second.AutoNamed)

	assert.True(t, store.SwitchToSession(first.SessionID))
	assert.Equal(t, first.SessionID, store.ActiveSession().SessionID)

	assert.False(t, store.SwitchToSession("missing-id"))
	assert.Equal(t, first.SessionID, store.ActiveSession().SessionID)
}

func TestRecentEntries(t *testing.T) {
	store := newTestStore(t)
	store.LoadProjectSessions("/tmp/recent")

	for i := 0; i < 5; i++ {
		store.AddEntry(KindInteractive, fmt.Sprintf("ask %d", i), "ok", "claude", nil)
	}

	recent := store.RecentEntries(3)
	require.Len(t, recent, 3)
	assert.Equal(t, "ask 2", recent[0].PromptText)
	assert.Equal(t, "ask 4", recent[2].PromptText)

	all := store.RecentEntries(0)
	assert.Len(t, all, 5)
}

func TestDeleteEntry(t *testing.T) {
	store := newTestStore(t)
	store.LoadProjectSessions("/tmp/delete")

	store.AddEntry(KindInteractive, "keep this", "ok", "claude", nil)
	victim := store.AddEntry(KindInteractive, "drop this", "ok", "claude", nil)

	assert.True(t, store.DeleteEntry(victim.ID))
	assert.False(t, store.DeleteEntry(victim.ID))
	require.Len(t, store.ActiveSession().Entries, 1)
	assert.Equal(t, "keep this", store.ActiveSession().Entries[0].PromptText)
}

func TestClearProjectHistory(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	store.LoadProjectSessions("/tmp/clear")
	store.AddEntry(KindInteractive, "about to vanish", "ok", "claude", nil)
	store.StartNewSession("Second")

	store.ClearProjectHistory()

	sessions := store.GetProjectSessions("")
	require.Len(t, sessions, 1)
	assert.Empty(t, sessions[0].Entries)

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	again := reopened.LoadProjectSessions("/tmp/clear")
	require.Len(t, again, 1)
	assert.Empty(t, again[0].Entries)
}

func TestSummary(t *testing.T) {
	store := newTestStore(t)
	store.LoadProjectSessions("/tmp/summary")

	assert.Equal(t, "No chat history", store.Summary())

	store.AddEntry(KindInteractive, "one", "ok", "claude", nil)
	store.AddEntry(KindInteractive, "two", "ok", "claude", nil)

	assert.Contains(t, store.Summary(), "2 chats")
	assert.Contains(t, store.Summary(), "Last:")
}

func TestGetProjectSessions_OtherProject(t *testing.T) {
	store := newTestStore(t)
	store.LoadProjectSessions("/tmp/mine")

	assert.Nil(t, store.GetProjectSessions("/tmp/other"))
	assert.NotNil(t, store.GetProjectSessions("/tmp/mine"))
	assert.NotNil(t, store.GetProjectSessions(""))
}

func TestAllProjects(t *testing.T) {
	store := newTestStore(t)

	store.LoadProjectSessions("/tmp/alpha")
	store.AddEntry(KindInteractive, "alpha work", "ok", "claude", nil)
	store.LoadProjectSessions("/tmp/beta")
	store.AddEntry(KindInteractive, "beta work", "ok", "claude", nil)
	store.AddEntry(KindInteractive, "more beta work", "ok", "claude", nil)

	projects := store.AllProjects()
	require.Len(t, projects, 2)

	byPath := map[string]ProjectInfo{}
	for _, p := range projects {
		byPath[p.ProjectPath] = p
	}
	assert.Equal(t, 1, byPath["/tmp/alpha"].EntryCount)
	assert.Equal(t, 2, byPath["/tmp/beta"].EntryCount)
}

func TestMarkSaved(t *testing.T) {
	store := newTestStore(t)
	store.LoadProjectSessions("/tmp/saved")

	store.AddEntry(KindInteractive, "unsaved work", "ok", "claude", nil)
	assert.False(t, store.ActiveSession().IsSaved)

	store.MarkSaved()
	assert.True(t, store.ActiveSession().IsSaved)
}
