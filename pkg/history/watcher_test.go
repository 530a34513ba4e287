package history

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_NotifiesOnSessionRecordWrite(t *testing.T) {
	dir := t.TempDir()

	var fired atomic.Int32
	w, err := NewWatcher(dir, zerolog.Nop(), func() { fired.Add(1) })
	require.NoError(t, err)
	defer w.Stop()

	path := filepath.Join(dir, "sessions_abc123def456.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"sessions":[]}`), 0600))

	assert.Eventually(t, func() bool {
		return fired.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()

	var fired atomic.Int32
	w, err := NewWatcher(dir, zerolog.Nop(), func() { fired.Add(1) })
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "handles.json"), []byte("{}"), 0600))

	time.Sleep(time.Second)
	assert.Equal(t, int32(0), fired.Load())
}

func TestWatcher_ReloadsStoreAfterExternalRewrite(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	projectPath := "/tmp/watched"
	store.LoadProjectSessions(projectPath)
	store.AddEntry(KindInteractive, "original entry", "ok", "claude", nil)

	w, err := NewWatcher(dir, zerolog.Nop(), store.Invalidate)
	require.NoError(t, err)
	defer w.Stop()

	// Another process instance rewrites the record with a renamed session.
	other, err := NewStore(dir)
	require.NoError(t, err)
	other.LoadProjectSessions(projectPath)
	other.StartNewSession("Written Elsewhere")
	other.SaveProjectSessions()

	assert.Eventually(t, func() bool {
		for _, sess := range store.GetProjectSessions("") {
			if sess.SessionName == "Written Elsewhere" {
				return true
			}
		}
		return false
	}, 5*time.Second, 100*time.Millisecond)
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()

	var fired atomic.Int32
	w, err := NewWatcher(dir, zerolog.Nop(), func() { fired.Add(1) })
	require.NoError(t, err)
	defer w.Stop()

	path := filepath.Join(dir, "sessions_abc123def456.json")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"sessions":[]}`), 0600))
		time.Sleep(20 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		return fired.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)

	time.Sleep(time.Second)
	assert.Equal(t, int32(1), fired.Load())
}
