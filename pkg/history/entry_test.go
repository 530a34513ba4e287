package history

import (
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestNewEntry_StableID(t *testing.T) {
	ts := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	a := entryID(ts, "same prompt")
	b := entryID(ts, "same prompt")
	c := entryID(ts, "other prompt")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 8)
}

func TestEntry_Preview(t *testing.T) {
	entry := Entry{PromptText: "  first line\nsecond line  "}

	assert.Equal(t, "first line second line", entry.Preview(0))
	assert.Equal(t, "first line...", entry.Preview(10))
}

func TestEntry_PreviewNonASCII(t *testing.T) {
	entry := Entry{PromptText: "データベースの移行を手伝ってください"}

	preview := entry.Preview(5)

	assert.Equal(t, "データベー...", preview)
	assert.True(t, utf8.ValidString(preview))
}

func TestTokenUsage_IsZero(t *testing.T) {
	assert.True(t, TokenUsage{}.IsZero())
	assert.False(t, TokenUsage{TotalTokens: 1}.IsZero())
}

func TestSession_Append(t *testing.T) {
	sess := NewSession("")
	assert.Equal(t, PlaceholderName, sess.SessionName)
	assert.False(t, sess.AutoNamed)
	assert.True(t, sess.IsSaved)

	before := sess.UpdatedAt
	time.Sleep(time.Millisecond)
	sess.Append(NewEntry(KindInteractive, "hello", "world", "claude", nil))

	assert.Len(t, sess.Entries, 1)
	assert.False(t, sess.IsSaved)
	assert.True(t, sess.UpdatedAt.After(before))
}

func TestNewSession_ExplicitName(t *testing.T) {
	sess := NewSession("Release Prep")
	assert.Equal(t, "Release Prep", sess.SessionName)
	assert.True(t, sess.AutoNamed)
	assert.NotEmpty(t, sess.SessionID)
}
