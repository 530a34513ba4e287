package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	l, err := New(DefaultConfig())
	require.NoError(t, err)
	defer l.Close()

	assert.NotNil(t, l.GetZerolog())
}

func TestNew_InvalidLevelFallsBack(t *testing.T) {
	l, err := New(Config{Level: "nope", Console: true})
	require.NoError(t, err)
	defer l.Close()
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "kova.log")

	l, err := New(Config{Level: "debug", File: path})
	require.NoError(t, err)

	zl := l.GetZerolog()
	zl.Info().Str("component", "test").Msg("hello")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "component")
}
