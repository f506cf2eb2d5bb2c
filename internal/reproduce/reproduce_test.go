package reproduce

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasTrigger_MissingFile(t *testing.T) {
	ok, err := hasTrigger(filepath.Join(t.TempDir(), "missing.out"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasTrigger_EmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))
	ok, err := hasTrigger(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasTrigger_NonEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"tid":1}]`), 0o644))
	ok, err := hasTrigger(path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasTrigger_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	ok, err := hasTrigger(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteTempJSON(t *testing.T) {
	path, err := writeTempJSON(config{Cmd: []string{"a", "b"}, CWD: "/tmp"})
	require.NoError(t, err)
	defer os.Remove(path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"cwd":"/tmp"`)
}
