package tracer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_resolve(t *testing.T) {
	cfg := Config{CWD: "/work"}
	assert.Equal(t, "/work/trace.log", cfg.resolve("trace.log"))
	assert.Equal(t, "/abs/trace.log", cfg.resolve("/abs/trace.log"))
	assert.Equal(t, "", cfg.resolve(""))
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	want := Config{CWD: dir, Log: "trace.log", Blacklist: "black.txt", Srcdir: "src"}
	data, err := json.Marshal(want)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	got, err := ReadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadConfig_MissingFile(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
