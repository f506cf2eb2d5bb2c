package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[bug]
num = 5
max_try = 30
byte_num = 16
inter_num = 6

[mutate]
trials = 200
step_timeout = "2s"

[target]
name = "bank_of_threads"
srcdir = "target/src"

[worker]
concurrency = 4

[artifact]
dir = "out"
s3_bucket = "concuject-artifacts"
s3_prefix = "runs/1"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Bug.Num)
	assert.Equal(t, 30, cfg.Bug.MaxTry)
	assert.Equal(t, 2*time.Second, cfg.Mutate.StepTimeout.Duration())
	assert.Equal(t, "bank_of_threads", cfg.Target.Name)
	assert.Equal(t, 4, cfg.Worker.Concurrency)
	assert.Equal(t, "concuject-artifacts", cfg.Artifact.S3Bucket)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("typo_field = 1\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1, cfg.Bug.Num)
	assert.Equal(t, 20, cfg.Bug.MaxTry)
}
