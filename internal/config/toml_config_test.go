package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTOMLParsesWalkSearchWatchSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".rgcore.toml")
	content := `
types = ["go:*.go"]
include = ["*.go"]
exclude = ["*.log"]

[project]
root = "."

[walk]
hidden = "show"
same_file_system = true
max_depth = 4
max_filesize = "10MB"
sort = "name"
threads = 8

[search]
line_number = true
before_context = 2
after_context = 3
binary_detection = "convert"
mmap = "never"

[watch]
enabled = true
debounce_ms = 500
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadTOML(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "show", cfg.Walk.Hidden)
	assert.True(t, cfg.Walk.SameFileSystem)
	assert.Equal(t, 4, cfg.Walk.MaxDepth)
	assert.Equal(t, int64(10*1024*1024), cfg.Walk.MaxFilesize)
	assert.Equal(t, "name", cfg.Walk.Sort)
	assert.Equal(t, 8, cfg.Walk.Threads)

	assert.True(t, cfg.Search.LineNumber)
	assert.Equal(t, 2, cfg.Search.BeforeContext)
	assert.Equal(t, 3, cfg.Search.AfterContext)
	assert.Equal(t, "convert", cfg.Search.BinaryDetection)
	assert.Equal(t, "never", cfg.Search.Mmap)

	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, 500, cfg.Watch.DebounceMs)

	require.Len(t, cfg.Types, 1)
	assert.Equal(t, "go:*.go", cfg.Types[0].Definition)
	assert.Equal(t, []string{"*.go"}, cfg.Overrides)
	assert.Equal(t, []string{"*.log"}, cfg.Exclude)
}
