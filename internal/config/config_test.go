package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/rgcore/internal/linebuf"
	"github.com/standardbeagle/rgcore/internal/search"
	"github.com/standardbeagle/rgcore/internal/walk"
)

func TestDefaultHasSaneWalkAndSearchPolicy(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "hide", cfg.Walk.Hidden)
	assert.Equal(t, -1, cfg.Walk.MaxDepth)
	assert.Equal(t, "none", cfg.Walk.Sort)
	assert.Equal(t, "adaptive", cfg.Search.BufferPolicy)
	assert.Equal(t, "quit", cfg.Search.BinaryDetection)
}

func TestLoadWithNoSettingsFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, abs, cfg.Project.Root)
	assert.Equal(t, "hide", cfg.Walk.Hidden)
}

func TestLoadProjectTOMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
[walk]
hidden = "show"
max_depth = 3
threads = 2

[search]
line_number = true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".rgcore.toml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "show", cfg.Walk.Hidden)
	assert.Equal(t, 3, cfg.Walk.MaxDepth)
	assert.Equal(t, 2, cfg.Walk.Threads)
	assert.True(t, cfg.Search.LineNumber)
}

func TestLoadProjectKDLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := "walk {\n  hidden \"show\"\n  max_depth 5\n}\nsearch {\n  invert_match true\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".rgcore.kdl"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "show", cfg.Walk.Hidden)
	assert.Equal(t, 5, cfg.Walk.MaxDepth)
	assert.True(t, cfg.Search.InvertMatch)
}

func TestLoadPrefersTOMLOverKDLWhenBothPresent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".rgcore.toml"), []byte(`
[walk]
hidden = "show"
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".rgcore.kdl"), []byte(`
walk {
  hidden "hide"
}
`), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "show", cfg.Walk.Hidden)
}

func TestExcludePatternsAccumulateAcrossCascadeAndDedupe(t *testing.T) {
	base := Config{Exclude: []string{"*.log", "*.tmp"}}
	override := Config{Exclude: []string{"*.tmp", "*.bak"}}
	merged := merge(base, override)
	assert.ElementsMatch(t, []string{"*.log", "*.tmp", "*.bak"}, merged.Exclude)
}

func TestWalkConfigMaterializesHiddenPolicy(t *testing.T) {
	cfg := Default()
	cfg.Walk.Hidden = "show"
	wc, err := cfg.WalkConfig([]string{"."})
	require.NoError(t, err)
	assert.Equal(t, walk.ShowHidden, wc.Hidden)

	cfg.Walk.Hidden = "hide"
	wc, err = cfg.WalkConfig([]string{"."})
	require.NoError(t, err)
	assert.Equal(t, walk.HideHidden, wc.Hidden)
}

func TestWalkConfigMaterializesSort(t *testing.T) {
	cfg := Default()
	cfg.Walk.Sort = "name"
	wc, err := cfg.WalkConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, walk.SortName, wc.Sort)
}

func TestSearchConfigMaterializesBufferAndBinaryPolicy(t *testing.T) {
	cfg := Default()
	cfg.Search.BufferPolicy = "fixed"
	cfg.Search.BinaryDetection = "convert"
	cfg.Search.Mmap = "never"

	sc := cfg.SearchConfig()
	assert.Equal(t, byte('\n'), sc.LineTerminator)
	assert.Equal(t, linebuf.Fixed, sc.BufferPolicy)
	assert.Equal(t, linebuf.DetectConvert, sc.BinaryDetection.Mode)
	assert.Equal(t, search.MmapNever, sc.MmapChoice)
}

func TestBuildTypesAppliesSelectAndNegate(t *testing.T) {
	cfg := Default()
	cfg.Types = []TypeDef{
		{Definition: "go:*.go", Select: true},
	}
	types, err := cfg.BuildTypes()
	require.NoError(t, err)
	require.NotNil(t, types)
}

func TestBuildOverrideCompilesPatterns(t *testing.T) {
	cfg := Default()
	cfg.Overrides = []string{"*.go", "!*_test.go"}
	o, err := cfg.BuildOverride()
	require.NoError(t, err)
	require.NotNil(t, o)
}

func TestBuildGlobalMatcherReturnsNilWhenNoExcludes(t *testing.T) {
	cfg := Default()
	m, err := cfg.BuildGlobalMatcher()
	require.NoError(t, err)
	assert.Nil(t, m)
}
