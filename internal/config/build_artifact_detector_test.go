package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectOutputDirectoriesFindsTsconfigOutDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tsconfig.json"), []byte(`{
		"compilerOptions": {"outDir": "build-out"}
	}`), 0o644))

	patterns := NewBuildArtifactDetector(dir).DetectOutputDirectories()
	assert.Contains(t, patterns, "**/build-out/**")
}

func TestDetectOutputDirectoriesFindsPackageJSONBuildConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{
		"build": {"outDir": "dist-custom"}
	}`), 0o644))

	patterns := NewBuildArtifactDetector(dir).DetectOutputDirectories()
	assert.Contains(t, patterns, "**/dist-custom/**")
}

func TestDetectOutputDirectoriesFindsCargoTargetDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(`
[profile.release]
target-dir = "custom-target"
`), 0o644))

	patterns := NewBuildArtifactDetector(dir).DetectOutputDirectories()
	assert.Contains(t, patterns, "**/custom-target/**")
}

func TestDetectOutputDirectoriesEmptyWhenNoBuildConfigsPresent(t *testing.T) {
	dir := t.TempDir()
	patterns := NewBuildArtifactDetector(dir).DetectOutputDirectories()
	assert.Empty(t, patterns)
}

func TestDeduplicatePatternsRemovesDuplicatesPreservingOrder(t *testing.T) {
	got := DeduplicatePatterns([]string{"**/a/**", "**/b/**", "**/a/**"})
	assert.Equal(t, []string{"**/a/**", "**/b/**"}, got)
}

// TestLoadEnrichesExcludeWithDetectedBuildOutput exercises the detector
// through Config.Load's enrichExcludeWithBuildArtifacts wiring, not just
// in isolation, per SPEC_FULL.md §6's exclude-list enrichment.
func TestLoadEnrichesExcludeWithDetectedBuildOutput(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tsconfig.json"), []byte(`{
		"compilerOptions": {"outDir": "out-dir-from-tsconfig"}
	}`), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Contains(t, cfg.Exclude, "**/out-dir-from-tsconfig/**")
}
