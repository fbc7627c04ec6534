package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRunFindsMatchAndExitsZero(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "hello world\nfoo bar\n")

	var code int
	out := captureStdout(t, func() {
		code = run([]string{"rgcore", "--root", dir, "hello", dir})
	})

	assert.Equal(t, exitMatch, code)
	assert.Contains(t, out, "hello world")
}

func TestRunNoMatchExitsOne(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "nothing interesting here\n")

	code := run([]string{"rgcore", "--root", dir, "zzz_not_found", dir})
	assert.Equal(t, exitNoMatch, code)
}

func TestRunMissingPatternExitsTwo(t *testing.T) {
	code := run([]string{"rgcore"})
	assert.Equal(t, exitError, code)
}

func TestRunInvalidPatternExitsTwo(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "x\n")

	code := run([]string{"rgcore", "--root", dir, "(unclosed", dir})
	assert.Equal(t, exitError, code)
}

func TestRunLineNumberFlagPrefixesLineNumbers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "one\ntwo\nthree\n")

	var code int
	out := captureStdout(t, func() {
		code = run([]string{"rgcore", "-n", "--root", dir, "two", dir})
	})

	assert.Equal(t, exitMatch, code)
	assert.Contains(t, out, ":2:two")
}

func TestRunHiddenFlagIncludesDotfiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".hidden.txt", "secret marker\n")

	var code int
	out := captureStdout(t, func() {
		code = run([]string{"rgcore", "--hidden", "--root", dir, "marker", dir})
	})

	assert.Equal(t, exitMatch, code)
	assert.Contains(t, out, "secret marker")
}

func TestRunWithoutHiddenFlagSkipsDotfiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".hidden.txt", "secret marker\n")

	code := run([]string{"rgcore", "--root", dir, "marker", dir})
	assert.Equal(t, exitNoMatch, code)
}

func TestPrependConfigFileArgsInsertsTokensAfterProgramName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rgcore.conf")
	writeFile(t, dir, "rgcore.conf", "# a comment\n--hidden\n\n-n\n")

	t.Setenv("RGCORE_CONFIG_PATH", path)

	got := prependConfigFileArgs([]string{"rgcore", "pattern"})
	assert.Equal(t, []string{"rgcore", "--hidden", "-n", "pattern"}, got)
}

func TestPrependConfigFileArgsNoopWhenEnvUnset(t *testing.T) {
	t.Setenv("RGCORE_CONFIG_PATH", "")
	got := prependConfigFileArgs([]string{"rgcore", "pattern"})
	assert.Equal(t, []string{"rgcore", "pattern"}, got)
}

func TestRunExitsTwoWhenErrorRecordedEvenWithMatches(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "hello world\n")
	locked := filepath.Join(dir, "locked")
	require.NoError(t, os.Mkdir(locked, 0o000))
	defer os.Chmod(locked, 0o755)

	var code int
	out := captureStdout(t, func() {
		code = run([]string{"rgcore", "--root", dir, "hello", dir})
	})

	assert.Equal(t, exitError, code)
	assert.Contains(t, out, "hello world")
}

func TestRunRespectsConfigFileEnvVar(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".hidden.txt", "secret marker\n")
	confPath := filepath.Join(dir, "rgcore.conf")
	writeFile(t, dir, "rgcore.conf", "--hidden\n")
	t.Setenv("RGCORE_CONFIG_PATH", confPath)

	code := run([]string{"rgcore", "--root", dir, "marker", dir})
	assert.Equal(t, exitMatch, code)
}
