package search

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rgerrors "github.com/standardbeagle/rgcore/internal/errors"
	"github.com/standardbeagle/rgcore/internal/matcher"
	"github.com/standardbeagle/rgcore/internal/types"
)

// erroringMatcher always fails, letting tests exercise the
// KindMatcherError path without depending on a specific regexp failure.
type erroringMatcher struct{}

func (erroringMatcher) FindAt([]byte, int) (types.Match, bool, error) {
	return types.Match{}, false, stderrors.New("boom")
}
func (erroringMatcher) ShortestMatch([]byte) (bool, error) { return false, stderrors.New("boom") }
func (erroringMatcher) IsMatch([]byte) (bool, error)       { return false, stderrors.New("boom") }

func writeTempFile(t *testing.T, contents []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "input.txt")
	require.NoError(t, os.WriteFile(path, contents, 0o644))
	return path
}

func TestSearchPathNeverStreams(t *testing.T) {
	path := writeTempFile(t, []byte("foo\nbar\nbaz\n"))

	m, err := matcher.NewRegexpMatcher("bar", false)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.MmapChoice = MmapNever
	sink := &recordingSink{}

	require.NoError(t, New(cfg).SearchPath(m, sink, path))

	require.Equal(t, []string{"bar\n"}, sink.matchedStrings())
}

func TestSearchPathAutoMatchesNeverOnLargeFile(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < 4000; i++ {
		buf.WriteString("filler line\n")
	}
	buf.WriteString("the needle line\n")
	data := buf.Bytes()
	require.GreaterOrEqual(t, len(data), mmapAutoThreshold)
	path := writeTempFile(t, data)

	m, err := matcher.NewRegexpMatcher("needle", false)
	require.NoError(t, err)

	streamCfg := DefaultConfig()
	streamCfg.MmapChoice = MmapNever
	streamSink := &recordingSink{}
	require.NoError(t, New(streamCfg).SearchPath(m, streamSink, path))

	autoCfg := DefaultConfig()
	autoCfg.MmapChoice = MmapAuto
	autoSink := &recordingSink{}
	require.NoError(t, New(autoCfg).SearchPath(m, autoSink, path))

	require.Equal(t, streamSink.matchedStrings(), autoSink.matchedStrings())
	require.Equal(t, streamSink.finish.ByteCount, autoSink.finish.ByteCount)
}

func TestSearchPathAutoIgnoresSmallFile(t *testing.T) {
	path := writeTempFile(t, []byte("small file\nwith a match\n"))

	m, err := matcher.NewRegexpMatcher("match", false)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.MmapChoice = MmapAuto
	sink := &recordingSink{}

	require.NoError(t, New(cfg).SearchPath(m, sink, path))

	require.Equal(t, []string{"with a match\n"}, sink.matchedStrings())
}

func TestSearchPathMultiLineAuto(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < 4000; i++ {
		buf.WriteString("filler\n")
	}
	buf.WriteString("open(\nclose)\n")
	data := buf.Bytes()
	require.GreaterOrEqual(t, len(data), mmapAutoThreshold)
	path := writeTempFile(t, data)

	m, err := matcher.NewRegexpMatcher(`open\(\nclose\)`, false)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.MmapChoice = MmapAuto
	cfg.MultiLine = true
	sink := &recordingSink{}

	require.NoError(t, New(cfg).SearchPath(m, sink, path))

	require.Equal(t, []string{"open(\nclose)\n"}, sink.matchedStrings())
}

func TestSearchPathMissingFileIsIOError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.txt")
	m, err := matcher.NewRegexpMatcher("anything", false)
	require.NoError(t, err)

	err = New(DefaultConfig()).SearchPath(m, &recordingSink{}, path)
	require.Error(t, err)

	var se *rgerrors.SearchError
	require.True(t, stderrors.As(err, &se))
	assert.Equal(t, rgerrors.KindIOError, se.Kind)
	assert.Equal(t, path, se.Path)
}

func TestSearchPathMatcherFailureIsMatcherError(t *testing.T) {
	path := writeTempFile(t, []byte("one\ntwo\nthree\n"))

	cfg := DefaultConfig()
	cfg.MmapChoice = MmapNever
	err := New(cfg).SearchPath(erroringMatcher{}, &recordingSink{}, path)
	require.Error(t, err)

	var se *rgerrors.SearchError
	require.True(t, stderrors.As(err, &se))
	assert.Equal(t, rgerrors.KindMatcherError, se.Kind)
	assert.Equal(t, path, se.Path)
}
