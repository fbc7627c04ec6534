package search

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/rgcore/internal/matcher"
)

// windows-1252 encodes 'é' as the single byte 0xE9; UTF-8 encodes it as
// the two bytes 0xC3 0xA9. Searching for "é" only succeeds if the
// configured encoding was actually consumed before matching.
var latin1Line = []byte{0xE9, '\n'}

func TestSearchSliceTranscodesConfiguredEncoding(t *testing.T) {
	m, err := matcher.NewRegexpMatcher("é", false)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Encoding = "windows-1252"
	sink := &recordingSink{}

	require.NoError(t, New(cfg).SearchSlice(m, sink, latin1Line))
	assert.Equal(t, []string{"é\n"}, sink.matchedStrings())
}

func TestSearchReaderTranscodesConfiguredEncoding(t *testing.T) {
	m, err := matcher.NewRegexpMatcher("é", false)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Encoding = "windows-1252"
	sink := &recordingSink{}

	require.NoError(t, New(cfg).SearchReader(m, sink, bytes.NewReader(latin1Line)))
	assert.Equal(t, []string{"é\n"}, sink.matchedStrings())
}

func TestSearchSliceWithoutEncodingLeavesBytesAlone(t *testing.T) {
	m, err := matcher.NewRegexpMatcher("plain", false)
	require.NoError(t, err)

	sink := &recordingSink{}
	require.NoError(t, New(DefaultConfig()).SearchSlice(m, sink, []byte("plain\n")))
	assert.Equal(t, []string{"plain\n"}, sink.matchedStrings())
}

func TestSearchSliceUnknownEncodingIsAnError(t *testing.T) {
	m, err := matcher.NewRegexpMatcher("x", false)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Encoding = "not-a-real-encoding"
	err = New(cfg).SearchSlice(m, &recordingSink{}, []byte("x\n"))
	require.Error(t, err)
}

func TestSearchPathTranscodesConfiguredEncoding(t *testing.T) {
	path := writeTempFile(t, latin1Line)

	m, err := matcher.NewRegexpMatcher("é", false)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Encoding = "windows-1252"
	cfg.MmapChoice = MmapNever
	sink := &recordingSink{}

	require.NoError(t, New(cfg).SearchPath(m, sink, path))
	assert.Equal(t, []string{"é\n"}, sink.matchedStrings())
}

// TestSearcherDecoderResetsBetweenFiles guards against shift-state leaking between
// files when a single Searcher (and its cached decoder) is reused, as
// spec.md §5 requires.
func TestSearcherDecoderResetsBetweenFiles(t *testing.T) {
	m, err := matcher.NewRegexpMatcher("é", false)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Encoding = "windows-1252"
	s := New(cfg)

	for i := 0; i < 3; i++ {
		sink := &recordingSink{}
		require.NoError(t, s.SearchSlice(m, sink, latin1Line))
		assert.Equal(t, []string{"é\n"}, sink.matchedStrings(), "iteration %d", i)
	}
}
