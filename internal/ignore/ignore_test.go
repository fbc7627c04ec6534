package ignore

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rgerrors "github.com/standardbeagle/rgcore/internal/errors"
)

func mustMatcher(t *testing.T, root, content string) *Matcher {
	t.Helper()
	m, err := New(root, "<test>", strings.NewReader(content))
	assert.NoError(t, err)
	return m
}

func TestMatcherBasics(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		path     string
		isDir    bool
		expected Decision
	}{
		{"simple file match", "README.md", "README.md", false, Ignore},
		{"simple file no match", "README.md", "main.go", false, None},
		{"comment and blank skipped", "# comment\n\n*.log", "a.log", false, Ignore},
		{"directory matches directory", "node_modules/", "node_modules", true, Ignore},
		{"directory matches nested file", "node_modules/", "node_modules/react/index.js", false, Ignore},
		{"directory no match outside", "node_modules/", "src/main.js", false, None},
		{"absolute pattern matches root only", "/build", "build", true, Ignore},
		{"negation whitelists", "target/\n!target/keep", "target/keep", false, Whitelist},
		{"negation whitelists directory variant", "target/\n!target/keep/", "target/keep", true, Whitelist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustMatcher(t, "/root", tt.content)
			assert.Equal(t, tt.expected, m.Matched(tt.path, tt.isDir))
		})
	}
}

func TestMatcherWhitelistRescuesWholeSubtree(t *testing.T) {
	// A directory-only ignore rule combined with a negated rule for one of
	// its subdirectories whitelists everything under that subdirectory,
	// not just the literal directory name itself.
	m := mustMatcher(t, "/root", "target/\n!target/keep")
	assert.Equal(t, Ignore, m.Matched("target/a.rs", false))
	assert.Equal(t, Whitelist, m.Matched("target/keep/x.rs", false))
	assert.Equal(t, Whitelist, m.Matched("target/keep", true))
	assert.Equal(t, Ignore, m.Matched("target", true))
}

func TestMatcherHasNegationUnder(t *testing.T) {
	m := mustMatcher(t, "/root", "target/\n!target/keep")
	assert.True(t, m.HasNegationUnder("target"))
	assert.False(t, m.HasNegationUnder("other"))
	assert.False(t, m.HasNegationUnder("target/keep"))
}

func TestMatcherReverseAdditionOrderWins(t *testing.T) {
	// Later rules override earlier ones when both match.
	m := mustMatcher(t, "/root", "*.log\n!keep.log")
	assert.Equal(t, Whitelist, m.Matched("keep.log", false))
	assert.Equal(t, Ignore, m.Matched("other.log", false))
}

func TestMatcherRejectsAbsolutePaths(t *testing.T) {
	m := mustMatcher(t, "/root/sub", "*.log")
	// A path outside m's root cannot be classified.
	assert.Equal(t, None, m.Matched("/elsewhere/a.log", false))
}

func TestMatcherBadLineIsNonFatal(t *testing.T) {
	m, err := New("/root", "<test>", strings.NewReader("*.log\na[\nvalid.txt"))
	assert.NoError(t, err)
	assert.Len(t, m.LineErrors, 1)
	assert.Equal(t, Ignore, m.Matched("valid.txt", false))
	assert.Equal(t, Ignore, m.Matched("x.log", false))

	var se *rgerrors.SearchError
	require.True(t, stderrors.As(m.LineErrors[0], &se))
	assert.Equal(t, rgerrors.KindInvalidIgnoreLine, se.Kind)
}

func TestMatchedOrAnyParents(t *testing.T) {
	m := mustMatcher(t, "/root", "target/")
	// Walker didn't prune target/, so a file deep inside is passed
	// explicitly; MatchedOrAnyParents must still find the ancestor rule.
	assert.Equal(t, Ignore, m.MatchedOrAnyParents("target/deep/nested/file.txt", false))
	assert.Equal(t, None, m.MatchedOrAnyParents("src/file.txt", false))
}

func TestFromFileMissingIsNotError(t *testing.T) {
	m, err := FromFile("/tmp", "/tmp/does-not-exist-rgcore-test/.ignore")
	assert.NoError(t, err)
	assert.Nil(t, m)
}
