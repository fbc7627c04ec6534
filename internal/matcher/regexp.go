package matcher

import (
	"regexp"

	"github.com/standardbeagle/rgcore/internal/types"
)

// RegexpMatcher adapts the standard library's RE2 engine to the Matcher
// interface. It is the module's only concrete matcher: a stand-in for
// whatever real engine a caller wires in, grounded loosely on the
// teacher's internal/regex_analyzer/engine.go (compile once, reuse
// across searches) but without that package's trigram-filtering cache,
// which has no equivalent at this layer.
//
// A *regexp.Regexp is already safe for concurrent use, so RegexpMatcher
// needs no locking of its own.
type RegexpMatcher struct {
	re *regexp.Regexp
}

// NewRegexpMatcher compiles pattern. caseInsensitive wraps the pattern in
// the `(?i)` flag rather than requiring the caller to do so.
func NewRegexpMatcher(pattern string, caseInsensitive bool) (*RegexpMatcher, error) {
	if caseInsensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &RegexpMatcher{re: re}, nil
}

// FindAt returns the leftmost match starting at or after at.
func (m *RegexpMatcher) FindAt(haystack []byte, at int) (types.Match, bool, error) {
	if at > len(haystack) {
		return types.Match{}, false, nil
	}
	loc := m.re.FindSubmatchIndex(haystack[at:])
	if loc == nil {
		return types.Match{}, false, nil
	}
	return submatchToMatch(loc, at), true, nil
}

// ShortestMatch reports only whether haystack contains a match.
func (m *RegexpMatcher) ShortestMatch(haystack []byte) (bool, error) {
	return m.re.Match(haystack), nil
}

// IsMatch reports whether haystack matches anywhere.
func (m *RegexpMatcher) IsMatch(haystack []byte) (bool, error) {
	return m.re.Match(haystack), nil
}

// FindCandidateLine implements CandidateLineFinder by running the real
// matcher and reporting the match as Confirmed — RE2 has no cheaper
// pre-filter at this layer, unlike a trigram- or literal-accelerated
// engine, so every candidate is already a confirmed result.
func (m *RegexpMatcher) FindCandidateLine(haystack []byte) (LineCandidate, error) {
	loc := m.re.FindIndex(haystack)
	if loc == nil {
		return LineCandidate{Kind: NoCandidate}, nil
	}
	return LineCandidate{Kind: Confirmed, Offset: loc[0]}, nil
}

// NonMatchingBytes implements NonMatchingBytes for the common case of a
// literal pattern containing no line terminator: every byte not among
// the pattern's literal bytes is provably non-matching. Patterns with
// any metacharacter return ok=false — proving a non-matching set for an
// arbitrary RE2 program is not attempted here.
func (m *RegexpMatcher) NonMatchingBytes() (set [256]bool, ok bool) {
	lit, complete := m.re.LiteralPrefix()
	if !complete || lit == "" || m.re.String() != regexp.QuoteMeta(lit) {
		return set, false
	}
	for i := range set {
		set[i] = true
	}
	for i := 0; i < len(lit); i++ {
		set[lit[i]] = false
	}
	return set, true
}

func submatchToMatch(loc []int, offset int) types.Match {
	groups := make([]types.Group, len(loc)/2)
	for i := range groups {
		s, e := loc[2*i], loc[2*i+1]
		if s < 0 || e < 0 {
			continue
		}
		groups[i] = types.Group{Range: types.NewRange(offset+s, offset+e), Matched: true}
	}
	return types.Match{Range: groups[0].Range, Groups: groups}
}
