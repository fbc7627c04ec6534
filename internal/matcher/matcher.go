// Package matcher defines the pattern-matching capability the searcher
// depends on (spec.md §3 "Matcher capability") and ships one concrete
// implementation, RegexpMatcher, as a stand-in for the real regex engine
// — which spec.md §1/§6 explicitly treats as an out-of-scope external
// collaborator. Everything in this package exists only so the rest of
// the module has something to compile and test against.
package matcher

import "github.com/standardbeagle/rgcore/internal/types"

// CandidateKind distinguishes a confirmed match from one that still
// needs verification against the full line (spec.md §4.6 "fast path").
type CandidateKind int

const (
	// NoCandidate means no more matches exist in the searched chunk.
	NoCandidate CandidateKind = iota
	// Confirmed means the line containing the returned offset is known
	// to match without further verification.
	Confirmed
	// Candidate means the line containing the returned offset might
	// match; the caller must verify with IsMatch.
	Candidate
)

// LineCandidate is the result of FindCandidateLine.
type LineCandidate struct {
	Kind   CandidateKind
	Offset int
}

// Matcher is the polymorphic matching capability the searcher is built
// against (spec.md §3). Implementations must be safe for concurrent use
// by distinct searchers, or cheaply cloneable (spec.md §5 "matchers must
// be cheaply cloneable or shared behind a thread-safe handle").
type Matcher interface {
	// FindAt returns the leftmost match in haystack starting the search
	// no earlier than at, or ok=false if there is none.
	FindAt(haystack []byte, at int) (types.Match, bool, error)

	// ShortestMatch reports only whether a match exists in haystack,
	// without necessarily computing its full extent — cheaper than
	// FindAt when only a boolean is needed (spec.md §4.6 "slow path").
	ShortestMatch(haystack []byte) (bool, error)

	// IsMatch reports whether haystack matches, in its entirety treated
	// as the search space (a convenience wrapper most implementations
	// can derive directly from ShortestMatch).
	IsMatch(haystack []byte) (bool, error)
}

// LineTerminatorAware is implemented by matchers that can declare a
// fixed line terminator they were compiled against, enabling the fast
// line-by-line path (spec.md §4.6).
type LineTerminatorAware interface {
	// LineTerminator returns the configured terminator and true if the
	// matcher is known to never match across a differently-terminated
	// boundary.
	LineTerminator() (byte, bool)
}

// CandidateLineFinder is implemented by matchers that can cheaply locate
// a line that might contain a match without running the full matcher
// (spec.md §4.6 "fast path": "repeatedly calls find_candidate_line").
type CandidateLineFinder interface {
	FindCandidateLine(haystack []byte) (LineCandidate, error)
}

// NonMatchingBytes is implemented by matchers that can report a set of
// bytes the pattern provably never matches — used to prove a multiline
// search is actually single-line-safe (spec.md §3 "non-matching
// byte-set").
type NonMatchingBytes interface {
	// NonMatchingBytes returns true for every byte the pattern is known
	// to never match.
	NonMatchingBytes() (set [256]bool, ok bool)
}
