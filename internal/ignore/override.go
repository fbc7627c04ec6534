package ignore

import (
	"github.com/standardbeagle/rgcore/internal/glob"
)

// Override implements the command-line include/exclude glob matcher
// (spec.md §4.3 "Override"). It reuses the ignore-file matcher's glob
// compilation but inverts the sense of '!': a bare glob (no leading '!')
// acts as a whitelist entry, and '!glob' acts as an exclude. Grounded on
// the teacher's internal/indexing/pipeline_types.go
// shouldExcludeFast/shouldIncludeFast split, unified here into the single
// reverse-priority scan spec.md describes.
type Override struct {
	set        *glob.GlobSet
	hasInclude bool
}

// NewOverride compiles a list of raw override patterns, as they would
// arrive from repeated `-g`/`--glob` flags. Each pattern may be negated
// with a leading '!'; compilation semantics (directory-only, anchoring,
// `**`) match an ordinary glob line.
func NewOverride(patterns []string) (*Override, error) {
	o := &Override{set: glob.NewGlobSet(nil)}
	for i, p := range patterns {
		g, err := glob.Compile(p, "<override>", i+1)
		if err != nil {
			return nil, err
		}
		o.set.Add(g)
		if !g.Negate {
			o.hasInclude = true
		}
	}
	return o, nil
}

// Matched classifies path per spec.md §4.3: directories are never ignored
// by an unmatched override (so the walker can still descend to find
// whitelisted contents below); an unmatched non-directory path is
// reported Ignore only when the override set contains at least one
// whitelist (non-negated) glob.
func (o *Override) Matched(path string, isDir bool) Decision {
	rel := glob.Normalize(path)
	if g := deepestMatch(o.set, rel, isDir); g != nil {
		// Inverted sense: bare glob whitelists, '!' glob excludes.
		if g.Negate {
			return Ignore
		}
		return Whitelist
	}
	if isDir {
		return None
	}
	if o.hasInclude {
		return Ignore
	}
	return None
}

// IsEmpty reports whether no override patterns were supplied.
func (o *Override) IsEmpty() bool { return o.set.Len() == 0 }

// HasNegationUnder reports whether some whitelisting override glob could
// still match a path strictly inside dir — the override analogue of
// Matcher.HasNegationUnder. Override inverts the usual sense of '!', so
// here the rescuing glob is a bare (non-negated) one: '!' excludes in an
// override, so it is the un-prefixed glob that plays the whitelist role
// Matcher gives to a Negate glob.
func (o *Override) HasNegationUnder(dir string) bool {
	rel := glob.Normalize(dir)
	for i := 0; i < o.set.Len(); i++ {
		g := o.set.At(i)
		if !g.Negate && g.CouldMatchUnder(rel) {
			return true
		}
	}
	return false
}
