package glob

// GlobSet compiles many globs into a single matcher that returns, for a
// candidate path, the indices of every matching glob (spec.md §4.1). The
// observable contract is "report every match"; internally we just scan
// linearly since ignore files rarely hold more than a few hundred
// patterns and this is not the hot loop (the walker calls it once per
// directory entry, not per byte).
type GlobSet struct {
	globs []*Glob
}

// NewGlobSet builds a GlobSet from already-compiled globs.
func NewGlobSet(globs []*Glob) *GlobSet {
	return &GlobSet{globs: append([]*Glob(nil), globs...)}
}

// Add appends a glob to the set.
func (s *GlobSet) Add(g *Glob) {
	s.globs = append(s.globs, g)
}

// Len returns the number of globs in the set.
func (s *GlobSet) Len() int { return len(s.globs) }

// At returns the glob at index i, in addition order.
func (s *GlobSet) At(i int) *Glob { return s.globs[i] }

// Matches returns the indices of every glob matching the normalized path,
// in addition order (index 0 is the first glob Added).
func (s *GlobSet) Matches(p string, isDir bool) []int {
	var out []int
	for i, g := range s.globs {
		if g.Match(p, isDir) {
			out = append(out, i)
		}
	}
	return out
}

// MatchesReverse returns the indices of every matching glob in reverse
// addition order, the traversal order spec.md §4.2 requires ("scan
// matches in reverse addition order").
func (s *GlobSet) MatchesReverse(p string, isDir bool) []int {
	var out []int
	for i := len(s.globs) - 1; i >= 0; i-- {
		if s.globs[i].Match(p, isDir) {
			out = append(out, i)
		}
	}
	return out
}
