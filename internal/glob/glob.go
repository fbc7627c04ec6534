// Package glob compiles shell-style glob patterns (spec.md §4.1) into a
// GlobSet that reports every matching glob for a candidate path, not just
// the first. Patterns are matched with doublestar so that `**` spans path
// components the way ignore files expect, while `/` stays a literal
// separator never consumed by `*`, `?`, or a character class.
package glob

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Glob is one compiled pattern plus its provenance (spec.md §3 "Glob").
type Glob struct {
	Original  string // pattern exactly as written, modifiers included
	matchPat  string // pattern with modifiers stripped, ready for doublestar
	Negate    bool   // leading '!'
	Directory bool   // trailing '/'
	Anchored  bool   // leading '/' (anchored to the ignore-file's directory)

	// Provenance for diagnostics.
	SourceFile string
	SourceLine int
}

// Compile parses a single glob line (as it would appear in an ignore
// file) into a Glob. It does not evaluate `#` comments or blank-line
// skipping — that is the ignore-file reader's job (internal/ignore).
func Compile(line string, sourceFile string, sourceLine int) (*Glob, error) {
	g := &Glob{Original: line, SourceFile: sourceFile, SourceLine: sourceLine}

	pat := line
	if strings.HasPrefix(pat, "!") {
		g.Negate = true
		pat = pat[1:]
	}
	if strings.HasSuffix(pat, "/") && !strings.HasSuffix(pat, `\/`) {
		g.Directory = true
		pat = strings.TrimSuffix(pat, "/")
	}
	if strings.HasPrefix(pat, "/") {
		g.Anchored = true
		pat = pat[1:]
	}

	if pat == "" {
		return nil, fmt.Errorf("glob: empty pattern after modifiers in %q", line)
	}
	if !doublestar.ValidatePattern(pat) {
		return nil, fmt.Errorf("glob: invalid pattern %q", line)
	}

	// An unanchored pattern with no interior separator matches at any
	// depth, i.e. it is implicitly "**/pat". A pattern containing a
	// separator (anchored or not) matches against the full relative path.
	if !g.Anchored && !strings.Contains(pat, "/") {
		pat = "**/" + pat
	}

	g.matchPat = pat
	return g, nil
}

// Match reports whether path (already normalized, see Normalize) matches
// this glob, given whether the candidate is a directory.
func (g *Glob) Match(p string, isDir bool) bool {
	if g.Directory && !isDir {
		// A directory-only glob can still match a file nested under the
		// matched directory; that containment check is the ignore
		// matcher's job (it re-checks ancestor directories), so here we
		// only decide whether the literal candidate path matches.
		return false
	}
	ok, _ := doublestar.Match(g.matchPat, p)
	return ok
}

// CouldMatchUnder reports whether this glob could possibly match some
// path strictly inside dir (already normalized, relative to the same
// root this glob was compiled against). It is a conservative over-
// approximation — any wildcard segment is assumed to match whatever
// dir's corresponding segment is — used by the ignore stack's directory-
// pruning lookahead so a negated pattern reachable only from inside an
// otherwise-ignored directory isn't pruned away before it is ever
// considered (spec.md §4.2's directory-rescue scenario).
func (g *Glob) CouldMatchUnder(dir string) bool {
	if dir == "" || dir == "." {
		return true
	}
	pat := g.matchPat
	if strings.HasPrefix(pat, "**/") {
		return true
	}
	dirSegs := strings.Split(dir, "/")
	patSegs := strings.Split(pat, "/")
	for i, seg := range dirSegs {
		if i >= len(patSegs) {
			return false
		}
		if patSegs[i] == "**" {
			// `**` spans any number of segments, so every path below
			// this point is still reachable.
			return true
		}
		if strings.ContainsAny(patSegs[i], "*?[") {
			continue
		}
		if patSegs[i] != seg {
			return false
		}
	}
	return len(patSegs) > len(dirSegs)
}

// Normalize collapses path separators to '/' and strips a leading "./",
// per spec.md §4.1 "Path normalization".
func Normalize(p string) string {
	p = filepathToSlash(p)
	p = strings.TrimPrefix(p, "./")
	return path.Clean(p)
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
