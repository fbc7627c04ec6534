// Package ignore implements the ignore-file matcher (spec.md §4.2), the
// override and type matchers (§4.3), and the ref-counted ignore Stack
// (§3 "Ignore stack") that the walker composes per directory.
//
// The single-file matcher is grounded on the teacher's
// internal/config/gitignore.go (GitignoreParser/GitignorePattern,
// negation/directory/absolute modifiers, reverse-priority scanning), but
// reworked from "last match wins, boolean ignored" into spec.md's
// three-way Ignore/Whitelist/None classification plus
// matched_or_any_parents.
package ignore

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/standardbeagle/rgcore/internal/debug"
	rgerrors "github.com/standardbeagle/rgcore/internal/errors"
	"github.com/standardbeagle/rgcore/internal/glob"
)

// Decision is the three-way result of matching a path against an ignore
// matcher (spec.md §4.2).
type Decision int

const (
	None Decision = iota
	Ignore
	Whitelist
)

// Matcher classifies a path against one ignore file's compiled globs.
type Matcher struct {
	root string // directory the ignore file lives in; paths are relative to this
	set  *glob.GlobSet

	// LineErrors holds non-fatal parse errors for individual lines,
	// attached to the owning directory's walk entry (spec.md §4.4
	// "Failure semantics": "pattern parse errors are non-fatal").
	LineErrors []error
}

// New parses the ignore-file content from r. root is the directory the
// file lives in (patterns are relative to it); name is used only for
// provenance/diagnostics.
func New(root, name string, r io.Reader) (*Matcher, error) {
	m := &Matcher{root: root, set: glob.NewGlobSet(nil)}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		line = trimTrailingUnescapedSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		g, err := glob.Compile(line, name, lineNo)
		if err != nil {
			lineErr := fmt.Errorf("%s:%d: %w", name, lineNo, err)
			m.LineErrors = append(m.LineErrors, rgerrors.New(rgerrors.KindInvalidIgnoreLine, name, lineErr))
			debug.LogIgnore("skipping bad pattern %s:%d: %v", name, lineNo, err)
			continue
		}
		m.set.Add(g)
	}
	if err := scanner.Err(); err != nil {
		return m, err
	}
	return m, nil
}

// FromFile opens and parses path as an ignore file. A missing file is not
// an error (spec.md treats a missing per-directory ignore file as simply
// "no rules"); any other I/O error is returned so the caller can attach
// it as a partial, non-fatal error to the directory's walk entry.
func FromFile(root, path string) (*Matcher, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return New(root, path, f)
}

// relative strips m.root from p, rejecting absolute paths per spec.md
// §4.2 step 1 ("reject absolute paths").
func (m *Matcher) relative(p string) (string, bool) {
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(m.root, p)
		if err != nil || strings.HasPrefix(rel, "..") {
			return "", false
		}
		return glob.Normalize(rel), true
	}
	return glob.Normalize(p), true
}

// Matched classifies path (relative to the ignore file's root, or
// absolute as long as it is inside root) per spec.md §4.2 steps 2-4.
func (m *Matcher) Matched(path string, isDir bool) Decision {
	rel, ok := m.relative(path)
	if !ok {
		return None
	}
	g := deepestMatch(m.set, rel, isDir)
	if g == nil {
		return None
	}
	if g.Negate {
		return Whitelist
	}
	return Ignore
}

// matchAtDepth scans set once against rel with no ancestor fallback and
// returns the highest-priority (most recently added) matching glob, or
// nil if none match.
func matchAtDepth(set *glob.GlobSet, rel string, isDir bool) *glob.Glob {
	for i := set.Len() - 1; i >= 0; i-- {
		if g := set.At(i); g.Match(rel, isDir) {
			return g
		}
	}
	return nil
}

// deepestMatch classifies rel by evaluating every ancestor directory from
// the ignore file's root down to rel itself, in order, and keeping
// whichever level last produced a match. This is what lets a more
// specific whitelist rule (`!target/keep`) rescue a subtree that a
// shallower directory-only ignore rule (`target/`) would otherwise
// prune entirely: a flat single-level scan sees only the rule that
// matches rel's own literal name, which for a directory-only glob is an
// ancestor several levels up and has no way to know a deeper, later
// glob already re-included one of its descendants (spec.md §4.2's
// directory-rescue scenario).
func deepestMatch(set *glob.GlobSet, rel string, isDir bool) *glob.Glob {
	segs := strings.Split(rel, "/")
	var found *glob.Glob
	cur := ""
	for i, seg := range segs {
		if cur == "" {
			cur = seg
		} else {
			cur += "/" + seg
		}
		segIsDir := isDir || i < len(segs)-1
		if g := matchAtDepth(set, cur, segIsDir); g != nil {
			found = g
		}
	}
	return found
}

// HasNegationUnder reports whether some negated (whitelist) glob in this
// matcher could still match a path strictly inside dir. The walker calls
// this before pruning a directory matched Ignore, so a rule like
// `!target/keep` isn't rendered unreachable by a broader `target/` rule
// that would otherwise stop descent at "target" itself.
func (m *Matcher) HasNegationUnder(dir string) bool {
	rel, ok := m.relative(dir)
	if !ok {
		return false
	}
	for i := 0; i < m.set.Len(); i++ {
		g := m.set.At(i)
		if g.Negate && g.CouldMatchUnder(rel) {
			return true
		}
	}
	return false
}

// MatchedOrAnyParents starts at path and, while the result is None, walks
// upward matching each ancestor as a directory, stopping at the ignore
// file's root (spec.md §4.2 "Traversal-scoped variant"). Required when an
// ignored directory was not pruned by the walker, e.g. the user passed
// the path explicitly.
func (m *Matcher) MatchedOrAnyParents(path string, isDir bool) Decision {
	rel, ok := m.relative(path)
	if !ok {
		return None
	}
	for {
		if d := m.Matched(rel, isDir); d != None {
			return d
		}
		idx := strings.LastIndexByte(rel, '/')
		if idx < 0 {
			return None
		}
		rel = rel[:idx]
		isDir = true
	}
}

// trimTrailingUnescapedSpace trims trailing whitespace that isn't
// escaped with a backslash, per spec.md §6 "trailing unescaped whitespace
// is trimmed".
func trimTrailingUnescapedSpace(line string) string {
	for len(line) > 0 && (line[len(line)-1] == ' ' || line[len(line)-1] == '\t') {
		if len(line) >= 2 && line[len(line)-2] == '\\' {
			line = line[:len(line)-2] + line[len(line)-1:]
			break
		}
		line = line[:len(line)-1]
	}
	return line
}
