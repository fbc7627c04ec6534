package ignore

import "sync/atomic"

// Frame is one immutable, ref-counted level of the ignore stack: the
// compiled ignore-file matcher for one directory that actually contained
// an ignore file (spec.md §3 "Ignore stack": "descending into a
// subdirectory pushes a new frame if and only if that subdirectory
// contains an ignore file"). The ref-count itself is atomic rather than a
// plain int32, since spec.md §4.4's parallel walker shares a directory's
// Frame across sibling worker goroutines — one frame can be retained and
// released concurrently from more than one directory's traversal.
type Frame struct {
	Matcher *Matcher
	parent  *Frame
	refs    *int32
}

// NewRootFrame creates the root frame of a stack (no parent). Returns nil
// if m is nil — a stack starts with no frame until a directory with an
// ignore file is first visited.
func NewRootFrame(m *Matcher) *Frame {
	if m == nil {
		return nil
	}
	refs := int32(1)
	return &Frame{Matcher: m, refs: &refs}
}

// Push creates a child frame over f holding m. If m is nil (the directory
// had no ignore file), Push returns f unchanged — no frame is created,
// matching spec.md's "if and only if" condition.
func (f *Frame) Push(m *Matcher) *Frame {
	if m == nil {
		f.retain()
		return f
	}
	refs := int32(1)
	child := &Frame{Matcher: m, parent: f, refs: &refs}
	f.retain()
	return child
}

func (f *Frame) retain() {
	if f != nil {
		atomic.AddInt32(f.refs, 1)
	}
}

// Release decrements the frame's (and its ancestors') ref-count. A stack
// frame is destroyed (conceptually — Go's GC does the actual reclaiming)
// once every walker has moved out of its subtree, i.e. ref-count reaches
// zero (spec.md §3 "Lifecycles").
func (f *Frame) Release() {
	for cur := f; cur != nil; cur = cur.parent {
		atomic.AddInt32(cur.refs, -1)
	}
}

// Stack is the full evaluation context for a directory: the chain of
// per-directory ignore frames (deepest first via Frame.parent), a single
// global matcher, a single override matcher, and a single type matcher
// (spec.md §3 "Ignore stack").
type Stack struct {
	Deepest  *Frame
	Global   *Matcher
	Override *Override
	Types    *Types
}

// Matched evaluates path against the whole stack per spec.md §8 "Ignore
// precedence": "the effective decision equals the first non-None result
// when each frame is consulted deepest-first; overrides take precedence
// over ignores; type select/negate is applied last."
func (s *Stack) Matched(path string, isDir bool) Decision {
	if s.Override != nil {
		if d := s.Override.Matched(path, isDir); d != None {
			return d
		}
	}

	for f := s.Deepest; f != nil; f = f.parent {
		if d := f.Matcher.Matched(path, isDir); d != None {
			return d
		}
	}
	if s.Global != nil {
		if d := s.Global.Matched(path, isDir); d != None {
			return d
		}
	}

	if s.Types != nil {
		if d := s.Types.Matched(path, isDir); d != None {
			return d
		}
	}
	return None
}

// MatchedOrAnyParents is the traversal-scoped variant (spec.md §4.2) of
// Matched, used when an ignored directory was not pruned by the walker
// (e.g. an explicit CLI argument).
func (s *Stack) MatchedOrAnyParents(path string, isDir bool) Decision {
	if s.Override != nil {
		if d := s.Override.Matched(path, isDir); d != None {
			return d
		}
	}
	for f := s.Deepest; f != nil; f = f.parent {
		if d := f.Matcher.MatchedOrAnyParents(path, isDir); d != None {
			return d
		}
	}
	if s.Global != nil {
		if d := s.Global.MatchedOrAnyParents(path, isDir); d != None {
			return d
		}
	}
	if s.Types != nil {
		if d := s.Types.Matched(path, isDir); d != None {
			return d
		}
	}
	return None
}

// HasNegationUnder reports whether any matcher in the stack — the
// override, every active ignore-file frame, or the global matcher —
// could still whitelist some path strictly inside dir, were the walker
// to descend into it despite dir itself resolving to Ignore. Consulted
// by the walker before pruning a directory, so a rule like
// `!target/keep` isn't rendered unreachable by a `target/` rule several
// directories higher up the stack (spec.md §4.2's directory-rescue
// scenario).
func (s *Stack) HasNegationUnder(dir string) bool {
	if s.Override != nil && s.Override.HasNegationUnder(dir) {
		return true
	}
	for f := s.Deepest; f != nil; f = f.parent {
		if f.Matcher != nil && f.Matcher.HasNegationUnder(dir) {
			return true
		}
	}
	if s.Global != nil && s.Global.HasNegationUnder(dir) {
		return true
	}
	return false
}

// Push returns a new Stack sharing Global/Override/Types with s but with
// Deepest advanced by m (nil if the subdirectory had no ignore file).
func (s *Stack) Push(m *Matcher) *Stack {
	return &Stack{
		Deepest:  s.Deepest.Push(m),
		Global:   s.Global,
		Override: s.Override,
		Types:    s.Types,
	}
}

// Release releases this stack's reference on its deepest frame chain.
func (s *Stack) Release() {
	if s.Deepest != nil {
		s.Deepest.Release()
	}
}
