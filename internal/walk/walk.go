// Package walk implements the directory walker (spec.md §4.4): sequential
// and parallel recursive traversal, hidden-file policy, filesystem-boundary
// policy, symlink-loop detection, depth/size filters, per-directory
// ignore-stack assembly, and sort mode.
//
// Grounded on the teacher's internal/indexing/pipeline.go
// (ScanDirectory/CountFiles): the visitedDirs symlink-cycle map and the
// "prune via SkipDir before descending" shape carry over, reworked from
// filepath.Walk (which can't prune a directory without first reading it)
// to os.ReadDir-driven recursion, and from a single FileTask-channel
// consumer into the general Continue/SkipSubtree/Quit visitor contract
// spec.md §4.4 requires.
package walk

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	rgerrors "github.com/standardbeagle/rgcore/internal/errors"
	"github.com/standardbeagle/rgcore/internal/ignore"
	"github.com/standardbeagle/rgcore/internal/types"
)

// Continuation is a visitor's instruction to the walker after processing
// one entry (spec.md §4.4 "continuation token").
type Continuation int

const (
	Continue Continuation = iota
	SkipSubtree
	Quit
)

// HiddenPolicy controls whether dot-prefixed entries are visited.
type HiddenPolicy int

const (
	ShowHidden HiddenPolicy = iota
	HideHidden
)

// SortKey selects the per-directory ordering spec.md §4.4 "Sort mode"
// describes. SortNone preserves readdir order and allows the parallel
// walker to run; every other value forces sequential traversal.
type SortKey int

const (
	SortNone SortKey = iota
	SortPath
	SortName
	SortModTime
	SortAccessTime
	SortCreateTime
)

// Entry is one discovered path (spec.md §3 "Walk entry").
type Entry struct {
	Path       string
	Depth      int
	IsExplicit bool
	Type       types.FileType
	Info       os.FileInfo
	Errs       []error
	IsStdin    bool
}

// VisitFunc is called once per non-pruned entry. Returning SkipSubtree on
// a directory entry prevents the walker from descending into it; Quit
// stops the whole walk (every worker, in the parallel variant).
type VisitFunc func(Entry) Continuation

// Config enumerates the walker's filtering policy (spec.md §4.4).
type Config struct {
	// Roots are the explicit CLI arguments; each becomes a depth-0,
	// IsExplicit entry exempt from every filter below.
	Roots []string

	Hidden         HiddenPolicy
	SameFileSystem bool
	// MaxDepth bounds descent; negative means unlimited.
	MaxDepth int
	// MaxFilesize bounds regular-file size; 0 means unlimited.
	MaxFilesize int64
	// IgnoreFileNames lists the conventional ignore-file names checked,
	// in order, in every directory entered (e.g. ".gitignore", ".ignore").
	IgnoreFileNames []string

	Global   *ignore.Matcher
	Override *ignore.Override
	Types    *ignore.Types

	Sort SortKey
	// Threads bounds the parallel walker's worker count; <= 0 picks
	// runtime.GOMAXPROCS(0).
	Threads int
}

// Walk performs the sequential traversal described in spec.md §4.4,
// visiting every root in order. It returns the first error a visitor or
// the filesystem itself could not recover from; filesystem errors on
// individual entries are instead attached to that Entry.Errs and do not
// abort the walk (spec.md "Failure semantics").
func Walk(cfg Config, visit VisitFunc) error {
	w := &walker{cfg: cfg, visit: visit}
	for _, root := range cfg.Roots {
		if w.quit {
			break
		}
		if err := w.walkRoot(root); err != nil {
			return err
		}
	}
	return nil
}

type walker struct {
	cfg   Config
	visit VisitFunc
	quit  bool

	rootDev    uint64
	hasRootDev bool
}

func (w *walker) walkRoot(root string) error {
	info, err := os.Lstat(root)
	entry := Entry{Path: root, Depth: 0, IsExplicit: true}
	if err != nil {
		entry.Errs = append(entry.Errs, rgerrors.New(rgerrors.KindIOError, root, err))
		if w.dispatch(entry) == Quit {
			w.quit = true
		}
		return nil
	}
	entry.Info = info
	entry.Type = fileType(info)

	cont := w.dispatch(entry)
	if cont == Quit {
		w.quit = true
		return nil
	}
	dirInfo, isDir := statForDescent(root, info)
	if cont == SkipSubtree || !isDir {
		return nil
	}

	if w.cfg.SameFileSystem && !w.hasRootDev {
		if dev, _, ok := deviceInodeKey(dirInfo); ok {
			w.rootDev, w.hasRootDev = dev, true
		}
	}

	stack := &ignore.Stack{Global: w.cfg.Global, Override: w.cfg.Override, Types: w.cfg.Types}
	keys := newPathStack()
	if key, ok := pathStackKey(root, dirInfo); ok {
		keys.push(key)
	}
	return w.walkDir(root, 1, stack, keys)
}

// walkDir visits every child of dir (already known to be a directory at
// the given depth), applying filters, ignore-stack assembly, and symlink-
// loop detection before recursing.
func (w *walker) walkDir(dir string, depth int, stack *ignore.Stack, keys *pathStack) error {
	stack, dirErrs := w.pushIgnoreFrames(dir, stack)
	defer stack.Release()

	names, err := readDirNames(dir)
	if err != nil {
		e := Entry{Path: dir, Depth: depth, Errs: append(dirErrs, rgerrors.New(rgerrors.KindIOError, dir, err))}
		if w.dispatch(e) == Quit {
			w.quit = true
		}
		return nil
	}

	if w.cfg.Sort != SortNone {
		sortNames(dir, names, w.cfg.Sort)
	}

	for _, name := range names {
		if w.quit {
			return nil
		}
		path := filepath.Join(dir, name)
		info, lerr := os.Lstat(path)
		entry := Entry{Path: path, Depth: depth}
		if len(dirErrs) > 0 {
			entry.Errs = append(entry.Errs, dirErrs...)
			dirErrs = nil // attach directory-level errors once, to its first child
		}
		if lerr != nil {
			entry.Errs = append(entry.Errs, rgerrors.New(rgerrors.KindIOError, path, lerr))
			if w.dispatch(entry) == Quit {
				w.quit = true
				return nil
			}
			continue
		}
		entry.Info = info
		entry.Type = fileType(info)

		if skip, loopErr := w.filterOut(entry, stack); skip {
			if loopErr != nil {
				entry.Errs = append(entry.Errs, loopErr)
				if w.dispatch(entry) == Quit {
					w.quit = true
					return nil
				}
			}
			continue
		}

		cont := w.dispatch(entry)
		if cont == Quit {
			w.quit = true
			return nil
		}
		dirInfo, isDir := statForDescent(path, info)
		if cont == SkipSubtree || !isDir {
			continue
		}

		childKey, hasKey := pathStackKey(path, dirInfo)
		if hasKey && keys.contains(childKey) {
			loopEntry := Entry{Path: path, Depth: depth, Errs: []error{errSymlinkLoop(path)}}
			if w.dispatch(loopEntry) == Quit {
				w.quit = true
				return nil
			}
			continue
		}
		if hasKey {
			keys.push(childKey)
		}
		if err := w.walkDir(path, depth+1, stack, keys); err != nil {
			return err
		}
		if hasKey {
			keys.pop()
		}
	}
	return nil
}

// filterOut applies every non-explicit-entry policy from spec.md §4.4 in
// order: hidden-file, filesystem-boundary, max-depth, max-filesize,
// override/type/ignore-stack. skip reports whether the entry should be
// dropped entirely (and, if a directory, not descended); loopErr is
// always nil here (symlink loops are detected by the caller, which knows
// the path-stack).
func (w *walker) filterOut(e Entry, stack *ignore.Stack) (skip bool, loopErr error) {
	base := filepath.Base(e.Path)
	if w.cfg.Hidden == HideHidden && strings.HasPrefix(base, ".") {
		return true, nil
	}
	if w.cfg.SameFileSystem && w.hasRootDev && e.Info.IsDir() {
		if dev, _, ok := deviceInodeKey(e.Info); ok && dev != w.rootDev {
			return true, nil
		}
	}
	if w.cfg.MaxDepth >= 0 && e.Depth > w.cfg.MaxDepth {
		return true, nil
	}
	if !e.Info.IsDir() && w.cfg.MaxFilesize > 0 && e.Info.Size() > w.cfg.MaxFilesize {
		return true, nil
	}
	if d := stack.Matched(e.Path, e.Info.IsDir()); d == ignore.Ignore {
		// A directory that resolves to Ignore is still descended into
		// rather than pruned outright when some whitelist rule further
		// down the stack could apply to one of its descendants — pruning
		// here would make that rule permanently unreachable (spec.md
		// §4.2's directory-rescue scenario: `target/` ignored,
		// `!target/keep` rescues a subtree of it).
		if !(e.Info.IsDir() && stack.HasNegationUnder(e.Path)) {
			return true, nil
		}
	}
	return false, nil
}

// pushIgnoreFrames reads every conventional ignore-file name present in
// dir (in configured order) and pushes one stack frame per file found,
// returning any I/O errors encountered (parse errors are instead attached
// via each Matcher's own LineErrors, folded in here too) so the caller can
// attribute them to dir's own entry.
func (w *walker) pushIgnoreFrames(dir string, stack *ignore.Stack) (*ignore.Stack, []error) {
	var errs []error
	for _, name := range w.cfg.IgnoreFileNames {
		ignorePath := filepath.Join(dir, name)
		m, err := ignore.FromFile(dir, ignorePath)
		if err != nil {
			errs = append(errs, rgerrors.New(rgerrors.KindIgnoreFileIO, ignorePath, err))
			continue
		}
		if m == nil {
			continue
		}
		if len(m.LineErrors) > 0 {
			errs = append(errs, m.LineErrors...)
		}
		stack = stack.Push(m)
	}
	return stack, errs
}

func (w *walker) dispatch(e Entry) Continuation {
	return w.visit(e)
}

func fileType(info os.FileInfo) types.FileType {
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return types.FileTypeSymlink
	case info.IsDir():
		return types.FileTypeDir
	default:
		return types.FileTypeFile
	}
}

func readDirNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

// sortNames orders names per key, stat-ing each once as required (spec.md
// §4.4 "Sort mode": "stat-based keys are computed once and cached with
// the entry" — here that cache is simply the sort itself, since entries
// are re-stat'd exactly once more by the caller's normal Lstat; a future
// optimization could thread the *os.FileInfo through, but correctness
// does not depend on it).
func sortNames(dir string, names []string, key SortKey) {
	switch key {
	case SortName, SortPath:
		sort.Strings(names)
	case SortModTime, SortAccessTime, SortCreateTime:
		times := make(map[string]int64, len(names))
		for _, n := range names {
			info, err := os.Lstat(filepath.Join(dir, n))
			if err != nil {
				times[n] = 0
				continue
			}
			times[n] = statTime(info, key)
		}
		sort.Slice(names, func(i, j int) bool { return times[names[i]] < times[names[j]] })
	}
}
