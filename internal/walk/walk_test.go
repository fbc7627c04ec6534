package walk

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rgerrors "github.com/standardbeagle/rgcore/internal/errors"
	"github.com/standardbeagle/rgcore/internal/ignore"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func collectPaths(cfg Config) ([]string, error) {
	var mu sync.Mutex
	var got []string
	err := Walk(cfg, func(e Entry) Continuation {
		mu.Lock()
		got = append(got, e.Path)
		mu.Unlock()
		return Continue
	})
	sort.Strings(got)
	return got, err
}

func relAll(root string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		r, err := filepath.Rel(root, p)
		if err != nil {
			r = p
		}
		out[i] = filepath.ToSlash(r)
	}
	sort.Strings(out)
	return out
}

func TestWalkSequentialVisitsEveryEntry(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.txt":        "a",
		"sub/b.txt":    "b",
		"sub/c/d.txt":  "d",
	})

	cfg := Config{Roots: []string{root}, MaxDepth: -1}
	got, err := collectPaths(cfg)
	require.NoError(t, err)

	rel := relAll(root, got)
	require.Equal(t, []string{".", "a.txt", "sub", "sub/b.txt", "sub/c", "sub/c/d.txt"}, rel)
}

func TestWalkHiddenPolicy(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.txt":      "a",
		".hidden":    "h",
		".hdir/x.txt": "x",
	})

	cfg := Config{Roots: []string{root}, MaxDepth: -1, Hidden: HideHidden}
	got, err := collectPaths(cfg)
	require.NoError(t, err)
	rel := relAll(root, got)
	require.Equal(t, []string{".", "a.txt"}, rel)

	cfg.Hidden = ShowHidden
	got, err = collectPaths(cfg)
	require.NoError(t, err)
	rel = relAll(root, got)
	require.Contains(t, rel, ".hidden")
	require.Contains(t, rel, ".hdir")
}

func TestWalkMaxDepth(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.txt":       "a",
		"sub/b.txt":   "b",
		"sub/c/d.txt": "d",
	})

	cfg := Config{Roots: []string{root}, MaxDepth: 1}
	got, err := collectPaths(cfg)
	require.NoError(t, err)
	rel := relAll(root, got)
	require.Equal(t, []string{".", "a.txt", "sub"}, rel)
}

func TestWalkMaxFilesize(t *testing.T) {
	root := writeTree(t, map[string]string{
		"small.txt": "a",
		"big.txt":   strings.Repeat("x", 100),
	})

	cfg := Config{Roots: []string{root}, MaxDepth: -1, MaxFilesize: 10}
	got, err := collectPaths(cfg)
	require.NoError(t, err)
	rel := relAll(root, got)
	require.Equal(t, []string{".", "small.txt"}, rel)
}

func TestWalkIgnoreFileIsApplied(t *testing.T) {
	root := writeTree(t, map[string]string{
		"keep.txt":   "k",
		"skip.log":   "s",
		".gitignore": "*.log\n",
	})

	cfg := Config{
		Roots:           []string{root},
		MaxDepth:        -1,
		IgnoreFileNames: []string{".gitignore"},
	}
	got, err := collectPaths(cfg)
	require.NoError(t, err)
	rel := relAll(root, got)
	require.Contains(t, rel, "keep.txt")
	require.NotContains(t, rel, "skip.log")
	require.Contains(t, rel, ".gitignore")
}

func TestWalkIgnoreStackIsPerDirectory(t *testing.T) {
	root := writeTree(t, map[string]string{
		"sub/.gitignore": "*.tmp\n",
		"sub/a.tmp":      "t",
		"sub/a.txt":      "t",
		"a.tmp":          "t", // not ignored: root has no ignore file
	})

	cfg := Config{
		Roots:           []string{root},
		MaxDepth:        -1,
		IgnoreFileNames: []string{".gitignore"},
	}
	got, err := collectPaths(cfg)
	require.NoError(t, err)
	rel := relAll(root, got)
	require.Contains(t, rel, "a.tmp")
	require.Contains(t, rel, "sub/a.txt")
	require.NotContains(t, rel, "sub/a.tmp")
}

func TestWalkIgnoredDirectoryWithWhitelistedSubtreeIsRescued(t *testing.T) {
	root := writeTree(t, map[string]string{
		"target/a.rs":      "a",
		"target/keep/x.rs": "x",
		".gitignore":       "target/\n!target/keep\n",
	})

	cfg := Config{
		Roots:           []string{root},
		MaxDepth:        -1,
		IgnoreFileNames: []string{".gitignore"},
	}
	got, err := collectPaths(cfg)
	require.NoError(t, err)
	rel := relAll(root, got)

	require.NotContains(t, rel, "target/a.rs")
	require.Contains(t, rel, "target/keep/x.rs")
}

func TestWalkParallelIgnoredDirectoryWithWhitelistedSubtreeIsRescued(t *testing.T) {
	root := writeTree(t, map[string]string{
		"target/a.rs":      "a",
		"target/keep/x.rs": "x",
		".gitignore":       "target/\n!target/keep\n",
	})

	cfg := Config{
		Roots:           []string{root},
		MaxDepth:        -1,
		IgnoreFileNames: []string{".gitignore"},
		Threads:         4,
	}

	var mu sync.Mutex
	var got []string
	err := WalkParallel(cfg, func() VisitFunc {
		return func(e Entry) Continuation {
			mu.Lock()
			got = append(got, e.Path)
			mu.Unlock()
			return Continue
		}
	})
	require.NoError(t, err)
	rel := relAll(root, got)

	require.NotContains(t, rel, "target/a.rs")
	require.Contains(t, rel, "target/keep/x.rs")
}

func TestWalkOverrideTakesPrecedenceOverIgnore(t *testing.T) {
	root := writeTree(t, map[string]string{
		"keep.log":   "k",
		".gitignore": "*.log\n",
	})
	override, err := ignore.NewOverride([]string{"!*.log"})
	require.NoError(t, err)

	cfg := Config{
		Roots:           []string{root},
		MaxDepth:        -1,
		IgnoreFileNames: []string{".gitignore"},
		Override:        override,
	}
	got, err := collectPaths(cfg)
	require.NoError(t, err)
	rel := relAll(root, got)
	require.Contains(t, rel, "keep.log")
}

func TestWalkSymlinkLoopIsDetected(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	loop := filepath.Join(sub, "loop")
	if err := os.Symlink(root, loop); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	var errEntries []Entry
	var mu sync.Mutex
	cfg := Config{Roots: []string{root}, MaxDepth: -1}
	err := Walk(cfg, func(e Entry) Continuation {
		if len(e.Errs) > 0 {
			mu.Lock()
			errEntries = append(errEntries, e)
			mu.Unlock()
		}
		return Continue
	})
	require.NoError(t, err)
	require.NotEmpty(t, errEntries)

	var se *rgerrors.SearchError
	require.True(t, stderrors.As(errEntries[0].Errs[0], &se))
	assert.Equal(t, rgerrors.KindSymlinkLoop, se.Kind)
	assert.Equal(t, loop, se.Path)
}

func TestWalkUnreadableDirectoryReportsIOError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Mkdir(locked, 0o000))
	defer os.Chmod(locked, 0o755)

	var errEntries []Entry
	var mu sync.Mutex
	cfg := Config{Roots: []string{root}, MaxDepth: -1}
	err := Walk(cfg, func(e Entry) Continuation {
		if len(e.Errs) > 0 {
			mu.Lock()
			errEntries = append(errEntries, e)
			mu.Unlock()
		}
		return Continue
	})
	require.NoError(t, err)
	require.NotEmpty(t, errEntries)

	var se *rgerrors.SearchError
	require.True(t, stderrors.As(errEntries[0].Errs[0], &se))
	assert.Equal(t, rgerrors.KindIOError, se.Kind)
}

func TestWalkSkipSubtreePrunesDescendants(t *testing.T) {
	root := writeTree(t, map[string]string{
		"sub/a.txt":   "a",
		"sub/b/c.txt": "c",
	})

	var got []string
	cfg := Config{Roots: []string{root}, MaxDepth: -1}
	err := Walk(cfg, func(e Entry) Continuation {
		got = append(got, e.Path)
		if strings.HasSuffix(e.Path, "sub") {
			return SkipSubtree
		}
		return Continue
	})
	require.NoError(t, err)
	rel := relAll(root, got)
	require.Equal(t, []string{".", "sub"}, rel)
}

func TestWalkQuitStopsEarly(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.txt": "a",
		"b.txt": "b",
		"c.txt": "c",
	})

	count := 0
	cfg := Config{Roots: []string{root}, MaxDepth: -1}
	err := Walk(cfg, func(e Entry) Continuation {
		count++
		if count == 2 {
			return Quit
		}
		return Continue
	})
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestWalkSortNameIsDeterministic(t *testing.T) {
	root := writeTree(t, map[string]string{
		"c.txt": "c",
		"a.txt": "a",
		"b.txt": "b",
	})

	var got []string
	cfg := Config{Roots: []string{root}, MaxDepth: -1, Sort: SortName}
	err := Walk(cfg, func(e Entry) Continuation {
		if e.Depth == 1 {
			got = append(got, filepath.Base(e.Path))
		}
		return Continue
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, got)
}

func TestWalkParallelVisitsSameEntriesAsSequential(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.txt":          "a",
		"sub/b.txt":      "b",
		"sub/c/d.txt":    "d",
		"sub2/e.txt":     "e",
		".gitignore":     "*.tmp\n",
		"skip.tmp":       "s",
	})

	cfg := Config{
		Roots:           []string{root},
		MaxDepth:        -1,
		IgnoreFileNames: []string{".gitignore"},
	}

	seqGot, err := collectPaths(cfg)
	require.NoError(t, err)

	var mu sync.Mutex
	var parGot []string
	cfg.Threads = 4
	err = WalkParallel(cfg, func() VisitFunc {
		return func(e Entry) Continuation {
			mu.Lock()
			parGot = append(parGot, e.Path)
			mu.Unlock()
			return Continue
		}
	})
	require.NoError(t, err)
	sort.Strings(parGot)

	require.Equal(t, seqGot, parGot)
}

func TestWalkParallelFallsBackToSequentialWhenSorted(t *testing.T) {
	root := writeTree(t, map[string]string{
		"c.txt": "c",
		"a.txt": "a",
	})

	var got []string
	cfg := Config{Roots: []string{root}, MaxDepth: -1, Sort: SortName}
	err := WalkParallel(cfg, func() VisitFunc {
		return func(e Entry) Continuation {
			if e.Depth == 1 {
				got = append(got, filepath.Base(e.Path))
			}
			return Continue
		}
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt", "c.txt"}, got)
}

func TestWalkParallelQuitStopsAllWorkers(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 50; i++ {
		d := filepath.Join(root, "dir"+string(rune('a'+i%26))+string(rune('0'+i/26)))
		require.NoError(t, os.MkdirAll(d, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(d, "f.txt"), []byte("x"), 0o644))
	}

	var mu sync.Mutex
	var count int
	cfg := Config{Roots: []string{root}, MaxDepth: -1, Threads: 8}
	err := WalkParallel(cfg, func() VisitFunc {
		return func(e Entry) Continuation {
			mu.Lock()
			count++
			c := count
			mu.Unlock()
			if c >= 3 {
				return Quit
			}
			return Continue
		}
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, count, 3)
	// Workers stop promptly once Quit fires; a generous upper bound catches
	// a walker that ignores Quit and drains the whole tree instead.
	require.Less(t, count, 150)
}
