package walk

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	rgerrors "github.com/standardbeagle/rgcore/internal/errors"
	"github.com/standardbeagle/rgcore/internal/ignore"
)

// VisitorBuilder is called once per worker goroutine to obtain that
// worker's own VisitFunc (spec.md §4.4: "the parallel variant accepts a
// visitor-builder that the walker calls once per worker thread to get a
// per-thread visitor"). Building one visitor per worker lets a caller
// hand each worker its own Searcher/Sink pair without synchronization.
type VisitorBuilder func() VisitFunc

// dirJob is one item on the parallel walker's work queue: a directory
// ready to be read, paired with the ignore-stack frame and symlink
// ancestor-key chain active at the point it was discovered (spec.md §4.4
// "(entry, ignore-stack-frame-ref)"). ancestorKeys is an immutable
// snapshot — extending it for a child never mutates the slice a sibling
// worker might still be holding.
type dirJob struct {
	path         string
	depth        int
	stack        *ignore.Stack
	ancestorKeys []uint64
}

// WalkParallel distributes the traversal across cfg.Threads worker
// goroutines (spec.md §4.4 "parallel variant"). It is explicitly
// unavailable when cfg.Sort is set — sorted output is delegated to the
// sequential Walk, per spec.md's explicit carve-out — and falls back to
// it automatically in that case.
func WalkParallel(cfg Config, newVisitor VisitorBuilder) error {
	if cfg.Sort != SortNone {
		return Walk(cfg, newVisitor())
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}

	pw := &parallelWalker{cfg: cfg, q: newWorkQueue()}

	// Root entries are resolved sequentially, before any worker starts, so
	// there is no concurrent access to pw.rootEntries/pw.rootDev to guard:
	// every worker's later dispatchRoots() call only ever reads them.
	for _, root := range cfg.Roots {
		pw.seedRoot(root)
	}
	pw.q.closeWhenDrained()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < threads; i++ {
		visit := newVisitor()
		g.Go(func() error {
			return pw.work(gctx, visit)
		})
	}

	return g.Wait()
}

// rootResult is a fully-resolved root argument, ready to be replayed to
// every worker's visitor exactly once via dispatchRoots.
type rootResult struct {
	entry Entry
}

type parallelWalker struct {
	cfg Config
	q   *workQueue

	rootEntries []rootResult
	rootsOnce   sync.Once

	rootDev    uint64
	hasRootDev bool

	quit int32 // atomic; set once a visitor returns Quit
}

// seedRoot resolves one root argument and, if it is a walkable directory,
// enqueues its first directory job. Called only from WalkParallel before
// any worker goroutine starts.
func (pw *parallelWalker) seedRoot(root string) {
	info, err := os.Lstat(root)
	if err != nil {
		pw.rootEntries = append(pw.rootEntries, rootResult{
			entry: Entry{Path: root, Depth: 0, IsExplicit: true, Errs: []error{rgerrors.New(rgerrors.KindIOError, root, err)}},
		})
		return
	}

	entry := Entry{Path: root, Depth: 0, IsExplicit: true, Info: info, Type: fileType(info)}
	dirInfo, isDir := statForDescent(root, info)
	pw.rootEntries = append(pw.rootEntries, rootResult{entry: entry})
	if !isDir {
		return
	}

	if pw.cfg.SameFileSystem && !pw.hasRootDev {
		if dev, _, ok := deviceInodeKey(dirInfo); ok {
			pw.rootDev, pw.hasRootDev = dev, true
		}
	}

	stack := &ignore.Stack{Global: pw.cfg.Global, Override: pw.cfg.Override, Types: pw.cfg.Types}
	var keys []uint64
	if key, ok := pathStackKey(root, dirInfo); ok {
		keys = []uint64{key}
	}
	pw.q.push(dirJob{path: root, depth: 1, stack: stack, ancestorKeys: keys})
}

// work is one worker goroutine's main loop: visit every root entry once
// (guarded so only the first worker to arrive does it), then pull
// directory jobs until the queue is drained or a visitor returns Quit.
func (pw *parallelWalker) work(ctx context.Context, visit VisitFunc) error {
	pw.dispatchRoots(visit)

	for {
		job, ok := pw.q.pop(ctx)
		if !ok {
			return nil
		}
		if !pw.isQuit() {
			pw.runJob(job, visit)
		}
		pw.q.done()
	}
}

func (pw *parallelWalker) dispatchRoots(visit VisitFunc) {
	pw.rootsOnce.Do(func() {
		for _, r := range pw.rootEntries {
			if visit(r.entry) == Quit {
				pw.setQuit()
			}
		}
	})
}

func (pw *parallelWalker) runJob(job dirJob, visit VisitFunc) {
	stack, dirErrs := pw.pushIgnoreFrames(job.path, job.stack)
	defer stack.Release()

	entries, err := os.ReadDir(job.path)
	if err != nil {
		visit(Entry{Path: job.path, Depth: job.depth, Errs: append(dirErrs, rgerrors.New(rgerrors.KindIOError, job.path, err))})
		return
	}

	for _, de := range entries {
		if pw.isQuit() {
			return
		}
		path := filepath.Join(job.path, de.Name())
		info, lerr := os.Lstat(path)
		entry := Entry{Path: path, Depth: job.depth}
		if len(dirErrs) > 0 {
			entry.Errs = append(entry.Errs, dirErrs...)
			dirErrs = nil
		}
		if lerr != nil {
			entry.Errs = append(entry.Errs, rgerrors.New(rgerrors.KindIOError, path, lerr))
			if visit(entry) == Quit {
				pw.setQuit()
				return
			}
			continue
		}
		entry.Info = info
		entry.Type = fileType(info)

		if pw.filterOut(entry, stack) {
			continue
		}

		cont := visit(entry)
		if cont == Quit {
			pw.setQuit()
			return
		}
		dirInfo, isDir := statForDescent(path, info)
		if cont == SkipSubtree || !isDir {
			continue
		}

		childKey, hasKey := pathStackKey(path, dirInfo)
		if hasKey && containsKey(job.ancestorKeys, childKey) {
			loopEntry := Entry{Path: path, Depth: job.depth, Errs: []error{errSymlinkLoop(path)}}
			if visit(loopEntry) == Quit {
				pw.setQuit()
				return
			}
			continue
		}

		childKeys := job.ancestorKeys
		if hasKey {
			childKeys = append(append(make([]uint64, 0, len(job.ancestorKeys)+1), job.ancestorKeys...), childKey)
		}
		pw.q.push(dirJob{path: path, depth: job.depth + 1, stack: stack, ancestorKeys: childKeys})
	}
}

// filterOut mirrors the sequential walker's filterOut (walk.go) exactly,
// including the directory-rescue lookahead: a directory matched Ignore
// is still descended into, rather than pruned, when some whitelist rule
// further down the stack could apply to one of its descendants.
func (pw *parallelWalker) filterOut(e Entry, stack *ignore.Stack) bool {
	base := filepath.Base(e.Path)
	if pw.cfg.Hidden == HideHidden && len(base) > 0 && base[0] == '.' {
		return true
	}
	if pw.cfg.SameFileSystem && pw.hasRootDev && e.Info.IsDir() {
		if dev, _, ok := deviceInodeKey(e.Info); ok && dev != pw.rootDev {
			return true
		}
	}
	if pw.cfg.MaxDepth >= 0 && e.Depth > pw.cfg.MaxDepth {
		return true
	}
	if !e.Info.IsDir() && pw.cfg.MaxFilesize > 0 && e.Info.Size() > pw.cfg.MaxFilesize {
		return true
	}
	if d := stack.Matched(e.Path, e.Info.IsDir()); d == ignore.Ignore {
		if !(e.Info.IsDir() && stack.HasNegationUnder(e.Path)) {
			return true
		}
	}
	return false
}

func (pw *parallelWalker) pushIgnoreFrames(dir string, stack *ignore.Stack) (*ignore.Stack, []error) {
	var errs []error
	for _, name := range pw.cfg.IgnoreFileNames {
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

func containsKey(keys []uint64, k uint64) bool {
	for _, existing := range keys {
		if existing == k {
			return true
		}
	}
	return false
}

func (pw *parallelWalker) isQuit() bool { return atomic.LoadInt32(&pw.quit) != 0 }
func (pw *parallelWalker) setQuit()     { atomic.StoreInt32(&pw.quit, 1) }

// workQueue is the parallel walker's shared stealing queue (spec.md §4.4
// "Work is distributed with a stealing queue"): a single, mutex-guarded
// slice that any idle worker can pop from, rather than per-worker deques
// — functionally equivalent for this walker's purposes (every worker can
// always make progress on any ready directory), at a fraction of a
// hand-rolled Chase-Lev deque's complexity. An outstanding-item counter
// (cond-guarded) lets the queue detect "no work left and none coming"
// without a sentinel value threaded through every job.
type workQueue struct {
	mu          sync.Mutex
	cond        *sync.Cond
	items       []dirJob
	outstanding int
	closed      bool
}

func newWorkQueue() *workQueue {
	q := &workQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *workQueue) push(j dirJob) {
	q.mu.Lock()
	q.items = append(q.items, j)
	q.outstanding++
	q.mu.Unlock()
	q.cond.Signal()
}

// pop blocks until a job is available, the queue is closed with nothing
// outstanding, or ctx is cancelled.
func (q *workQueue) pop(ctx context.Context) (dirJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		if q.closed && q.outstanding == 0 {
			return dirJob{}, false
		}
		if ctx.Err() != nil {
			return dirJob{}, false
		}
		q.cond.Wait()
	}
	j := q.items[0]
	q.items = q.items[1:]
	return j, true
}

// done reports that a previously-popped job (and everything it directly
// enqueued) is fully accounted for — called once per pop, after any new
// child jobs from that directory have already been pushed.
func (q *workQueue) done() {
	q.mu.Lock()
	q.outstanding--
	done := q.outstanding == 0
	q.mu.Unlock()
	if done {
		q.cond.Broadcast()
	}
}

// closeWhenDrained marks the queue closed once every root has been
// seeded; pop() still blocks until outstanding reaches zero, so workers
// don't exit while siblings are still pushing child directories.
func (q *workQueue) closeWhenDrained() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}
