// Package watch implements the watch companion (SPEC_FULL.md §4.4a): a
// fsnotify-backed recursive watcher that debounces file-system events per
// path and, after a quiet period, hands the caller the batch of changed
// paths that survived the shared ignore stack.
//
// Grounded on the teacher's internal/indexing/watcher.go (FileWatcher,
// eventDebouncer): the recursive addWatches-on-start plus
// add-a-watch-on-new-directory shape, and the single debounce timer reset
// on every event, both carry over. Reworked from the teacher's
// typed FileEventType + four callback fields into one batched
// func([]string) callback, since this package has no indexing pipeline
// of its own to route create/write/remove differently into — that
// decision belongs to whatever the caller does with the batch.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/rgcore/internal/debug"
	"github.com/standardbeagle/rgcore/internal/ignore"
)

// Config controls a Watcher's behavior.
type Config struct {
	// Root is the directory tree to watch recursively.
	Root string
	// Debounce is the quiet period after the last event before OnBatch
	// fires (SPEC_FULL.md §4.4a "debounced"). Zero picks a 200ms default.
	Debounce time.Duration
	// Stack, if non-nil, is consulted for every changed path; paths the
	// stack ignores are dropped from the batch before OnBatch fires
	// (§4.4a "shares the walker's ignore stack").
	Stack *ignore.Stack
	// OnBatch receives the deduplicated, ignore-filtered paths that
	// changed since the last batch. Never called concurrently with
	// itself.
	OnBatch func(paths []string)
}

// Watcher recursively watches Config.Root and debounces fsnotify events
// into batched calls to Config.OnBatch.
type Watcher struct {
	cfg     Config
	fsw     *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	watched sync.Map // directory path -> struct{}, tracks fsnotify.Add calls

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
}

// New creates a Watcher over cfg.Root without starting it.
func New(cfg Config) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 200 * time.Millisecond
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		cfg:     cfg,
		fsw:     fsw,
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string]struct{}),
	}, nil
}

// Start recursively adds watches under cfg.Root and begins processing
// events in the background. Returns once the initial watch set is
// established; event processing continues until Stop is called.
func (w *Watcher) Start() error {
	if err := w.addWatchesRecursive(w.cfg.Root); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop halts event processing and releases the underlying fsnotify
// watches. Any batch accumulated but not yet flushed is discarded —
// matching the teacher's documented choice not to flush on shutdown,
// since the caller is tearing down the very pipeline a late callback
// would feed into.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.fsw.Close()
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return err
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			debug.LogWalk("watch: skipping %s: %v", path, err)
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if w.cfg.Stack != nil && w.cfg.Stack.Matched(path, true) == ignore.Ignore {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			debug.LogWalk("watch: failed to add watch for %s: %v", path, err)
			return nil
		}
		w.watched.Store(path, struct{}{})
		return nil
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			debug.LogWalk("watch: fsnotify error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if _, already := w.watched.Load(path); !already {
				if w.cfg.Stack == nil || w.cfg.Stack.Matched(path, true) != ignore.Ignore {
					if err := w.fsw.Add(path); err == nil {
						w.watched.Store(path, struct{}{})
					}
				}
			}
		}
	}

	if w.cfg.Stack != nil {
		isDir := false
		if info, err := os.Stat(path); err == nil {
			isDir = info.IsDir()
		}
		if w.cfg.Stack.Matched(path, isDir) == ignore.Ignore {
			return
		}
	}

	w.addPending(path)
}

func (w *Watcher) addPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.cfg.Debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if w.cfg.OnBatch != nil {
		w.cfg.OnBatch(paths)
	}
}
