package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/standardbeagle/rgcore/internal/config"
	"github.com/standardbeagle/rgcore/internal/ignore"
	"github.com/standardbeagle/rgcore/internal/matcher"
	"github.com/standardbeagle/rgcore/internal/search"
	"github.com/standardbeagle/rgcore/internal/walk"
	"github.com/standardbeagle/rgcore/internal/watch"
)

// runWatch follows the initial scan with the watch companion
// (SPEC_FULL.md §4.4a): it re-searches only the files a debounced
// fsnotify batch reports changed, sharing the same ignore stack the
// initial walk already built, until SIGINT/SIGTERM.
func runWatch(cfg config.Config, wc walk.Config, m matcher.Matcher, paths []string, out *lockedWriter, matchCount, hadError *int64) (int, error) {
	root := cfg.Project.Root
	if len(paths) > 0 {
		root = paths[0]
	}

	stack := &ignore.Stack{Global: wc.Global, Override: wc.Override, Types: wc.Types}

	w, err := watch.New(watch.Config{
		Root:     root,
		Debounce: time.Duration(cfg.Watch.DebounceMs) * time.Millisecond,
		Stack:    stack,
		OnBatch: func(changed []string) {
			searchChangedFiles(cfg, m, changed, out, matchCount, hadError)
		},
	})
	if err != nil {
		return exitError, fmt.Errorf("starting watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		return exitError, fmt.Errorf("starting watcher: %w", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	if err := w.Stop(); err != nil {
		return exitError, err
	}
	return exitCodeFor(*matchCount, *hadError), nil
}

// searchChangedFiles re-runs a fresh Searcher over each changed path
// that still exists and is a regular file; a path that was removed (or
// is now a directory) is silently skipped rather than reported as an
// error, since both are ordinary outcomes of a filesystem watch.
func searchChangedFiles(cfg config.Config, m matcher.Matcher, changed []string, out *lockedWriter, matchCount, hadError *int64) {
	s := search.New(cfg.SearchConfig())
	for _, path := range changed {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		sink := newPlainSink(out, path, true, matchCount)
		if err := s.SearchPath(m, sink, path); err != nil {
			fmt.Fprintf(os.Stderr, "rgcore: %s: %v\n", path, err)
			recordErr(hadError, err)
		}
	}
}
