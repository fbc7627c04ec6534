package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherBatchesWritesAfterDebounce(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("one"), 0o644))

	var mu sync.Mutex
	var batches [][]string
	done := make(chan struct{}, 1)

	w, err := New(Config{
		Root:     root,
		Debounce: 50 * time.Millisecond,
		OnBatch: func(paths []string) {
			mu.Lock()
			batches = append(batches, paths)
			mu.Unlock()
			select {
			case done <- struct{}{}:
			default:
			}
		},
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("two"), 0o644))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a batch")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, batches)
	require.Contains(t, batches[0], filepath.Join(root, "a.txt"))
}

func TestWatcherStopIsIdempotentSafe(t *testing.T) {
	root := t.TempDir()
	w, err := New(Config{Root: root, OnBatch: func([]string) {}})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
