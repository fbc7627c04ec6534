//go:build unix

package search

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapFile memory-maps f read-only, grounded on the other_examples
// reference (goripgrep's mmapSearch) for the open/stat/map/defer-unmap
// shape, but using golang.org/x/sys/unix instead of the deprecated
// syscall package, since x/sys is already a pack dependency
// (coregx-coregex's SIMD files) rather than a new one.
func mmapFile(f *os.File) (data []byte, closeFn func() error, ok bool, err error) {
	info, err := f.Stat()
	if err != nil {
		return nil, nil, false, nil
	}
	size := info.Size()
	if size == 0 || size > int64(^uint(0)>>1) {
		return nil, nil, false, nil
	}

	data, merr := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if merr != nil {
		// Falls back to reader-streaming rather than failing the search
		// outright — mmap can fail for reasons unrelated to the data being
		// searchable (e.g. a filesystem that doesn't support it).
		return nil, nil, false, nil
	}
	return data, func() error { return unix.Munmap(data) }, true, nil
}
