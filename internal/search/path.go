package search

import (
	"errors"
	"io"
	"os"

	rgerrors "github.com/standardbeagle/rgcore/internal/errors"
	"github.com/standardbeagle/rgcore/internal/linebuf"
	"github.com/standardbeagle/rgcore/internal/matcher"
)

// SearchPath opens path and searches it, choosing between a memory map, a
// fully-buffered slice, and reader-streaming mode per cfg.MmapChoice
// (spec.md §4.6 "mmap_choice"): Auto prefers a map for regular files at or
// above mmapAutoThreshold, falling back to streaming whenever the map
// can't be established (non-regular file, zero length, unsupported
// platform, or a failed mmap syscall); Never always streams.
func (s *Searcher) SearchPath(m matcher.Matcher, sink Sink, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return rgerrors.New(rgerrors.KindIOError, path, err)
	}
	defer f.Close()

	if s.wantMmap(f) {
		data, closeMap, ok, merr := mmapFile(f)
		if merr != nil {
			return rgerrors.New(rgerrors.KindIOError, path, merr)
		}
		if ok {
			defer closeMap()
			return wrapPathErr(path, s.SearchSlice(m, sink, data))
		}
	}

	if _, serr := f.Seek(0, io.SeekStart); serr != nil {
		return rgerrors.New(rgerrors.KindIOError, path, serr)
	}
	return wrapPathErr(path, s.SearchReader(m, sink, f))
}

// wrapPathErr attaches path to whatever the search core returned
// (spec.md §7). A matcher error is already tagged KindMatcherError by
// core.go; a line-buffer overflow surfaces linebuf's Fixed/Adaptive
// sentinel and becomes KindLineTooLong; anything else (a Sink failure,
// most commonly a broken pipe on stdout) is wrapped as KindIOError with
// path attached so the caller can decide whether it's fatal just for
// this file.
func wrapPathErr(path string, err error) error {
	if err == nil {
		return nil
	}
	var se *rgerrors.SearchError
	if errors.As(err, &se) {
		if se.Path == "" {
			se.Path = path
		}
		return se
	}
	if errors.Is(err, linebuf.ErrLineTooLong) || errors.Is(err, linebuf.ErrHeapLimitExceeded) {
		return rgerrors.New(rgerrors.KindLineTooLong, path, err)
	}
	return rgerrors.New(rgerrors.KindIOError, path, err)
}

// wantMmap decides whether SearchPath should even attempt a map, before
// touching the platform-specific syscall: MmapChoice must be Auto, f must
// be a regular file, and it must be large enough that the map's fixed
// syscall overhead is worth paying (spec.md §4.6's mmapAutoThreshold).
func (s *Searcher) wantMmap(f *os.File) bool {
	if s.cfg.MmapChoice != MmapAuto {
		return false
	}
	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return info.Size() >= mmapAutoThreshold
}
