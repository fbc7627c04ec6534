// Package search implements the Searcher core (spec.md §4.6) and the
// Sink protocol (spec.md §4.7): the four input modes (slice, mmap,
// reader-streaming, multi-line slice), the fast/slow line-by-line paths,
// the before/after context machine, lazy line-number counting, and
// binary detection.
//
// Grounded on
// _examples/original_source/crates/searcher/src/searcher/core.rs and
// lines.rs — the literal Rust origin of spec.md §4.6 — translated into
// a plain Go struct (core.go) driven by this file's entry points. The
// teacher's internal/core/line_scanner.go contributes the zero-copy,
// offset-based style but has no Sink-style event stream of its own,
// since it always holds a whole file resident and returns slices
// directly to its caller.
package search

import (
	"io"
	"sync"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/standardbeagle/rgcore/internal/linebuf"
	"github.com/standardbeagle/rgcore/internal/matcher"
)

// Searcher runs searches against a configured Matcher, reusing one line
// buffer across files per spec.md §5 ("one line buffer, reusable across
// files... owned by a worker").
type Searcher struct {
	cfg Config
	buf *linebuf.Buffer

	encOnce sync.Once
	dec     *encoding.Decoder
	encErr  error
}

// New creates a Searcher. Reader-streaming mode lazily allocates its
// line buffer from cfg on first use and reuses it across subsequent
// Search* calls via Reset.
func New(cfg Config) *Searcher {
	return &Searcher{cfg: cfg}
}

func (s *Searcher) lineBuffer() *linebuf.Buffer {
	if s.buf == nil {
		s.buf = linebuf.New(s.cfg.LineTerminator, s.cfg.BufferPolicy, s.cfg.InitialBufferCapacity, s.cfg.HeapLimit, s.cfg.BinaryDetection)
	} else {
		s.buf.Reset()
	}
	return s.buf
}

func (s *Searcher) binaryEnabled() bool {
	return s.cfg.BinaryDetection.Mode != linebuf.DetectNone
}

// runSlice drives a core over a single, fully-resident buffer from
// start to finish, including the Begin/Finish bookkeeping every
// SearchXxx entry point shares.
func (s *Searcher) runSlice(m matcher.Matcher, sink Sink, buf []byte) error {
	ok, err := sink.Begin()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	c := newCore(s.cfg, m, sink, s.binaryEnabled())
	var runErr error
	stop, berr := applyBinaryConvert(s.cfg, sink, c, buf)
	if berr != nil {
		runErr = berr
	} else if !stop {
		_, runErr = c.matchByLine(buf)
	}

	finish := Finish{ByteCount: uint64(len(buf))}
	if c.hasBinaryOffset {
		finish.BinaryByteOffset = c.binaryByteOffset
		finish.HasBinaryOffset = true
	}
	if ferr := sink.Finish(finish); ferr != nil && runErr == nil {
		runErr = ferr
	}
	return runErr
}

// SearchSlice searches haystack, already resident in memory (spec.md
// §4.6 "slice" mode). When cfg.Encoding names an IANA encoding, haystack
// is transcoded to UTF-8 first, so every offset the core and sink ever
// see is already relative to the decoded bytes.
func (s *Searcher) SearchSlice(m matcher.Matcher, sink Sink, haystack []byte) error {
	dec, err := s.decoder()
	if err != nil {
		return err
	}
	if dec != nil {
		haystack, err = transcode(dec, haystack)
		if err != nil {
			return err
		}
	}
	if s.cfg.MultiLine {
		return s.searchMultiLine(m, sink, haystack)
	}
	return s.runSlice(m, sink, haystack)
}

// SearchReader searches r in reader-streaming mode, filling a reusable
// line buffer and rolling it forward as the core consumes lines.
// MultiLine forces the whole reader to be buffered into memory first,
// per spec.md §4.6 ("multi_line... forces whole-input buffering"). When
// cfg.Encoding names an IANA encoding, r is wrapped in a transcoding
// reader before the line buffer (or, under MultiLine, io.ReadAll) ever
// sees a byte of it.
func (s *Searcher) SearchReader(m matcher.Matcher, sink Sink, r io.Reader) error {
	dec, err := s.decoder()
	if err != nil {
		return err
	}
	if dec != nil {
		dec.Reset()
		r = transform.NewReader(r, dec)
	}

	if s.cfg.MultiLine {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		return s.searchMultiLine(m, sink, data)
	}

	ok, err := sink.Begin()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	buf := s.lineBuffer()
	c := newCore(s.cfg, m, sink, s.binaryEnabled())

	var runErr error
	for {
		more, ferr := buf.Fill(r)
		if ferr != nil {
			runErr = ferr
			break
		}
		if !more {
			break
		}
		window := buf.Buffer()
		cont, merr := c.matchByLine(window)
		if merr != nil {
			runErr = merr
			break
		}
		consumed := c.roll(window)
		buf.Consume(consumed)
		// linebuf detects and reacts to the binary byte internally
		// (truncating under Quit, rewriting under Convert) before the
		// core ever sees the window it produces, so the core's own
		// per-range detectBinary would never independently rediscover
		// it; bridge the buffer's finding to the Sink once the window
		// containing (or preceding) it has been fully processed.
		if off, set := buf.BinaryOffset(); set && !c.hasBinaryOffset {
			c.hasBinaryOffset = true
			c.binaryByteOffset = uint64(off)
			bcont, berr := sink.BinaryData(uint64(off))
			if berr != nil {
				runErr = berr
				break
			}
			if !bcont {
				break
			}
		}
		if !cont {
			break
		}
	}

	finish := Finish{ByteCount: uint64(buf.End())}
	if c.hasBinaryOffset {
		finish.BinaryByteOffset = c.binaryByteOffset
		finish.HasBinaryOffset = true
	}
	if ferr := sink.Finish(finish); ferr != nil && runErr == nil {
		runErr = ferr
	}
	return runErr
}
