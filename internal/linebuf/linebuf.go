// Package linebuf implements the line buffer (spec.md §4.5): the bounded,
// reusable byte buffer the searcher's reader-streaming mode fills from an
// io.Reader, rolls forward as lines are consumed, and which detects binary
// content in newly-read bytes.
//
// Grounded on the teacher's internal/core/line_scanner.go for the
// zero-copy, offset-based style of line iteration (see iter.go), and on
// _examples/original_source/crates/searcher/src/searcher/core.rs's roll
// method for the "preserve at least max(before,after) context lines"
// compaction rule — the original's line_buffer.rs itself wasn't retrieved,
// so the fill/grow/binary-detection state machine here is built directly
// from spec.md §4.5's prose.
package linebuf

import (
	"bytes"
	"errors"
	"io"
)

// ErrLineTooLong is returned by Fill under the Fixed growth policy when a
// single line would not fit in the buffer's initial capacity.
var ErrLineTooLong = errors.New("linebuf: line exceeds buffer capacity")

// ErrHeapLimitExceeded is returned by Fill under the Adaptive growth
// policy when the buffer is full and its capacity already equals the
// configured heap limit (a doubling past the limit is clamped to it first).
var ErrHeapLimitExceeded = errors.New("linebuf: heap limit exceeded")

// Policy controls how Fill grows the buffer when the current capacity
// can't hold a whole line (spec.md §4.5 "Growth policy").
type Policy int

const (
	// Fixed never grows past its initial capacity.
	Fixed Policy = iota
	// Adaptive doubles capacity, up to HeapLimit, until the line fits.
	Adaptive
)

// DetectionMode mirrors types.BinaryDetectionMode but carries the trigger
// byte alongside it, since the buffer (unlike the searcher) must act on it
// directly.
type DetectionMode int

const (
	DetectNone DetectionMode = iota
	DetectQuit
	DetectConvert
)

// Detection configures the buffer's binary-byte reaction (spec.md §4.5).
type Detection struct {
	Mode DetectionMode
	Byte byte
}

const defaultCapacity = 8 * 1024

// Buffer is the bounded, rollable line buffer described in spec.md §4.5.
// It is not safe for concurrent use; the searcher's concurrency model
// (spec.md §5) gives each worker its own Buffer, reused across files via
// Reset.
type Buffer struct {
	terminator byte
	policy     Policy
	heapLimit  int // 0 means unlimited
	detection  Detection

	buf         []byte
	pos         int // start of unconsumed, not-yet-handed-out data
	end         int // buf[0:end] is the terminator-bounded valid region
	filled      int // buf[0:filled] holds bytes actually read; filled >= end
	searchStart int // resume point for the next terminator/binary scan

	base int64 // absolute stream offset corresponding to buf[0]

	binaryOffset    int64
	binaryOffsetSet bool
	sticky          bool // true once Quit-mode truncation has occurred
}

// New creates a Buffer with the given line terminator, growth policy, and
// binary-detection configuration. initialCapacity and heapLimit are in
// bytes; heapLimit of 0 means unlimited (Adaptive will grow without bound,
// Fixed is still capped at initialCapacity).
func New(terminator byte, policy Policy, initialCapacity, heapLimit int, detection Detection) *Buffer {
	if initialCapacity <= 0 {
		initialCapacity = defaultCapacity
	}
	return &Buffer{
		terminator: terminator,
		policy:     policy,
		heapLimit:  heapLimit,
		detection:  detection,
		buf:        make([]byte, initialCapacity),
	}
}

// Reset prepares b for reuse against a new input stream, keeping the
// underlying allocation (spec.md §5: "one line buffer, reusable across
// files").
func (b *Buffer) Reset() {
	b.pos = 0
	b.end = 0
	b.filled = 0
	b.searchStart = 0
	b.base = 0
	b.binaryOffset = 0
	b.binaryOffsetSet = false
	b.sticky = false
}

// Buffer returns the unconsumed, terminator-bounded window [pos, end).
// The returned slice is only valid until the next Fill or Consume call.
func (b *Buffer) Buffer() []byte { return b.buf[b.pos:b.end] }

// Pos returns the absolute stream offset of the start of the unconsumed
// window (i.e. the offset Buffer()[0] corresponds to).
func (b *Buffer) Pos() int64 { return b.base + int64(b.pos) }

// End returns the absolute stream offset of the end of the current
// terminator-bounded window. Bytes already read past the last terminator
// are not included; once Fill has returned false at EOF without a
// Quit-mode truncation, End equals the total number of bytes read.
func (b *Buffer) End() int64 { return b.base + int64(b.end) }

// BinaryOffset reports the absolute stream offset of the first binary
// byte seen, if any.
func (b *Buffer) BinaryOffset() (int64, bool) { return b.binaryOffset, b.binaryOffsetSet }

// Consume advances pos by n, discarding the first n bytes of the
// unconsumed window. n must not exceed len(Buffer()).
func (b *Buffer) Consume(n int) {
	if n < 0 || b.pos+n > b.end {
		panic("linebuf: consume out of range")
	}
	b.pos += n
}

// Fill reads more bytes from r, extending end so that buf[0:end] ends at
// a line terminator (spec.md §4.5 "fill"). It returns false only when
// there is no more data to report: EOF with nothing left unconsumed, or a
// sticky Quit-mode binary truncation from a previous call.
func (b *Buffer) Fill(r io.Reader) (bool, error) {
	if b.sticky {
		return false, nil
	}

	for {
		b.compact()

		if b.filled == len(b.buf) {
			if err := b.grow(); err != nil {
				return false, err
			}
		}

		n, rerr := r.Read(b.buf[b.filled:])
		if n > 0 {
			start := b.filled
			b.filled += n
			quit, derr := b.detectBinary(start, b.filled)
			if derr != nil {
				return false, derr
			}
			if quit {
				return b.pos < b.end, nil
			}
		}

		if idx := bytes.IndexByte(b.buf[b.searchStart:b.filled], b.terminator); idx >= 0 {
			b.end = b.searchStart + idx + 1
			b.searchStart = b.end
			return true, nil
		}
		b.searchStart = b.filled

		if rerr == io.EOF {
			if b.filled > b.end {
				// Trailing partial line at EOF — still returned, per the
				// buffer invariant's clause (a). Compared against end, not
				// pos: a preserved-but-already-reported context tail
				// (pos < end == filled, nothing new since the last call)
				// must not be handed out again forever.
				b.end = b.filled
				return true, nil
			}
			return false, nil
		}
		if rerr != nil {
			return false, rerr
		}
		if n == 0 {
			// Reader contract technically disallows a (0, nil) read
			// forever, but guard against a misbehaving implementation
			// spinning this loop.
			return false, io.ErrNoProgress
		}
	}
}

// compact shifts any consumed prefix out of the buffer, sliding
// buf[pos:filled] down to offset 0, so Fill always has room to grow into
// the tail (spec.md §4.5 "consume(n)... the next fill may compact").
func (b *Buffer) compact() {
	if b.pos == 0 {
		return
	}
	copy(b.buf, b.buf[b.pos:b.filled])
	b.filled -= b.pos
	b.end -= b.pos
	if b.searchStart > b.pos {
		b.searchStart -= b.pos
	} else {
		b.searchStart = 0
	}
	b.base += int64(b.pos)
	b.pos = 0
}

// grow extends the buffer's capacity per the configured Policy.
func (b *Buffer) grow() error {
	if b.policy == Fixed {
		return ErrLineTooLong
	}
	newCap := len(b.buf) * 2
	if newCap == 0 {
		newCap = defaultCapacity
	}
	if b.heapLimit > 0 && newCap > b.heapLimit {
		newCap = b.heapLimit
	}
	if newCap <= len(b.buf) {
		return ErrHeapLimitExceeded
	}
	nb := make([]byte, newCap)
	copy(nb, b.buf[:b.filled])
	b.buf = nb
	return nil
}

// detectBinary scans the newly-read region buf[start:end) for the
// configured binary byte and applies the configured reaction. It returns
// quit=true when Fill should stop reading immediately (Quit mode).
func (b *Buffer) detectBinary(start, end int) (quit bool, err error) {
	if b.detection.Mode == DetectNone {
		return false, nil
	}
	target := b.detection.Byte

	switch b.detection.Mode {
	case DetectQuit:
		idx := bytes.IndexByte(b.buf[start:end], target)
		if idx < 0 {
			return false, nil
		}
		abs := start + idx
		if !b.binaryOffsetSet {
			b.binaryOffset = b.base + int64(abs)
			b.binaryOffsetSet = true
		}
		lineStart := 0
		if j := bytes.LastIndexByte(b.buf[:abs], b.terminator); j >= 0 {
			lineStart = j + 1
		}
		b.end = lineStart
		b.sticky = true
		return true, nil

	case DetectConvert:
		region := b.buf[start:end]
		for {
			idx := bytes.IndexByte(region, target)
			if idx < 0 {
				break
			}
			abs := start + idx
			if !b.binaryOffsetSet {
				b.binaryOffset = b.base + int64(abs)
				b.binaryOffsetSet = true
			}
			region[idx] = b.terminator
			region = region[idx+1:]
			start = abs + 1
		}
		return false, nil

	default:
		return false, nil
	}
}
