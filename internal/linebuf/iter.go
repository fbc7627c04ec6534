package linebuf

import (
	"bytes"

	"github.com/standardbeagle/rgcore/internal/types"
)

// Step iterates lines in a fixed byte range without borrowing the slice
// itself, mirroring the teacher's LineScanner
// (_teacher_ref/core/line_scanner.go) but following
// _examples/original_source/crates/searcher/src/lines.rs's contract: the
// terminator is considered part of the line it ends, every yielded line is
// non-empty, and the caller supplies the same backing slice on every call.
type Step struct {
	terminator byte
	pos        int
	end        int
}

// NewStep creates a stepper over bytes[start:end), boundaries the caller
// must pass consistently to Next.
func NewStep(terminator byte, start, end int) Step {
	if start > end {
		panic("linebuf: invalid step range")
	}
	return Step{terminator: terminator, pos: start, end: end}
}

// Next returns the range of the next line, including its terminator.
func (s *Step) Next(data []byte) (types.Range, bool) {
	window := data[:s.end]
	idx := bytes.IndexByte(window[s.pos:], s.terminator)
	if idx < 0 {
		if s.pos < len(window) {
			r := types.NewRange(s.pos, len(window))
			s.pos = len(window)
			return r, true
		}
		return types.Range{}, false
	}
	r := types.NewRange(s.pos, s.pos+idx+1)
	s.pos = r.End
	return r, true
}

// Iter iterates the lines of a single byte slice, yielding zero-copy
// sub-slices (terminator included).
type Iter struct {
	data []byte
	step Step
}

// NewIter creates an iterator over the whole of data.
func NewIter(terminator byte, data []byte) *Iter {
	return &Iter{data: data, step: NewStep(terminator, 0, len(data))}
}

// Next returns the next line, or nil and false when exhausted.
func (it *Iter) Next() ([]byte, bool) {
	r, ok := it.step.Next(it.data)
	if !ok {
		return nil, false
	}
	return it.data[r.Start:r.End], true
}

// Count returns the number of occurrences of terminator in data — the
// number of complete lines (a trailing partial line at EOF is not
// counted).
func Count(data []byte, terminator byte) int64 {
	return int64(bytes.Count(data, []byte{terminator}))
}

// WithoutTerminator strips a single trailing terminator byte from line,
// if present. Used before running is_match/shortest_match so a
// terminator-anchored pattern (e.g. `$`) doesn't misfire against the
// terminator byte itself.
func WithoutTerminator(line []byte, terminator byte) []byte {
	if len(line) > 0 && line[len(line)-1] == terminator {
		return line[:len(line)-1]
	}
	return line
}

// Locate expands rng to the full line(s) that contain it: start walks
// back to the byte after the preceding terminator (or 0), end walks
// forward to the next terminator (inclusive) unless rng already ends
// exactly on one.
func Locate(data []byte, terminator byte, rng types.Range) types.Range {
	start := 0
	if j := bytes.LastIndexByte(data[:rng.Start], terminator); j >= 0 {
		start = j + 1
	}
	end := len(data)
	if rng.End > start && data[rng.End-1] == terminator {
		end = rng.End
	} else if j := bytes.IndexByte(data[rng.End:], terminator); j >= 0 {
		end = rng.End + j + 1
	}
	return types.NewRange(start, end)
}

// Preceding returns the minimal start offset of the line that is `count`
// lines before the line containing pos (spec.md §4.6 "Walk backward from
// L's start to find up to before_context previous line-starts"). count
// zero returns the start of pos's own line.
func Preceding(data []byte, terminator byte, pos, count int) int {
	if pos == 0 {
		return 0
	}
	if data[pos-1] == terminator {
		pos--
	}
	for {
		j := bytes.LastIndexByte(data[:pos], terminator)
		if j < 0 {
			return 0
		}
		if count == 0 {
			return j + 1
		}
		if j == 0 {
			return 0
		}
		count--
		pos = j
	}
}
