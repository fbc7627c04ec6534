package main

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/standardbeagle/rgcore/internal/search"
)

// lockedWriter serializes writes to a shared output stream. Per spec.md
// §5 "Shared-resource policy", the output stream is the only shared
// mutable resource in the hot path and is guarded by a mutex acquired
// once per file, not per line — plainSink buffers a whole file's output
// before ever touching this lock.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) write(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
}

// plainSink formats a search.Sink event stream as rg-style text:
// "path:line:content" for matches, "path-line-content" for context, and
// a bare "--" between context groups. It buffers everything for one file
// in memory and flushes it to the shared writer exactly once, in
// Finish, so concurrent per-file sinks never interleave output.
type plainSink struct {
	out      *lockedWriter
	path     string
	showPath bool
	matched  *int64

	buf bytes.Buffer
}

func newPlainSink(out *lockedWriter, path string, showPath bool, matched *int64) *plainSink {
	return &plainSink{out: out, path: path, showPath: showPath, matched: matched}
}

func (s *plainSink) Begin() (bool, error) {
	return true, nil
}

func (s *plainSink) Matched(m search.Match) (bool, error) {
	atomic.AddInt64(s.matched, 1)
	s.writePrefix(':', m.LineNumber, m.HasLineNumber)
	s.buf.Write(m.Bytes)
	return true, nil
}

func (s *plainSink) Context(c search.Context) (bool, error) {
	s.writePrefix('-', c.LineNumber, c.HasLineNumber)
	s.buf.Write(c.Bytes)
	return true, nil
}

func (s *plainSink) ContextBreak() (bool, error) {
	s.buf.WriteString("--\n")
	return true, nil
}

func (s *plainSink) BinaryData(offset uint64) (bool, error) {
	fmt.Fprintf(&s.buf, "%s: binary file matches (found byte offset %d)\n", s.displayPath(), offset)
	return false, nil
}

func (s *plainSink) Finish(search.Finish) error {
	if s.buf.Len() > 0 {
		s.out.write(s.buf.Bytes())
	}
	return nil
}

func (s *plainSink) writePrefix(sep byte, lineNumber int64, hasLineNumber bool) {
	if s.showPath {
		s.buf.WriteString(s.path)
		s.buf.WriteByte(sep)
	}
	if hasLineNumber {
		fmt.Fprintf(&s.buf, "%d%c", lineNumber, sep)
	}
}

func (s *plainSink) displayPath() string {
	if s.path == "" {
		return "(stdin)"
	}
	return s.path
}
