package search

import (
	"bytes"

	rgerrors "github.com/standardbeagle/rgcore/internal/errors"
	"github.com/standardbeagle/rgcore/internal/linebuf"
	"github.com/standardbeagle/rgcore/internal/matcher"
	"github.com/standardbeagle/rgcore/internal/types"
)

// fastResult is the outcome of one call to core.matchByLineFast,
// mirroring the original's FastMatchResult (Continue/Stop/SwitchToSlow).
type fastResult int

const (
	fastContinue fastResult = iota
	fastStop
	fastSwitchToSlow
)

// core drives one search over one contiguous buffer: the line-by-line
// fast/slow path split, the before/after context machine, line-number
// counting, and binary detection. It is grounded directly on
// _examples/original_source/crates/searcher/src/searcher/core.rs's
// `Core`, translated from borrow-checked Rust into a plain Go struct —
// the teacher has no analogue of a Sink-style event stream, since its
// line_scanner.go always holds a whole file in memory and returns
// slices rather than calling back into a consumer.
type core struct {
	cfg     Config
	m       matcher.Matcher
	sink    Sink
	binary  bool
	pos     int
	absoluteByteOffset uint64

	hasBinaryOffset  bool
	binaryByteOffset uint64

	hasLineNumber   bool
	lineNumber      int64
	lastLineCounted int
	lastLineVisited int

	afterContextLeft int
	hasSunk          bool
	hasMatched       bool
}

func newCore(cfg Config, m matcher.Matcher, sink Sink, binary bool) *core {
	c := &core{cfg: cfg, m: m, sink: sink, binary: binary}
	if cfg.LineNumber {
		c.hasLineNumber = true
		c.lineNumber = 1
	}
	return c
}

// matchByLine scans buf[c.pos:] to completion (or until the sink asks to
// stop), choosing the fast or slow path per line.
func (c *core) matchByLine(buf []byte) (bool, error) {
	if c.isLineByLineFast() {
		res, err := c.matchByLineFast(buf)
		if err != nil {
			return false, err
		}
		switch res {
		case fastSwitchToSlow:
			return c.matchByLineSlow(buf)
		case fastStop:
			return false, nil
		default:
			return true, nil
		}
	}
	return c.matchByLineSlow(buf)
}

// roll computes how many bytes at the front of buf can be discarded
// ahead of the next Fill, preserving at least max(before,after) whole
// context lines of already-consumed tail, and advances the offset
// bookkeeping to match (spec.md §4.6 streaming-mode note).
func (c *core) roll(buf []byte) int {
	var consumed int
	if c.cfg.maxContext() == 0 {
		consumed = len(buf)
	} else {
		contextStart := linebuf.Preceding(buf, c.cfg.LineTerminator, len(buf), c.cfg.maxContext())
		consumed = contextStart
		if c.lastLineVisited > consumed {
			consumed = c.lastLineVisited
		}
	}
	c.countLines(buf, consumed)
	c.absoluteByteOffset += uint64(consumed)
	c.lastLineCounted = 0
	c.lastLineVisited = 0
	c.pos -= consumed
	if c.pos < 0 {
		c.pos = 0
	}
	return consumed
}

func (c *core) isLineByLineFast() bool {
	if _, ok := c.m.(matcher.CandidateLineFinder); !ok {
		return false
	}
	if c.cfg.Passthru {
		return false
	}
	if c.cfg.StopOnNonmatch && c.hasMatched {
		return false
	}
	if lta, ok := c.m.(matcher.LineTerminatorAware); ok {
		if term, known := lta.LineTerminator(); known && term == c.cfg.LineTerminator {
			return true
		}
	}
	if nmb, ok := c.m.(matcher.NonMatchingBytes); ok {
		if set, known := nmb.NonMatchingBytes(); known && set[c.cfg.LineTerminator] {
			return true
		}
	}
	return false
}

func (c *core) matchByLineFast(buf []byte) (fastResult, error) {
	for c.pos < len(buf) {
		if c.cfg.StopOnNonmatch && c.hasMatched {
			return fastSwitchToSlow, nil
		}
		if c.cfg.InvertMatch {
			cont, err := c.matchByLineFastInvert(buf)
			if err != nil {
				return fastStop, err
			}
			if !cont {
				return fastStop, nil
			}
			continue
		}
		line, ok, err := c.findByLineFast(buf)
		if err != nil {
			return fastStop, err
		}
		if !ok {
			break
		}
		c.hasMatched = true
		if c.cfg.maxContext() > 0 {
			cont, err := c.afterContextByLine(buf, line.Start)
			if err != nil {
				return fastStop, err
			}
			if !cont {
				return fastStop, nil
			}
			cont, err = c.beforeContextByLine(buf, line.Start)
			if err != nil {
				return fastStop, err
			}
			if !cont {
				return fastStop, nil
			}
		}
		c.pos = line.End
		cont, err := c.sinkMatched(buf, line)
		if err != nil {
			return fastStop, err
		}
		if !cont {
			return fastStop, nil
		}
	}
	cont, err := c.afterContextByLine(buf, len(buf))
	if err != nil {
		return fastStop, err
	}
	if !cont {
		return fastStop, nil
	}
	c.pos = len(buf)
	return fastContinue, nil
}

func (c *core) matchByLineFastInvert(buf []byte) (bool, error) {
	line, ok, err := c.findByLineFast(buf)
	if err != nil {
		return false, err
	}
	var invertRange types.Range
	if !ok {
		invertRange = types.NewRange(c.pos, len(buf))
		c.pos = len(buf)
	} else {
		invertRange = types.NewRange(c.pos, line.Start)
		c.pos = line.End
	}
	if invertRange.IsEmpty() {
		return true, nil
	}
	c.hasMatched = true
	if cont, err := c.afterContextByLine(buf, invertRange.Start); err != nil || !cont {
		return cont, err
	}
	if cont, err := c.beforeContextByLine(buf, invertRange.Start); err != nil || !cont {
		return cont, err
	}
	step := linebuf.NewStep(c.cfg.LineTerminator, invertRange.Start, invertRange.End)
	for {
		r, ok := step.Next(buf)
		if !ok {
			break
		}
		cont, err := c.sinkMatched(buf, r)
		if err != nil {
			return false, err
		}
		if !cont {
			return false, nil
		}
	}
	return true, nil
}

func (c *core) findByLineFast(buf []byte) (types.Range, bool, error) {
	finder := c.m.(matcher.CandidateLineFinder)
	pos := c.pos
	for pos < len(buf) {
		cand, err := finder.FindCandidateLine(buf[pos:])
		if err != nil {
			return types.Range{}, false, rgerrors.New(rgerrors.KindMatcherError, "", err)
		}
		switch cand.Kind {
		case matcher.NoCandidate:
			return types.Range{}, false, nil
		case matcher.Confirmed:
			line := linebuf.Locate(buf, c.cfg.LineTerminator, types.NewRange(pos+cand.Offset, pos+cand.Offset))
			if line.Start == len(buf) {
				pos = len(buf)
				continue
			}
			return line, true, nil
		case matcher.Candidate:
			line := linebuf.Locate(buf, c.cfg.LineTerminator, types.NewRange(pos+cand.Offset, pos+cand.Offset))
			slice := linebuf.WithoutTerminator(buf[line.Start:line.End], c.cfg.LineTerminator)
			ok, err := c.m.IsMatch(slice)
			if err != nil {
				return types.Range{}, false, rgerrors.New(rgerrors.KindMatcherError, "", err)
			}
			if ok {
				return line, true, nil
			}
			pos = line.End
		}
	}
	return types.Range{}, false, nil
}

func (c *core) matchByLineSlow(buf []byte) (bool, error) {
	step := linebuf.NewStep(c.cfg.LineTerminator, c.pos, len(buf))
	for {
		line, ok := step.Next(buf)
		if !ok {
			break
		}
		slice := linebuf.WithoutTerminator(buf[line.Start:line.End], c.cfg.LineTerminator)
		matched, err := c.m.ShortestMatch(slice)
		if err != nil {
			return false, rgerrors.New(rgerrors.KindMatcherError, "", err)
		}
		c.pos = line.End
		success := matched != c.cfg.InvertMatch
		if success {
			c.hasMatched = true
			if cont, err := c.beforeContextByLine(buf, line.Start); err != nil || !cont {
				return cont, err
			}
			if cont, err := c.sinkMatched(buf, line); err != nil || !cont {
				return cont, err
			}
		} else if c.afterContextLeft >= 1 {
			if cont, err := c.sinkAfterContext(buf, line); err != nil || !cont {
				return cont, err
			}
		} else if c.cfg.Passthru {
			if cont, err := c.sinkOtherContext(buf, line); err != nil || !cont {
				return cont, err
			}
		}
		if c.cfg.StopOnNonmatch && !success && c.hasMatched {
			return false, nil
		}
	}
	return true, nil
}

// matchMultiLine drives the multi-line path (spec.md §4.6): repeatedly
// calls FindAt across the whole buffer, expands each match to the full
// line(s) containing it, and merges adjacent expansions that land on the
// same line before emitting. invert_match has no sensible multi-line
// meaning (there's no single "non-matching line" once a match can span
// several), so it falls back to the ordinary slow line-by-line path.
func (c *core) matchMultiLine(buf []byte) (bool, error) {
	if c.cfg.InvertMatch {
		return c.matchByLineSlow(buf)
	}

	at := 0
	var pending types.Range
	hasPending := false
	for at <= len(buf) {
		match, ok, err := c.m.FindAt(buf, at)
		if err != nil {
			return false, rgerrors.New(rgerrors.KindMatcherError, "", err)
		}
		if !ok {
			break
		}
		line := linebuf.Locate(buf, c.cfg.LineTerminator, match.Range)

		if !hasPending {
			pending, hasPending = line, true
		} else if line.Start < pending.End {
			if line.End > pending.End {
				pending.End = line.End
			}
		} else {
			if cont, err := c.emitMultiLineMatch(buf, pending); err != nil || !cont {
				return cont, err
			}
			pending = line
		}

		// Advance by the raw match end, not the expanded line end: the
		// next FindAt must still be able to see a second match that starts
		// earlier than this match's expanded line boundary, or two matches
		// on (or touching) the same line could never both be found and
		// merged.
		if match.Range.End <= at {
			at++
			continue
		}
		at = match.Range.End
	}

	if hasPending {
		if cont, err := c.emitMultiLineMatch(buf, pending); err != nil || !cont {
			return cont, err
		}
	}
	if cont, err := c.afterContextByLine(buf, len(buf)); err != nil || !cont {
		return cont, err
	}
	c.pos = len(buf)
	return true, nil
}

func (c *core) emitMultiLineMatch(buf []byte, line types.Range) (bool, error) {
	c.hasMatched = true
	if cont, err := c.afterContextByLine(buf, line.Start); err != nil || !cont {
		return cont, err
	}
	if cont, err := c.beforeContextByLine(buf, line.Start); err != nil || !cont {
		return cont, err
	}
	return c.sinkMatched(buf, line)
}

func (c *core) beforeContextByLine(buf []byte, upto int) (bool, error) {
	if c.cfg.BeforeContext == 0 {
		return true, nil
	}
	rng := types.NewRange(c.lastLineVisited, upto)
	if rng.IsEmpty() {
		return true, nil
	}
	sub := buf[rng.Start:rng.End]
	start := rng.Start + linebuf.Preceding(sub, c.cfg.LineTerminator, len(sub), c.cfg.BeforeContext-1)
	step := linebuf.NewStep(c.cfg.LineTerminator, start, rng.End)
	for {
		line, ok := step.Next(buf)
		if !ok {
			break
		}
		if cont, err := c.sinkBreakContext(line.Start); err != nil || !cont {
			return cont, err
		}
		if cont, err := c.sinkBeforeContext(buf, line); err != nil || !cont {
			return cont, err
		}
	}
	return true, nil
}

func (c *core) afterContextByLine(buf []byte, upto int) (bool, error) {
	if c.afterContextLeft == 0 {
		return true, nil
	}
	rng := types.NewRange(c.lastLineVisited, upto)
	step := linebuf.NewStep(c.cfg.LineTerminator, rng.Start, rng.End)
	for {
		line, ok := step.Next(buf)
		if !ok {
			break
		}
		if cont, err := c.sinkAfterContext(buf, line); err != nil || !cont {
			return cont, err
		}
		if c.afterContextLeft == 0 {
			break
		}
	}
	return true, nil
}

func (c *core) sinkMatched(buf []byte, rng types.Range) (bool, error) {
	if c.binary {
		quit, err := c.detectBinary(buf, rng)
		if err != nil {
			return false, err
		}
		if quit {
			return false, nil
		}
	}
	if cont, err := c.sinkBreakContext(rng.Start); err != nil || !cont {
		return cont, err
	}
	c.countLines(buf, rng.Start)
	m := Match{
		Bytes:              buf[rng.Start:rng.End],
		AbsoluteByteOffset: c.absoluteByteOffset + uint64(rng.Start),
	}
	if c.hasLineNumber {
		m.LineNumber = c.lineNumber
		m.HasLineNumber = true
	}
	cont, err := c.sink.Matched(m)
	if err != nil {
		return false, err
	}
	if !cont {
		return false, nil
	}
	c.lastLineVisited = rng.End
	c.afterContextLeft = c.cfg.AfterContext
	c.hasSunk = true
	return true, nil
}

func (c *core) sinkBeforeContext(buf []byte, rng types.Range) (bool, error) {
	return c.sinkContext(buf, rng, Before)
}

func (c *core) sinkAfterContext(buf []byte, rng types.Range) (bool, error) {
	cont, err := c.sinkContext(buf, rng, After)
	if err != nil || !cont {
		return cont, err
	}
	c.afterContextLeft--
	return true, nil
}

func (c *core) sinkOtherContext(buf []byte, rng types.Range) (bool, error) {
	return c.sinkContext(buf, rng, Other)
}

func (c *core) sinkContext(buf []byte, rng types.Range, kind ContextKind) (bool, error) {
	if c.binary {
		quit, err := c.detectBinary(buf, rng)
		if err != nil {
			return false, err
		}
		if quit {
			return false, nil
		}
	}
	c.countLines(buf, rng.Start)
	ctx := Context{
		Bytes:              buf[rng.Start:rng.End],
		Kind:               kind,
		AbsoluteByteOffset: c.absoluteByteOffset + uint64(rng.Start),
	}
	if c.hasLineNumber {
		ctx.LineNumber = c.lineNumber
		ctx.HasLineNumber = true
	}
	cont, err := c.sink.Context(ctx)
	if err != nil {
		return false, err
	}
	if !cont {
		return false, nil
	}
	c.lastLineVisited = rng.End
	c.hasSunk = true
	return true, nil
}

func (c *core) sinkBreakContext(startOfLine int) (bool, error) {
	isGap := c.lastLineVisited < startOfLine
	anyContext := c.cfg.BeforeContext > 0 || c.cfg.AfterContext > 0
	if !anyContext || !c.hasSunk || !isGap {
		return true, nil
	}
	return c.sink.ContextBreak()
}

func (c *core) countLines(buf []byte, upto int) {
	if !c.hasLineNumber {
		return
	}
	if c.lastLineCounted >= upto {
		return
	}
	c.lineNumber += linebuf.Count(buf[c.lastLineCounted:upto], c.cfg.LineTerminator)
	c.lastLineCounted = upto
}

// detectBinary scans buf[rng] for the configured binary byte and applies
// the configured reaction, reporting quit=true when the caller should
// stop the search for this file.
func (c *core) detectBinary(buf []byte, rng types.Range) (bool, error) {
	if c.hasBinaryOffset {
		return c.cfg.BinaryDetection.Mode == linebuf.DetectQuit, nil
	}
	if c.cfg.BinaryDetection.Mode == linebuf.DetectNone {
		return false, nil
	}
	idx := bytes.IndexByte(buf[rng.Start:rng.End], c.cfg.BinaryDetection.Byte)
	if idx < 0 {
		return false, nil
	}
	offset := c.absoluteByteOffset + uint64(rng.Start+idx)
	c.binaryByteOffset = offset
	c.hasBinaryOffset = true
	cont, err := c.sink.BinaryData(offset)
	if err != nil {
		return false, err
	}
	if !cont {
		return true, nil
	}
	return c.cfg.BinaryDetection.Mode == linebuf.DetectQuit, nil
}
