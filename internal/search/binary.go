package search

import (
	"bytes"

	"github.com/standardbeagle/rgcore/internal/linebuf"
)

// convertBinaryInPlace rewrites every occurrence of det.Byte in buf to
// terminator, mirroring what linebuf.Buffer.Fill does incrementally for
// reader-streaming mode. The slice, mmap, and multi-line paths never go
// through the line buffer, so without this pass a Convert-mode binary
// byte would never become a line boundary for them the way it does for
// streaming — it runs once, up front, so the ordinary line splitter sees
// a consistent result regardless of input mode.
func convertBinaryInPlace(buf []byte, det linebuf.Detection, terminator byte) (offset int, found bool) {
	if det.Mode != linebuf.DetectConvert {
		return 0, false
	}
	pos := 0
	for {
		idx := bytes.IndexByte(buf[pos:], det.Byte)
		if idx < 0 {
			break
		}
		abs := pos + idx
		if !found {
			offset, found = abs, true
		}
		buf[abs] = terminator
		pos = abs + 1
	}
	return offset, found
}

// applyBinaryConvert runs convertBinaryInPlace against buf (a no-op
// unless Config.BinaryDetection.Mode is DetectConvert), seeds core's
// binary-offset bookkeeping to match, and reports the offset to sink
// exactly once. stop reports whether the sink asked to abort the search
// immediately — the caller must still call sink.Finish in that case.
func applyBinaryConvert(cfg Config, sink Sink, c *core, buf []byte) (stop bool, err error) {
	off, found := convertBinaryInPlace(buf, cfg.BinaryDetection, cfg.LineTerminator)
	if !found {
		return false, nil
	}
	c.binaryByteOffset = uint64(off)
	c.hasBinaryOffset = true
	cont, err := sink.BinaryData(uint64(off))
	if err != nil {
		return true, err
	}
	return !cont, nil
}
