package search

import "github.com/standardbeagle/rgcore/internal/matcher"

// searchMultiLine drives the multi-line path (spec.md §4.6 "Multi-line
// path"): the whole haystack must already be resident, since a match may
// span line terminators. Every match from FindAt is expanded to the full
// line(s) that contain it; adjacent expansions touching the same line are
// merged into a single emission.
func (s *Searcher) searchMultiLine(m matcher.Matcher, sink Sink, data []byte) error {
	ok, err := sink.Begin()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	c := newCore(s.cfg, m, sink, s.binaryEnabled())
	var runErr error
	stop, berr := applyBinaryConvert(s.cfg, sink, c, data)
	if berr != nil {
		runErr = berr
	} else if !stop {
		_, runErr = c.matchMultiLine(data)
	}

	finish := Finish{ByteCount: uint64(len(data))}
	if c.hasBinaryOffset {
		finish.BinaryByteOffset = c.binaryByteOffset
		finish.HasBinaryOffset = true
	}
	if ferr := sink.Finish(finish); ferr != nil && runErr == nil {
		runErr = ferr
	}
	return runErr
}
