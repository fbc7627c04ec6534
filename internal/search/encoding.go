package search

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	rgerrors "github.com/standardbeagle/rgcore/internal/errors"
)

// decoder resolves cfg.Encoding (an IANA encoding name, spec.md §4.6) to
// a reusable *encoding.Decoder, caching the lookup across the searcher's
// lifetime since it is reused across many files (spec.md §5). Returns
// nil, nil when no encoding was configured.
func (s *Searcher) decoder() (*encoding.Decoder, error) {
	if s.cfg.Encoding == "" {
		return nil, nil
	}
	s.encOnce.Do(func() {
		enc, err := htmlindex.Get(s.cfg.Encoding)
		if err != nil {
			s.encErr = rgerrors.New(rgerrors.KindIOError, "", err)
			return
		}
		s.dec = enc.NewDecoder()
	})
	return s.dec, s.encErr
}

// transcode converts data from cfg.Encoding to UTF-8 using dec, resetting
// the decoder's internal state first since it is shared across
// independent files (some encodings, e.g. ISO-2022-JP, carry shift
// state between calls that must not leak across inputs).
func transcode(dec *encoding.Decoder, data []byte) ([]byte, error) {
	dec.Reset()
	return dec.Bytes(data)
}
