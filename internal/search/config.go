package search

import "github.com/standardbeagle/rgcore/internal/linebuf"

// Config enumerates every searcher option from spec.md §4.6, each of
// which names an effect rather than an implementation detail.
type Config struct {
	// LineNumber computes 1-based line numbers for every emitted event.
	LineNumber bool
	// InvertMatch emits non-matching lines instead of matching ones.
	InvertMatch bool
	// MultiLine allows the matcher to span line terminators, forcing
	// whole-input buffering.
	MultiLine bool
	// BeforeContext/AfterContext are the number of non-matching lines
	// emitted around each match.
	BeforeContext int
	AfterContext  int
	// Passthru makes every non-matching line an Other context event,
	// equivalent to unbounded context.
	Passthru bool
	// StopOnNonmatch aborts the file after the first non-match
	// following at least one match.
	StopOnNonmatch bool
	// HeapLimit bounds the line buffer's growth in reader-streaming
	// mode; 0 means unlimited.
	HeapLimit int
	// BufferPolicy selects the line buffer's growth policy.
	BufferPolicy linebuf.Policy
	// InitialBufferCapacity seeds the line buffer's starting size; 0
	// picks a sane default.
	InitialBufferCapacity int
	// BinaryDetection configures the reaction to a configured binary
	// byte, shared between the line buffer and the slice/mmap paths.
	BinaryDetection linebuf.Detection
	// MmapChoice controls whether SearchPath prefers a memory map.
	MmapChoice MmapChoice
	// Encoding, when non-empty, names an IANA encoding that input bytes
	// are transcoded from before search.
	Encoding string
	// LineTerminator is the byte that ends a line. '\n' by default.
	LineTerminator byte
}

// MmapChoice mirrors the original's MmapChoice(Auto|Never): Auto uses a
// memory map for regular files at or above mmapAutoThreshold, Never always
// streams (spec.md §4.6 "mmap_choice").
type MmapChoice int

const (
	MmapNever MmapChoice = iota
	MmapAuto
)

const mmapAutoThreshold = 16 * 1024

// DefaultConfig returns the zero-value-safe baseline: '\n' terminator,
// adaptive buffer growth, mmap disabled.
func DefaultConfig() Config {
	return Config{
		LineTerminator: '\n',
		BufferPolicy:   linebuf.Adaptive,
		MmapChoice:     MmapNever,
	}
}

// maxContext is the larger of BeforeContext and AfterContext — the
// number of trailing lines reader-streaming mode must preserve across a
// buffer roll (spec.md §4.6 "the line buffer's pre-roll compaction must
// preserve at least max(before_context, after_context)").
func (c Config) maxContext() int {
	if c.BeforeContext > c.AfterContext {
		return c.BeforeContext
	}
	return c.AfterContext
}
