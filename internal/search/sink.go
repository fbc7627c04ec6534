package search

// ContextKind distinguishes the three kinds of non-matching context line
// a Sink can receive (spec.md §3 "Sink event").
type ContextKind int

const (
	Before ContextKind = iota
	After
	Other
)

// Match is delivered to Sink.Matched for every matching line (or, under
// InvertMatch, every non-matching one).
type Match struct {
	// Bytes is the matched line, terminator included.
	Bytes []byte
	// AbsoluteByteOffset is the offset of Bytes[0] from the start of the
	// whole input, not just the current buffer.
	AbsoluteByteOffset uint64
	// LineNumber is 1-based, present only when Config.LineNumber is set.
	LineNumber    int64
	HasLineNumber bool
}

// Context is delivered to Sink.Context for Before/After/Other lines.
type Context struct {
	Bytes              []byte
	Kind               ContextKind
	AbsoluteByteOffset uint64
	LineNumber         int64
	HasLineNumber      bool
}

// Finish is delivered to Sink.Finish exactly once per search whose Begin
// returned true, however the search ended after that.
type Finish struct {
	ByteCount        uint64
	BinaryByteOffset uint64
	HasBinaryOffset  bool
}

// Sink receives search events. All methods are called from the single
// thread driving the Searcher that owns them (spec.md §4.7): a Sink must
// not be shared across concurrent searches unless externally
// synchronized.
type Sink interface {
	// Begin is called once before any other method. Returning false
	// skips the file entirely (no further calls, Finish included).
	Begin() (bool, error)
	// Matched is called once per match (or non-matching line under
	// InvertMatch). Returning false stops the search for this file.
	Matched(m Match) (bool, error)
	Context(c Context) (bool, error)
	// ContextBreak signals a gap between the previous emitted line and
	// the next one about to be emitted.
	ContextBreak() (bool, error)
	// BinaryData is called the first time the configured binary byte is
	// observed.
	BinaryData(offset uint64) (bool, error)
	// Finish is called once Begin has returned true, even after a later
	// error or a false return from another method, so the sink can
	// release resources.
	Finish(f Finish) error
}
