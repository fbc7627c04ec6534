package config

import (
	"fmt"
	"runtime"
)

// Validator checks a Config for self-consistent values and fills in any
// field a settings file left at its zero value, grounded on the
// teacher's Validator/setSmartDefaults (CPU-count-scaled worker counts),
// reworked to validate this module's walker/searcher/watch fields
// instead of the teacher's indexing/semantic-search ones.
type Validator struct{}

func NewValidator() *Validator { return &Validator{} }

// ValidateAndSetDefaults rejects contradictory settings and fills in
// any zero-valued field with a sensible default.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateWalk(&cfg.Walk); err != nil {
		return fmt.Errorf("config: walk: %w", err)
	}
	if err := v.validateSearch(&cfg.Search); err != nil {
		return fmt.Errorf("config: search: %w", err)
	}
	if err := v.validateWatch(&cfg.Watch); err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	return nil
}

func (v *Validator) validateWalk(w *Walk) error {
	switch w.Hidden {
	case "":
		w.Hidden = "hide"
	case "show", "hide":
	default:
		return fmt.Errorf("hidden must be \"show\" or \"hide\", got %q", w.Hidden)
	}

	if w.MaxDepth == 0 {
		w.MaxDepth = -1
	}
	if w.MaxFilesize < 0 {
		return fmt.Errorf("max_filesize must be >= 0, got %d", w.MaxFilesize)
	}

	switch w.Sort {
	case "", "none":
		w.Sort = "none"
	case "name", "path", "modified", "accessed", "created":
	default:
		return fmt.Errorf("sort must be one of none/name/path/modified/accessed/created, got %q", w.Sort)
	}

	if w.Threads <= 0 {
		w.Threads = runtime.NumCPU()
	}
	if len(w.IgnoreFileNames) == 0 {
		w.IgnoreFileNames = []string{".gitignore", ".ignore", ".rgcoreignore"}
	}
	return nil
}

func (v *Validator) validateSearch(s *Search) error {
	if s.BeforeContext < 0 || s.AfterContext < 0 {
		return fmt.Errorf("before_context/after_context must be >= 0")
	}
	if s.HeapLimit < 0 {
		return fmt.Errorf("heap_limit must be >= 0, got %d", s.HeapLimit)
	}

	switch s.BufferPolicy {
	case "":
		s.BufferPolicy = "adaptive"
	case "fixed", "adaptive":
	default:
		return fmt.Errorf("buffer_policy must be \"fixed\" or \"adaptive\", got %q", s.BufferPolicy)
	}

	switch s.BinaryDetection {
	case "":
		s.BinaryDetection = "quit"
	case "none", "quit", "convert":
	default:
		return fmt.Errorf("binary_detection must be none/quit/convert, got %q", s.BinaryDetection)
	}

	switch s.Mmap {
	case "":
		s.Mmap = "auto"
	case "auto", "never":
	default:
		return fmt.Errorf("mmap must be \"auto\" or \"never\", got %q", s.Mmap)
	}

	if s.LineTerminator == "" {
		s.LineTerminator = "\n"
	} else if len(s.LineTerminator) != 1 {
		return fmt.Errorf("line_terminator must be a single byte, got %q", s.LineTerminator)
	}
	return nil
}

func (v *Validator) validateWatch(w *Watch) error {
	if w.DebounceMs < 0 {
		return fmt.Errorf("debounce_ms must be >= 0, got %d", w.DebounceMs)
	}
	if w.DebounceMs == 0 {
		w.DebounceMs = 200
	}
	return nil
}

// ValidateConfig is a convenience wrapper over a fresh Validator.
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
