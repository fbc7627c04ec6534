package ignore

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/standardbeagle/rgcore/internal/glob"
)

// typeNamePattern is the identifier grammar from spec.md §6
// "Type-definition syntax": `[a-zA-Z0-9]+` (Unicode letters/digits).
var typeNamePattern = regexp.MustCompile(`^[\p{L}\p{N}]+$`)

// TypeAction is one select/negate step in the ordered action list a Types
// matcher evaluates (spec.md §4.3 "Type matchers").
type TypeAction struct {
	Name   string
	Select bool // true = --type, false = --type-not
}

// Types implements the named file-type matcher (spec.md §4.3): named
// definitions (name -> globs) plus an ordered list of select/negate
// actions, matched against the basename only. Directories never match.
type Types struct {
	defs    map[string]*glob.GlobSet
	actions []TypeAction
}

// NewTypes creates an empty type matcher. Definitions are added with
// Define; the reserved name "all" is synthesized lazily in Matched from
// every name Defined so far, per spec.md §6 ("the reserved name `all`
// cannot be defined").
func NewTypes() *Types {
	return &Types{defs: make(map[string]*glob.GlobSet)}
}

// Define registers globs under name, in `name:glob` or
// `name:include:name1,name2,...` form. The reserved name "all" cannot be
// defined directly.
func (t *Types) Define(name string, globs ...string) error {
	if name == "all" {
		return fmt.Errorf("ignore: type name %q is reserved", name)
	}
	if !typeNamePattern.MatchString(name) {
		return fmt.Errorf("ignore: invalid type name %q", name)
	}
	set, ok := t.defs[name]
	if !ok {
		set = glob.NewGlobSet(nil)
		t.defs[name] = set
	}
	for i, p := range globs {
		g, err := glob.Compile(p, "<type:"+name+">", i+1)
		if err != nil {
			return err
		}
		set.Add(g)
	}
	return nil
}

// DefineInclude registers name as the union of other already-defined
// type names' globs (the `name:include:name1,name2,...` form).
func (t *Types) DefineInclude(name string, includes ...string) error {
	if name == "all" {
		return fmt.Errorf("ignore: type name %q is reserved", name)
	}
	set, ok := t.defs[name]
	if !ok {
		set = glob.NewGlobSet(nil)
		t.defs[name] = set
	}
	for _, inc := range includes {
		src, ok := t.defs[inc]
		if !ok {
			return fmt.Errorf("ignore: unknown type %q included by %q", inc, name)
		}
		for i := 0; i < src.Len(); i++ {
			set.Add(src.At(i))
		}
	}
	return nil
}

// Select appends a `--type name` action.
func (t *Types) Select(name string) { t.actions = append(t.actions, TypeAction{Name: name, Select: true}) }

// Negate appends a `--type-not name` action.
func (t *Types) Negate(name string) {
	t.actions = append(t.actions, TypeAction{Name: name, Select: false})
}

// namesFor expands "all" to every defined name; otherwise returns [name].
func (t *Types) namesFor(name string) []string {
	if name != "all" {
		return []string{name}
	}
	names := make([]string, 0, len(t.defs))
	for n := range t.defs {
		names = append(names, n)
	}
	return names
}

func (t *Types) matchesType(name, base string) bool {
	set, ok := t.defs[name]
	if !ok {
		return false
	}
	return len(set.Matches(base, false)) > 0
}

// Matched classifies a basename-only path. Directories never match
// (spec.md: "directories never match"). If at least one select action is
// active and the path matches none of the selected types, it is Ignore.
func (t *Types) Matched(p string, isDir bool) Decision {
	if isDir || len(t.actions) == 0 {
		return None
	}
	base := path.Base(glob.Normalize(p))

	hasSelect := false
	for _, a := range t.actions {
		if a.Select {
			hasSelect = true
		}
	}

	for _, a := range t.actions {
		for _, n := range t.namesFor(a.Name) {
			if t.matchesType(n, base) {
				if a.Select {
					return Whitelist
				}
				return Ignore
			}
		}
	}
	if hasSelect {
		return Ignore
	}
	return None
}

// ParseDefinition parses a `name:glob` or `name:include:a,b,c` definition
// line (spec.md §6 "Type-definition syntax") and applies it to t.
func (t *Types) ParseDefinition(line string) error {
	parts := strings.SplitN(line, ":", 3)
	if len(parts) < 2 {
		return fmt.Errorf("ignore: malformed type definition %q", line)
	}
	name := parts[0]
	if len(parts) == 3 && parts[1] == "include" {
		includes := strings.Split(parts[2], ",")
		return t.DefineInclude(name, includes...)
	}
	return t.Define(name, parts[1])
}
