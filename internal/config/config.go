// Package config implements the settings file SPEC_FULL.md §6 adds beside
// spec.md's out-of-scope CLI flag/config-file layer: a Config value
// loadable from .rgcore.toml or .rgcore.kdl holding defaults for
// hidden-file policy, max-depth, max-filesize, type definitions, and
// default overrides, materialized into the walk/search/watch/ignore
// packages' own Config and matcher types.
//
// Grounded on the teacher's internal/config/config.go (the
// Load/LoadWithRoot global-then-project cascade, mergeConfigs'
// project-overrides-but-exclusions-accumulate semantics, and
// EnrichExclusionsWithBuildArtifacts), narrowed from the teacher's large
// indexing/semantic-search configuration surface down to the fields this
// module's components actually read.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/standardbeagle/rgcore/internal/ignore"
	"github.com/standardbeagle/rgcore/internal/linebuf"
	"github.com/standardbeagle/rgcore/internal/search"
	"github.com/standardbeagle/rgcore/internal/walk"
)

// Config is the full settings-file value (spec.md Non-goals still
// exclude the CLI flag/config-file layer itself; this is the separate
// ambient file spec.md §6 doesn't mention).
type Config struct {
	Project Project
	Walk    Walk
	Search  Search
	Watch   Watch
	// Types are named file-type definitions (spec.md §6 "Type-definition
	// syntax"), materialized into an ignore.Types by BuildTypes.
	Types []TypeDef
	// Overrides are `!glob`/`glob` override patterns (spec.md §4.3),
	// materialized into an ignore.Override by BuildOverride.
	Overrides []string
	// Exclude are extra ignore-style glob patterns applied globally, in
	// addition to any per-directory ignore files the walker finds
	// (materialized into an ignore.Matcher by BuildGlobalMatcher).
	Exclude []string
}

type Project struct {
	Root string
}

// Walk mirrors walk.Config's policy fields in settings-file form.
type Walk struct {
	// Hidden is "show" or "hide" (default "hide", matching ripgrep-family
	// tools' convention of skipping dotfiles unless asked).
	Hidden         string
	SameFileSystem bool
	// MaxDepth < 0 means unlimited.
	MaxDepth int
	// MaxFilesize accepts suffixed sizes ("10MB", "500KB"); 0 means
	// unlimited.
	MaxFilesize int64
	// IgnoreFileNames lists the conventional ignore-file names checked in
	// every directory, in order.
	IgnoreFileNames []string
	// Sort is "none", "name", "path", "modified", "accessed", or
	// "created". Any value other than "none" forces sequential
	// traversal (spec.md §4.4).
	Sort string
	// Threads bounds the parallel walker's worker count; <= 0 picks
	// runtime.GOMAXPROCS(0).
	Threads int
}

// Search mirrors search.Config's policy fields in settings-file form.
type Search struct {
	LineNumber     bool
	InvertMatch    bool
	MultiLine      bool
	BeforeContext  int
	AfterContext   int
	Passthru       bool
	StopOnNonmatch bool
	// HeapLimit bounds reader-streaming mode's line buffer growth; 0
	// means unlimited.
	HeapLimit int
	// BufferPolicy is "fixed" or "adaptive".
	BufferPolicy          string
	InitialBufferCapacity int
	// BinaryDetection is "none", "quit", or "convert".
	BinaryDetection string
	// Mmap is "auto" or "never".
	Mmap string
	// Encoding, non-empty, names an IANA encoding input is transcoded
	// from before search.
	Encoding string
	// LineTerminator is a single character; "" picks '\n'.
	LineTerminator string
}

// Watch controls the optional watch companion (SPEC_FULL.md §4.4a).
type Watch struct {
	Enabled    bool
	DebounceMs int
}

// TypeDef is one `name:glob` or `name:include:a,b,c` definition from the
// settings file, parsed with ignore.Types.ParseDefinition.
type TypeDef struct {
	Definition string
	// Select/Negate, if non-empty, additionally activate this type as a
	// `--type`/`--type-not` filter once built.
	Select bool
	Negate bool
}

// Default returns the baseline settings every component falls back to
// absent a settings file.
func Default() Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return Config{
		Project: Project{Root: cwd},
		Walk: Walk{
			Hidden:          "hide",
			MaxDepth:        -1,
			IgnoreFileNames: []string{".gitignore", ".ignore", ".rgcoreignore"},
			Sort:            "none",
			Threads:         runtime.NumCPU(),
		},
		Search: Search{
			BufferPolicy:    "adaptive",
			BinaryDetection: "quit",
			Mmap:            "auto",
			LineTerminator:  "\n",
		},
		Watch: Watch{
			Enabled:    false,
			DebounceMs: 200,
		},
	}
}

// Load resolves the settings file cascade for root: a global
// ~/.rgcore.{toml,kdl} (if present) merged under a project-local
// .rgcore.{toml,kdl} found in root, matching the teacher's
// LoadWithRoot global-then-project precedence. Returns Default() with
// Project.Root set to root if neither file exists.
func Load(root string) (Config, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}

	base := Default()
	base.Project.Root = absRoot

	var global *Config
	if home, err := os.UserHomeDir(); err == nil {
		if g, err := loadFrom(home); err == nil && g != nil {
			global = g
		}
	}

	project, err := loadFrom(absRoot)
	if err != nil {
		return Config{}, err
	}

	cfg := base
	if global != nil {
		cfg = merge(cfg, *global)
	}
	if project != nil {
		cfg = merge(cfg, *project)
	}
	cfg.Project.Root = absRoot
	cfg.enrichExcludeWithBuildArtifacts()
	if err := ValidateConfig(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadFrom tries dir/.rgcore.toml then dir/.rgcore.kdl, in that order.
// Neither existing is not an error.
func loadFrom(dir string) (*Config, error) {
	tomlPath := filepath.Join(dir, ".rgcore.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		cfg, err := LoadTOML(tomlPath)
		if err != nil {
			return nil, err
		}
		return cfg, nil
	}

	kdlPath := filepath.Join(dir, ".rgcore.kdl")
	if _, err := os.Stat(kdlPath); err == nil {
		cfg, err := LoadKDL(kdlPath)
		if err != nil {
			return nil, err
		}
		return cfg, nil
	}

	return nil, nil
}

// merge overlays override onto base: non-zero scalar fields in override
// replace base's, and Exclude/Overrides/Types accumulate rather than
// replace (teacher's "project overrides, but exclusions are preserved"
// rule). Walk.IgnoreFileNames is the exception: a non-empty list in
// override replaces base's list.
func merge(base, override Config) Config {
	out := base
	if override.Project.Root != "" {
		out.Project.Root = override.Project.Root
	}

	out.Walk = mergeWalk(base.Walk, override.Walk)
	out.Search = mergeSearch(base.Search, override.Search)
	if override.Watch.Enabled {
		out.Watch.Enabled = true
	}
	if override.Watch.DebounceMs != 0 {
		out.Watch.DebounceMs = override.Watch.DebounceMs
	}

	out.Types = append(append([]TypeDef{}, base.Types...), override.Types...)
	out.Overrides = append(append([]string{}, base.Overrides...), override.Overrides...)
	out.Exclude = DeduplicatePatterns(append(append([]string{}, base.Exclude...), override.Exclude...))
	return out
}

func mergeWalk(base, override Walk) Walk {
	out := base
	if override.Hidden != "" {
		out.Hidden = override.Hidden
	}
	if override.SameFileSystem {
		out.SameFileSystem = true
	}
	if override.MaxDepth != 0 {
		out.MaxDepth = override.MaxDepth
	}
	if override.MaxFilesize != 0 {
		out.MaxFilesize = override.MaxFilesize
	}
	if len(override.IgnoreFileNames) > 0 {
		out.IgnoreFileNames = override.IgnoreFileNames
	}
	if override.Sort != "" {
		out.Sort = override.Sort
	}
	if override.Threads != 0 {
		out.Threads = override.Threads
	}
	return out
}

func mergeSearch(base, override Search) Search {
	out := base
	if override.BufferPolicy != "" {
		out.BufferPolicy = override.BufferPolicy
	}
	if override.BinaryDetection != "" {
		out.BinaryDetection = override.BinaryDetection
	}
	if override.Mmap != "" {
		out.Mmap = override.Mmap
	}
	if override.Encoding != "" {
		out.Encoding = override.Encoding
	}
	if override.LineTerminator != "" {
		out.LineTerminator = override.LineTerminator
	}
	if override.HeapLimit != 0 {
		out.HeapLimit = override.HeapLimit
	}
	if override.InitialBufferCapacity != 0 {
		out.InitialBufferCapacity = override.InitialBufferCapacity
	}
	if override.BeforeContext != 0 {
		out.BeforeContext = override.BeforeContext
	}
	if override.AfterContext != 0 {
		out.AfterContext = override.AfterContext
	}
	if override.LineNumber {
		out.LineNumber = true
	}
	if override.InvertMatch {
		out.InvertMatch = true
	}
	if override.MultiLine {
		out.MultiLine = true
	}
	if override.Passthru {
		out.Passthru = true
	}
	if override.StopOnNonmatch {
		out.StopOnNonmatch = true
	}
	return out
}

// enrichExcludeWithBuildArtifacts scans Project.Root for language build
// configs and appends their output directories to Exclude (teacher's
// EnrichExclusionsWithBuildArtifacts).
func (c *Config) enrichExcludeWithBuildArtifacts() {
	if c.Project.Root == "" {
		return
	}
	detected := NewBuildArtifactDetector(c.Project.Root).DetectOutputDirectories()
	if len(detected) > 0 {
		c.Exclude = DeduplicatePatterns(append(c.Exclude, detected...))
	}
}

// WalkConfig materializes c into a walk.Config for the given explicit
// root arguments.
func (c Config) WalkConfig(roots []string) (walk.Config, error) {
	global, err := c.BuildGlobalMatcher()
	if err != nil {
		return walk.Config{}, err
	}
	override, err := c.BuildOverride()
	if err != nil {
		return walk.Config{}, err
	}
	types, err := c.BuildTypes()
	if err != nil {
		return walk.Config{}, err
	}

	hidden := walk.ShowHidden
	if c.Walk.Hidden == "hide" {
		hidden = walk.HideHidden
	}

	return walk.Config{
		Roots:           roots,
		Hidden:          hidden,
		SameFileSystem:  c.Walk.SameFileSystem,
		MaxDepth:        c.Walk.MaxDepth,
		MaxFilesize:     c.Walk.MaxFilesize,
		IgnoreFileNames: c.Walk.IgnoreFileNames,
		Global:          global,
		Override:        override,
		Types:           types,
		Sort:            sortKey(c.Walk.Sort),
		Threads:         c.Walk.Threads,
	}, nil
}

func sortKey(s string) walk.SortKey {
	switch s {
	case "name":
		return walk.SortName
	case "path":
		return walk.SortPath
	case "modified":
		return walk.SortModTime
	case "accessed":
		return walk.SortAccessTime
	case "created":
		return walk.SortCreateTime
	default:
		return walk.SortNone
	}
}

// BuildGlobalMatcher compiles c.Exclude into the single ignore.Matcher
// the walker applies in every directory (spec.md §3 "global ignore").
func (c Config) BuildGlobalMatcher() (*ignore.Matcher, error) {
	if len(c.Exclude) == 0 {
		return nil, nil
	}
	content := strings.Join(c.Exclude, "\n") + "\n"
	m, err := ignore.New(c.Project.Root, "<settings exclude>", strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("config: compiling exclude patterns: %w", err)
	}
	return m, nil
}

// BuildOverride compiles c.Overrides into an ignore.Override.
func (c Config) BuildOverride() (*ignore.Override, error) {
	if len(c.Overrides) == 0 {
		return nil, nil
	}
	o, err := ignore.NewOverride(c.Overrides)
	if err != nil {
		return nil, fmt.Errorf("config: compiling override patterns: %w", err)
	}
	return o, nil
}

// BuildTypes materializes c.Types into an ignore.Types matcher.
func (c Config) BuildTypes() (*ignore.Types, error) {
	if len(c.Types) == 0 {
		return nil, nil
	}
	t := ignore.NewTypes()
	for _, def := range c.Types {
		if err := t.ParseDefinition(def.Definition); err != nil {
			return nil, fmt.Errorf("config: type definition %q: %w", def.Definition, err)
		}
	}
	for _, def := range c.Types {
		name, _, _ := splitTypeName(def.Definition)
		if def.Select {
			t.Select(name)
		}
		if def.Negate {
			t.Negate(name)
		}
	}
	return t, nil
}

func splitTypeName(definition string) (name, rest string, ok bool) {
	for i := 0; i < len(definition); i++ {
		if definition[i] == ':' {
			return definition[:i], definition[i+1:], true
		}
	}
	return definition, "", false
}

// SearchConfig materializes c into a search.Config.
func (c Config) SearchConfig() search.Config {
	cfg := search.DefaultConfig()
	cfg.LineNumber = c.Search.LineNumber
	cfg.InvertMatch = c.Search.InvertMatch
	cfg.MultiLine = c.Search.MultiLine
	cfg.BeforeContext = c.Search.BeforeContext
	cfg.AfterContext = c.Search.AfterContext
	cfg.Passthru = c.Search.Passthru
	cfg.StopOnNonmatch = c.Search.StopOnNonmatch
	cfg.HeapLimit = c.Search.HeapLimit
	cfg.InitialBufferCapacity = c.Search.InitialBufferCapacity
	cfg.Encoding = c.Search.Encoding

	cfg.BufferPolicy = bufferPolicy(c.Search.BufferPolicy)
	cfg.BinaryDetection = binaryDetection(c.Search.BinaryDetection)
	if c.Search.Mmap == "auto" {
		cfg.MmapChoice = search.MmapAuto
	} else {
		cfg.MmapChoice = search.MmapNever
	}
	if c.Search.LineTerminator != "" {
		cfg.LineTerminator = c.Search.LineTerminator[0]
	}
	return cfg
}

func bufferPolicy(s string) linebuf.Policy {
	if s == "fixed" {
		return linebuf.Fixed
	}
	return linebuf.Adaptive
}

func binaryDetection(s string) linebuf.Detection {
	switch s {
	case "quit":
		return linebuf.Detection{Mode: linebuf.DetectQuit, Byte: 0x00}
	case "convert":
		return linebuf.Detection{Mode: linebuf.DetectConvert, Byte: 0x00}
	default:
		return linebuf.Detection{Mode: linebuf.DetectNone}
	}
}
