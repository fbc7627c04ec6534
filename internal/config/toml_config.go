package config

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// tomlDoc mirrors Config's settings-file shape for go-toml/v2's
// struct-tag decoder; kept separate from Config itself so the KDL loader
// and the in-memory merge logic don't have to carry toml tags they never
// use.
type tomlDoc struct {
	Project struct {
		Root string `toml:"root"`
	} `toml:"project"`
	Walk struct {
		Hidden          string   `toml:"hidden"`
		SameFileSystem  bool     `toml:"same_file_system"`
		MaxDepth        int      `toml:"max_depth"`
		MaxFilesize     string   `toml:"max_filesize"`
		IgnoreFileNames []string `toml:"ignore_file_names"`
		Sort            string   `toml:"sort"`
		Threads         int      `toml:"threads"`
	} `toml:"walk"`
	Search struct {
		LineNumber            bool   `toml:"line_number"`
		InvertMatch           bool   `toml:"invert_match"`
		MultiLine             bool   `toml:"multi_line"`
		BeforeContext         int    `toml:"before_context"`
		AfterContext          int    `toml:"after_context"`
		Passthru              bool   `toml:"passthru"`
		StopOnNonmatch        bool   `toml:"stop_on_nonmatch"`
		HeapLimit             string `toml:"heap_limit"`
		BufferPolicy          string `toml:"buffer_policy"`
		InitialBufferCapacity int    `toml:"initial_buffer_capacity"`
		BinaryDetection       string `toml:"binary_detection"`
		Mmap                  string `toml:"mmap"`
		Encoding              string `toml:"encoding"`
		LineTerminator        string `toml:"line_terminator"`
	} `toml:"search"`
	Watch struct {
		Enabled    bool `toml:"enabled"`
		DebounceMs int  `toml:"debounce_ms"`
	} `toml:"watch"`
	Types   []string `toml:"types"`
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

// LoadTOML reads and decodes a single .rgcore.toml file at path.
func LoadTOML(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var doc tomlDoc
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: parsing toml: %w", err)
	}

	cfg := &Config{
		Project:   Project{Root: doc.Project.Root},
		Watch:     Watch{Enabled: doc.Watch.Enabled, DebounceMs: doc.Watch.DebounceMs},
		Overrides: doc.Include,
		Exclude:   doc.Exclude,
	}

	cfg.Walk = Walk{
		Hidden:          doc.Walk.Hidden,
		SameFileSystem:  doc.Walk.SameFileSystem,
		MaxDepth:        doc.Walk.MaxDepth,
		IgnoreFileNames: doc.Walk.IgnoreFileNames,
		Sort:            doc.Walk.Sort,
		Threads:         doc.Walk.Threads,
	}
	if doc.Walk.MaxFilesize != "" {
		if sz, err := parseSize(doc.Walk.MaxFilesize); err == nil {
			cfg.Walk.MaxFilesize = sz
		}
	}

	cfg.Search = Search{
		LineNumber:            doc.Search.LineNumber,
		InvertMatch:           doc.Search.InvertMatch,
		MultiLine:             doc.Search.MultiLine,
		BeforeContext:         doc.Search.BeforeContext,
		AfterContext:          doc.Search.AfterContext,
		Passthru:              doc.Search.Passthru,
		StopOnNonmatch:        doc.Search.StopOnNonmatch,
		BufferPolicy:          doc.Search.BufferPolicy,
		InitialBufferCapacity: doc.Search.InitialBufferCapacity,
		BinaryDetection:       doc.Search.BinaryDetection,
		Mmap:                  doc.Search.Mmap,
		Encoding:              doc.Search.Encoding,
		LineTerminator:        doc.Search.LineTerminator,
	}
	if doc.Search.HeapLimit != "" {
		if sz, err := parseSize(doc.Search.HeapLimit); err == nil {
			cfg.Search.HeapLimit = int(sz)
		}
	}

	for _, def := range doc.Types {
		cfg.Types = append(cfg.Types, TypeDef{Definition: def})
	}

	return cfg, nil
}
