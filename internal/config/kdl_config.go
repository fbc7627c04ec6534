package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL reads and parses a single .rgcore.kdl file at path.
func LoadKDL(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return parseKDL(string(content))
}

// parseKDL reads a settings-file document into a sparse Config — only
// fields the document actually sets are non-zero, so the result is
// layered onto defaults/the global config by merge rather than replacing
// them outright.
func parseKDL(content string) (*Config, error) {
	cfg := &Config{}

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("config: parsing kdl: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
			}
		case "walk":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "hidden":
					if s, ok := firstStringArg(cn); ok {
						cfg.Walk.Hidden = s
					}
				case "same_file_system":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Walk.SameFileSystem = b
					}
				case "max_depth":
					if v, ok := firstIntArg(cn); ok {
						cfg.Walk.MaxDepth = v
					}
				case "max_filesize":
					if s, ok := firstStringArg(cn); ok {
						if sz, err := parseSize(s); err == nil {
							cfg.Walk.MaxFilesize = sz
						}
					} else if v, ok := firstIntArg(cn); ok {
						cfg.Walk.MaxFilesize = int64(v)
					}
				case "ignore_file_names":
					if names := collectStringArgs(cn); len(names) > 0 {
						cfg.Walk.IgnoreFileNames = names
					}
				case "sort":
					if s, ok := firstStringArg(cn); ok {
						cfg.Walk.Sort = s
					}
				case "threads":
					if v, ok := firstIntArg(cn); ok {
						cfg.Walk.Threads = v
					}
				}
			}
		case "search":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "line_number":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Search.LineNumber = b
					}
				case "invert_match":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Search.InvertMatch = b
					}
				case "multi_line":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Search.MultiLine = b
					}
				case "before_context":
					if v, ok := firstIntArg(cn); ok {
						cfg.Search.BeforeContext = v
					}
				case "after_context":
					if v, ok := firstIntArg(cn); ok {
						cfg.Search.AfterContext = v
					}
				case "passthru":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Search.Passthru = b
					}
				case "stop_on_nonmatch":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Search.StopOnNonmatch = b
					}
				case "heap_limit":
					if s, ok := firstStringArg(cn); ok {
						if sz, err := parseSize(s); err == nil {
							cfg.Search.HeapLimit = int(sz)
						}
					} else if v, ok := firstIntArg(cn); ok {
						cfg.Search.HeapLimit = v
					}
				case "buffer_policy":
					if s, ok := firstStringArg(cn); ok {
						cfg.Search.BufferPolicy = s
					}
				case "initial_buffer_capacity":
					if v, ok := firstIntArg(cn); ok {
						cfg.Search.InitialBufferCapacity = v
					}
				case "binary_detection":
					if s, ok := firstStringArg(cn); ok {
						cfg.Search.BinaryDetection = s
					}
				case "mmap":
					if s, ok := firstStringArg(cn); ok {
						cfg.Search.Mmap = s
					}
				case "encoding":
					if s, ok := firstStringArg(cn); ok {
						cfg.Search.Encoding = s
					}
				case "line_terminator":
					if s, ok := firstStringArg(cn); ok {
						cfg.Search.LineTerminator = s
					}
				}
			}
		case "watch":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Watch.Enabled = b
					}
				case "debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watch.DebounceMs = v
					}
				}
			}
		case "type":
			if def, ok := firstStringArg(n); ok {
				cfg.Types = append(cfg.Types, TypeDef{Definition: def})
			}
		case "include":
			cfg.Overrides = append(cfg.Overrides, collectStringArgs(n)...)
		case "exclude":
			cfg.Exclude = append(cfg.Exclude, collectStringArgs(n)...)
		}
	}

	return cfg, nil
}

// Helper functions over the kdl-go document model, grounded on the
// teacher's propagation-config AST helpers of the same names.
func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}

// parseSize handles size strings like "10MB", "500KB", "1GB", "123B".
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		multiplier = 1
		numStr = strings.TrimSuffix(s, "B")
	default:
		numStr = s
	}

	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return 0, err
	}
	return num * multiplier, nil
}

