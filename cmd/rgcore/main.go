// Command rgcore is a thin driver over the Searcher and the Walker &
// Ignore engine: enough urfave/cli wiring to run a pattern search from a
// terminal, with argument-parsing polish explicitly left out of scope.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/rgcore/internal/config"
	"github.com/standardbeagle/rgcore/internal/debug"
	rgerrors "github.com/standardbeagle/rgcore/internal/errors"
	"github.com/standardbeagle/rgcore/internal/ignore"
	"github.com/standardbeagle/rgcore/internal/matcher"
	"github.com/standardbeagle/rgcore/internal/search"
	"github.com/standardbeagle/rgcore/internal/types"
	"github.com/standardbeagle/rgcore/internal/version"
	"github.com/standardbeagle/rgcore/internal/walk"
)

// exit codes per spec.md §6 "CLI surface": 0 matches found, 1 no
// matches, 2 error occurred.
const (
	exitMatch   = 0
	exitNoMatch = 1
	exitError   = 2
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	args = prependConfigFileArgs(args)

	result := exitError
	app := &cli.App{
		Name:                   "rgcore",
		Usage:                  "recursively search the current directory for a pattern",
		UsageText:              "rgcore [options] PATTERN [PATH...]",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "ignore-case", Aliases: []string{"i"}, Usage: "case insensitive match"},
			&cli.BoolFlag{Name: "invert-match", Aliases: []string{"v"}, Usage: "print lines that do not match"},
			&cli.BoolFlag{Name: "line-number", Aliases: []string{"n"}, Usage: "print the 1-based line number of each match"},
			&cli.BoolFlag{Name: "multiline", Aliases: []string{"U"}, Usage: "let the pattern span line terminators"},
			&cli.IntFlag{Name: "before-context", Aliases: []string{"B"}, Usage: "lines of leading context"},
			&cli.IntFlag{Name: "after-context", Aliases: []string{"A"}, Usage: "lines of trailing context"},
			&cli.IntFlag{Name: "context", Aliases: []string{"C"}, Usage: "lines of context before and after"},
			&cli.BoolFlag{Name: "hidden", Usage: "search hidden files and directories"},
			&cli.BoolFlag{Name: "no-ignore", Usage: "don't respect ignore files or the global exclude list"},
			&cli.StringSliceFlag{Name: "glob", Aliases: []string{"g"}, Usage: "include/exclude override glob, !-prefixed to exclude"},
			&cli.StringSliceFlag{Name: "type", Aliases: []string{"t"}, Usage: "only search files of this configured type"},
			&cli.StringSliceFlag{Name: "type-not", Aliases: []string{"T"}, Usage: "exclude files of this configured type"},
			&cli.IntFlag{Name: "threads", Aliases: []string{"j"}, Usage: "walker worker count, 0 picks GOMAXPROCS"},
			&cli.StringFlag{Name: "sort", Usage: "none, name, path, modified, accessed, created"},
			&cli.IntFlag{Name: "max-depth", Usage: "maximum directory recursion depth"},
			&cli.StringFlag{Name: "root", Usage: "settings-file cascade root, defaults to the current directory"},
			&cli.BoolFlag{Name: "debug", Usage: "write verbose diagnostics to stderr"},
			&cli.BoolFlag{Name: "watch", Usage: "after the initial scan, re-search files as they change until interrupted"},
		},
		Action: func(c *cli.Context) error {
			code, err := runSearch(c)
			result = code
			return err
		},
	}

	if err := app.Run(args); err != nil {
		fmt.Fprintln(os.Stderr, "rgcore:", err)
		return exitError
	}
	return result
}

// runSearch implements the Action: it resolves the pattern/paths, loads
// the settings-file cascade, drives the walker (or stdin directly), and
// reports whichever exit code spec.md §6 assigns to the outcome.
func runSearch(c *cli.Context) (int, error) {
	if c.Bool("debug") {
		debug.EnableDebug = "true"
		debug.SetDebugOutput(os.Stderr)
	}

	if c.NArg() < 1 {
		return exitError, fmt.Errorf("a pattern argument is required")
	}
	pattern := c.Args().Get(0)
	paths := c.Args().Slice()[1:]

	root := c.String("root")
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return exitError, err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return exitError, fmt.Errorf("loading settings: %w", err)
	}
	applyCLIOverrides(&cfg, c)

	m, err := matcher.NewRegexpMatcher(pattern, c.Bool("ignore-case"))
	if err != nil {
		// KindInvalidPattern is the one error kind spec.md §7 marks fatal
		// to the whole run, so it aborts here rather than being recorded
		// as a per-file error like everything else below.
		return exitError, rgerrors.NewPattern(rgerrors.KindInvalidPattern, pattern, err)
	}

	out := &lockedWriter{w: os.Stdout}
	var matchCount int64
	var hadError int64

	if len(paths) == 0 && !stdinIsTerminal() {
		searcher := search.New(cfg.SearchConfig())
		sink := newPlainSink(out, "", false, &matchCount)
		if err := searcher.SearchReader(m, sink, os.Stdin); err != nil {
			return exitError, err
		}
		return exitCodeFor(matchCount, hadError), nil
	}

	if len(paths) == 0 {
		paths = []string{root}
	}

	wc, err := cfg.WalkConfig(paths)
	if err != nil {
		return exitError, fmt.Errorf("building walk config: %w", err)
	}
	if err := applyTypeSelectors(&wc, cfg, c); err != nil {
		return exitError, err
	}

	visitor := func() walk.VisitFunc {
		s := search.New(cfg.SearchConfig())
		return func(e walk.Entry) walk.Continuation {
			for _, verr := range e.Errs {
				fmt.Fprintf(os.Stderr, "rgcore: %s: %v\n", e.Path, verr)
				recordErr(&hadError, verr)
			}
			if e.Type != types.FileTypeFile && e.Type != types.FileTypeSymlink {
				return walk.Continue
			}
			sink := newPlainSink(out, e.Path, true, &matchCount)
			if err := s.SearchPath(m, sink, e.Path); err != nil {
				fmt.Fprintf(os.Stderr, "rgcore: %s: %v\n", e.Path, err)
				recordErr(&hadError, err)
			}
			return walk.Continue
		}
	}

	if err := walk.WalkParallel(wc, visitor); err != nil {
		return exitError, err
	}

	if c.Bool("watch") {
		return runWatch(cfg, wc, m, paths, out, &matchCount, &hadError)
	}

	return exitCodeFor(matchCount, hadError), nil
}

// recordErr marks hadError unless err is one of the error kinds spec.md
// §7 treats as a non-fatal partial error that the walk is expected to
// keep going through without affecting the run's final exit code
// (bad ignore-file lines, a missing/unreadable ignore file).
func recordErr(hadError *int64, err error) {
	var se *rgerrors.SearchError
	if errors.As(err, &se) {
		switch se.Kind {
		case rgerrors.KindInvalidIgnoreLine, rgerrors.KindIgnoreFileIO:
			return
		}
	}
	atomic.AddInt64(hadError, 1)
}

// exitCodeFor implements spec.md §6's exit-code contract: 0 when at
// least one match was found and no run-affecting error was recorded, 1
// when there were no matches and no errors, 2 when any error was
// recorded regardless of whether matches were also found.
func exitCodeFor(matchCount, hadError int64) int {
	if hadError > 0 {
		return exitError
	}
	if matchCount > 0 {
		return exitMatch
	}
	return exitNoMatch
}

// applyCLIOverrides layers the handful of flags that correspond to
// settings-file fields on top of the loaded cascade (spec.md §6: CLI
// flag semantics are out of scope beyond exactly this kind of pass-
// through).
func applyCLIOverrides(cfg *config.Config, c *cli.Context) {
	if c.Bool("hidden") {
		cfg.Walk.Hidden = "show"
	}
	if c.Bool("no-ignore") {
		cfg.Exclude = nil
		cfg.Walk.IgnoreFileNames = nil
	}
	if c.IsSet("max-depth") {
		cfg.Walk.MaxDepth = c.Int("max-depth")
	}
	if c.IsSet("threads") {
		cfg.Walk.Threads = c.Int("threads")
	}
	if c.IsSet("sort") {
		cfg.Walk.Sort = c.String("sort")
	}
	if globs := c.StringSlice("glob"); len(globs) > 0 {
		cfg.Overrides = append(append([]string{}, cfg.Overrides...), globs...)
	}

	if c.Bool("line-number") {
		cfg.Search.LineNumber = true
	}
	if c.Bool("invert-match") {
		cfg.Search.InvertMatch = true
	}
	if c.Bool("multiline") {
		cfg.Search.MultiLine = true
	}
	if c.IsSet("context") {
		n := c.Int("context")
		cfg.Search.BeforeContext = n
		cfg.Search.AfterContext = n
	}
	if c.IsSet("before-context") {
		cfg.Search.BeforeContext = c.Int("before-context")
	}
	if c.IsSet("after-context") {
		cfg.Search.AfterContext = c.Int("after-context")
	}
}

// applyTypeSelectors layers -t/-T onto the type matcher WalkConfig built
// from the settings file's type definitions. Selecting a name the
// settings file never defined is not an error: it behaves like an empty
// type, matching nothing, the same way an unknown --type does upstream.
func applyTypeSelectors(wc *walk.Config, cfg config.Config, c *cli.Context) error {
	selects := c.StringSlice("type")
	negates := c.StringSlice("type-not")
	if len(selects) == 0 && len(negates) == 0 {
		return nil
	}

	t := wc.Types
	if t == nil {
		t = ignore.NewTypes()
		for _, def := range cfg.Types {
			if err := t.ParseDefinition(def.Definition); err != nil {
				return fmt.Errorf("type definition %q: %w", def.Definition, err)
			}
		}
	}
	for _, name := range selects {
		t.Select(name)
	}
	for _, name := range negates {
		t.Negate(name)
	}
	wc.Types = t
	return nil
}

// prependConfigFileArgs implements spec.md §6's "RIPGREP_CONFIG_PATH-
// style config file": RGCORE_CONFIG_PATH names a file holding one shell
// token per line (blank lines and "#" comments ignored), and those
// tokens are prepended to the command-line arguments, as though the user
// had typed them first. A missing or unset path is not an error.
func prependConfigFileArgs(args []string) []string {
	path := os.Getenv("RGCORE_CONFIG_PATH")
	if path == "" || len(args) == 0 {
		return args
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return args
	}

	var extra []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		extra = append(extra, line)
	}
	if len(extra) == 0 {
		return args
	}

	out := make([]string, 0, len(args)+len(extra))
	out = append(out, args[0])
	out = append(out, extra...)
	out = append(out, args[1:]...)
	return out
}

func stdinIsTerminal() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
