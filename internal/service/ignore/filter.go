package ignore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/oshokin/distpack/internal/domain/release"
)

const commentPrefix = "#"

// Filter evaluates exclude patterns against repository-relative paths.
// The zero value keeps every path.
type Filter struct {
	patterns []gitignore.Pattern
	matcher  gitignore.Matcher
	reporter release.Reporter
}

// Load reads the pattern document at path.
// A missing document yields a pass-through filter and a warning.
func Load(ctx context.Context, path string, reporter release.Reporter) (*Filter, error) {
	if reporter == nil {
		reporter = release.Discard
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			reporter.Report(ctx, release.LevelWarn, "Ignore file not found, all files will be included", "path", path)

			return &Filter{}, nil
		}

		return nil, fmt.Errorf("failed to read ignore file: %w", err)
	}

	f := Parse(content)
	f.reporter = reporter
	reporter.Report(ctx, release.LevelInfo, "Loaded ignore patterns", "path", path, "count", f.Len())

	return f, nil
}

// Parse builds a filter from pattern document content.
func Parse(content []byte) *Filter {
	var patterns []gitignore.Pattern

	for _, line := range strings.Split(string(content), "\n") {
		line = trimTrailingSpace(strings.TrimSuffix(line, "\r"))
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}

	return &Filter{
		patterns: patterns,
		matcher:  gitignore.NewMatcher(patterns),
	}
}

// Len returns the number of patterns.
func (f *Filter) Len() int {
	if f == nil {
		return 0
	}

	return len(f.patterns)
}

// Excluded reports whether the last pattern matching p excludes it.
func (f *Filter) Excluded(p string) bool {
	if f == nil || len(f.patterns) == 0 {
		return false
	}

	return f.matcher.Match(strings.Split(release.NormalizePath(p), "/"), false)
}

// Apply splits paths into kept and excluded, preserving input order.
func (f *Filter) Apply(ctx context.Context, paths []string) (kept, excluded []string) {
	kept = make([]string, 0, len(paths))

	for _, p := range paths {
		if f.Excluded(p) {
			excluded = append(excluded, p)

			continue
		}

		kept = append(kept, p)
	}

	if f != nil && f.reporter != nil {
		for _, p := range excluded {
			f.reporter.Report(ctx, release.LevelDebug, "Excluded by ignore pattern", "path", p)
		}
	}

	return kept, excluded
}

// trimTrailingSpace drops trailing spaces that are not escaped with a backslash.
func trimTrailingSpace(line string) string {
	for strings.HasSuffix(line, " ") && !strings.HasSuffix(line, `\ `) {
		line = line[:len(line)-1]
	}

	return line
}
