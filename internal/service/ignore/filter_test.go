package ignore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/distpack/internal/domain/release"
)

// TestApplyExcludesMarkdown keeps 45 of 50 files when five match *.md.
func TestApplyExcludesMarkdown(t *testing.T) {
	t.Parallel()

	paths := make([]string, 0, 50)
	for i := range 45 {
		paths = append(paths, fmt.Sprintf("src/file%02d.py", i))
	}

	for i := range 5 {
		paths = append(paths, fmt.Sprintf("docs/page%d.md", i))
	}

	kept, excluded := Parse([]byte("*.md\n")).Apply(context.Background(), paths)
	require.Len(t, kept, 45)
	require.Len(t, excluded, 5)
	require.Equal(t, paths[:45], kept)
}

// TestApplyNegationReincludes lets a later negated pattern win.
func TestApplyNegationReincludes(t *testing.T) {
	t.Parallel()

	f := Parse([]byte("# docs are not shipped\n*.md\n\n!README.md\nbuild/\n/config.local.yaml   \r\n"))

	kept, excluded := f.Apply(context.Background(), []string{
		"README.md",
		"docs/guide.md",
		"build/out.bin",
		"src/build/gen.py",
		"config.local.yaml",
		"sub/config.local.yaml",
		"main.py",
	})
	require.Equal(t, []string{"README.md", "sub/config.local.yaml", "main.py"}, kept)
	require.Equal(t, []string{"docs/guide.md", "build/out.bin", "src/build/gen.py", "config.local.yaml"}, excluded)
	require.Equal(t, 4, f.Len())
}

// TestApplyIsIdempotent filters an already filtered set without change.
func TestApplyIsIdempotent(t *testing.T) {
	t.Parallel()

	f := Parse([]byte("*.log\ntmp/\n!keep.log\n"))
	paths := []string{"a.log", "keep.log", "tmp/x", "src/app.py", "src/tmp/y", "b/keep.log"}

	once, _ := f.Apply(context.Background(), paths)
	twice, excluded := f.Apply(context.Background(), once)
	require.Equal(t, once, twice)
	require.Empty(t, excluded)
}

// TestLoadMissingFileWarns returns a pass-through filter.
func TestLoadMissingFileWarns(t *testing.T) {
	t.Parallel()

	var rec release.Recorder

	f, err := Load(context.Background(), filepath.Join(t.TempDir(), ".distignore"), &rec)
	require.NoError(t, err)
	require.Equal(t, 1, rec.Count(release.LevelWarn))

	kept, excluded := f.Apply(context.Background(), []string{"a.md", "b.py"})
	require.Equal(t, []string{"a.md", "b.py"}, kept)
	require.Empty(t, excluded)
}

// TestLoadReadsPatterns reports the pattern count and excluded paths.
func TestLoadReadsPatterns(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".distignore")
	require.NoError(t, os.WriteFile(path, []byte("*.md\n.git*\n"), 0o644))

	var rec release.Recorder

	f, err := Load(context.Background(), path, &rec)
	require.NoError(t, err)
	require.Equal(t, 2, f.Len())

	kept, _ := f.Apply(context.Background(), []string{".gitignore", "x.md", "x.py"})
	require.Equal(t, []string{"x.py"}, kept)
	require.Equal(t, 2, rec.Count(release.LevelDebug))
}

// TestNilFilterKeepsEverything covers the zero value.
func TestNilFilterKeepsEverything(t *testing.T) {
	t.Parallel()

	var f *Filter

	kept, excluded := f.Apply(context.Background(), []string{"a", "b"})
	require.Equal(t, []string{"a", "b"}, kept)
	require.Empty(t, excluded)
}
