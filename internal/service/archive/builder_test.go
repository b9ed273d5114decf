package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/distpack/internal/domain/release"
	"github.com/oshokin/distpack/internal/repository/vcs/vcstest"
)

type entry struct {
	header  *tar.Header
	content string
}

func readArchive(t *testing.T, data []byte) (*gzip.Reader, []entry) {
	t.Helper()

	zr, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	var entries []entry

	tr := tar.NewReader(zr)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}

		require.NoError(t, err)

		content, err := io.ReadAll(tr)
		require.NoError(t, err)

		entries = append(entries, entry{header: hdr, content: string(content)})
	}

	return zr, entries
}

func names(entries []entry) []string {
	result := make([]string, 0, len(entries))
	for _, e := range entries {
		result = append(result, e.header.Name)
	}

	return result
}

func sampleRepository() *vcstest.Repository {
	return vcstest.New().Commit("v2", vcstest.Tree{
		"src/main.py":   vcstest.Text("print('hi')\n"),
		"bin/run.sh":    vcstest.Executable("#!/bin/sh\n"),
		"README.md":     vcstest.Text("# readme\n"),
		"current":       vcstest.Symlink("src/main.py"),
		"vendor/module": {Mode: release.ModeSubmodule},
	})
}

func build(t *testing.T, b *Builder, in Input) []byte {
	t.Helper()

	var buf bytes.Buffer

	_, err := b.Build(context.Background(), &buf, in)
	require.NoError(t, err)

	return buf.Bytes()
}

// TestBuildIsDeterministic produces byte-identical output for identical inputs.
func TestBuildIsDeterministic(t *testing.T) {
	t.Parallel()

	staging := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(staging, "svc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "a-1.0-py3-none-any.whl"), []byte("wheel-a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "svc", "b-2.0-py3-none-any.whl"), []byte("wheel-b"), 0o600))

	in := Input{
		Revision:         "v2",
		Add:              []string{"src/main.py", "README.md", "bin/run.sh"},
		Delete:           []string{"old/z.txt", "old/a.txt"},
		StagingRoot:      staging,
		IncludeArtifacts: true,
	}

	first := build(t, New(sampleRepository(), nil), in)
	second := build(t, New(sampleRepository(), nil), in)
	require.Equal(t, first, second)
}

// TestBuildLayoutAndMetadata checks member order, fixed metadata and the gzip header.
func TestBuildLayoutAndMetadata(t *testing.T) {
	t.Parallel()

	staging := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(staging, "svc"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "a-1.0-py3-none-any.whl"), []byte("wheel-a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "svc", "b-2.0-py3-none-any.whl"), []byte("wheel-b"), 0o600))

	var rec release.Recorder

	data := build(t, New(sampleRepository(), &rec), Input{
		Revision:         "v2",
		Add:              []string{"src/main.py", "README.md", "bin/run.sh", "current", "vendor/module"},
		Delete:           []string{"old/z.txt", "old/a.txt"},
		StagingRoot:      staging,
		IncludeArtifacts: true,
	})

	zr, entries := readArchive(t, data)
	require.True(t, zr.ModTime.Equal(release.FixedModTime))
	require.Empty(t, zr.Name)

	require.Equal(t, []string{
		"app/README.md",
		"app/bin/run.sh",
		"app/current",
		"app/src/main.py",
		"delete.list",
		"wheels/",
		"wheels/a-1.0-py3-none-any.whl",
		"wheels/svc/",
		"wheels/svc/b-2.0-py3-none-any.whl",
	}, names(entries))

	for _, e := range entries {
		require.True(t, e.header.ModTime.Equal(release.FixedModTime), e.header.Name)
		require.Equal(t, 0, e.header.Uid)
		require.Equal(t, 0, e.header.Gid)
		require.Equal(t, "root", e.header.Uname)
		require.Equal(t, "root", e.header.Gname)
	}

	byName := make(map[string]entry, len(entries))
	for _, e := range entries {
		byName[e.header.Name] = e
	}

	require.Equal(t, int64(0o644), byName["app/README.md"].header.Mode)
	require.Equal(t, int64(0o755), byName["app/bin/run.sh"].header.Mode)
	require.Equal(t, byte(tar.TypeSymlink), byName["app/current"].header.Typeflag)
	require.Equal(t, "src/main.py", byName["app/current"].header.Linkname)
	require.Equal(t, int64(0o777), byName["app/current"].header.Mode)
	require.Equal(t, "old/z.txt\nold/a.txt", byName["delete.list"].content)
	require.Equal(t, int64(0o644), byName["delete.list"].header.Mode)
	require.Equal(t, byte(tar.TypeDir), byName["wheels/svc/"].header.Typeflag)
	require.Equal(t, int64(0o755), byName["wheels/svc/"].header.Mode)
	require.Equal(t, int64(0o644), byName["wheels/svc/b-2.0-py3-none-any.whl"].header.Mode)
	require.Equal(t, "wheel-b", byName["wheels/svc/b-2.0-py3-none-any.whl"].content)
	require.Equal(t, 1, rec.Count(release.LevelWarn))
}

// TestBuildWithoutDeletesOmitsDeleteList writes no delete.list for an empty delete set.
func TestBuildWithoutDeletesOmitsDeleteList(t *testing.T) {
	t.Parallel()

	data := build(t, New(sampleRepository(), nil), Input{Revision: "v2", Add: []string{"README.md"}})

	_, entries := readArchive(t, data)
	require.Equal(t, []string{"app/README.md"}, names(entries))
}

// TestBuildDeleteOnly ships only delete.list.
func TestBuildDeleteOnly(t *testing.T) {
	t.Parallel()

	data := build(t, New(sampleRepository(), nil), Input{Revision: "v2", Delete: []string{"gone.txt"}})

	_, entries := readArchive(t, data)
	require.Equal(t, []string{"delete.list"}, names(entries))
	require.Equal(t, "gone.txt", entries[0].content)
}

// TestBuildMissingPathFails rejects an add path absent at the revision.
func TestBuildMissingPathFails(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	_, err := New(sampleRepository(), nil).Build(context.Background(), &buf, Input{
		Revision: "v2",
		Add:      []string{"nope.txt"},
	})
	require.ErrorIs(t, err, errMissingAtRevision)
}

// TestShouldBuild is false only when nothing would be packaged.
func TestShouldBuild(t *testing.T) {
	t.Parallel()

	require.False(t, ShouldBuild(nil, nil, false))
	require.True(t, ShouldBuild([]string{"a"}, nil, false))
	require.True(t, ShouldBuild(nil, []string{"a"}, false))
	require.True(t, ShouldBuild(nil, nil, true))
}
