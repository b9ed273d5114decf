package vcs_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/distpack/internal/domain/release"
	"github.com/oshokin/distpack/internal/repository/vcs"
	"github.com/oshokin/distpack/internal/repository/vcs/vcstest"
)

const testTimeout = 30 * time.Second

// TestCLIAgainstRealRepository exercises every gateway query on a go-git built repository.
func TestCLIAgainstRealRepository(t *testing.T) {
	t.Parallel()
	vcstest.RequireGit(t)

	fixture := vcstest.NewGitFixture(t)
	first := fixture.Commit(t, "initial", vcstest.Tree{
		"x.txt":            vcstest.Text("same content\n"),
		"bin/run.sh":       vcstest.Executable("#!/bin/sh\necho hi\n"),
		"requirements.txt": vcstest.Text("a==1.0\n"),
		"old.txt":          vcstest.Text("bye\n"),
	})
	fixture.Tag(t, "v1", first)

	second := fixture.Commit(t, "second", vcstest.Tree{
		"requirements.txt": vcstest.Text("a==2.0\nb==1.0\n"),
		"docs/new.md":      vcstest.Text("# new\n"),
	}, "old.txt")
	third := fixture.Move(t, "rename", "x.txt", "y.txt")

	ctx := context.Background()

	repo, err := vcs.Discover(ctx, fixture.Dir, "git", testTimeout)
	require.NoError(t, err)

	banner, err := repo.Version(ctx)
	require.NoError(t, err)
	require.Contains(t, banner, "git version")

	require.NoError(t, repo.ValidateRevision(ctx, "v1"))
	require.NoError(t, repo.ValidateRevision(ctx, third))
	require.ErrorIs(t, repo.ValidateRevision(ctx, "no-such-tag"), release.ErrInvalidRevision)
	require.ErrorIs(t, repo.ValidateRevision(ctx, "--all"), release.ErrInvalidRevision)

	entries, err := repo.ListTree(ctx, first)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"bin/run.sh", "old.txt", "requirements.txt", "x.txt"}, release.Paths(entries))

	content, ok, err := repo.ReadFile(ctx, second, "requirements.txt")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a==2.0\nb==1.0\n", string(content))

	_, ok, err = repo.ReadFile(ctx, second, "old.txt")
	require.NoError(t, err)
	require.False(t, ok)

	// Only a path missing from the revision is absent; other failures surface.
	_, ok, err = repo.ReadFile(ctx, "no-such-rev", "requirements.txt")
	require.ErrorIs(t, err, release.ErrExternalToolFailure)
	require.False(t, ok)

	modes, err := repo.FileModes(ctx, first, []string{"bin/run.sh", "x.txt", "missing.txt"})
	require.NoError(t, err)
	require.Equal(t, map[string]release.FileMode{
		"bin/run.sh": release.ModeExecutable,
		"x.txt":      release.ModeRegular,
	}, modes)

	records, err := repo.DiffTree(ctx, first, second)
	require.NoError(t, err)
	require.ElementsMatch(t, []release.DiffRecord{
		{Status: release.StatusAdded, Path: "docs/new.md"},
		{Status: release.StatusDeleted, Path: "old.txt"},
		{Status: release.StatusModified, Path: "requirements.txt"},
	}, records)

	records, err = repo.DiffTree(ctx, second, third)
	require.NoError(t, err)
	require.Equal(t, []release.DiffRecord{
		{Status: release.StatusRenamed, Path: "x.txt", NewPath: "y.txt"},
	}, records)

	clean, _, err := repo.WorkingTreeStatus(ctx)
	require.NoError(t, err)
	require.True(t, clean)

	fixture.Touch(t, "untracked.txt", "dirty")

	clean, status, err := repo.WorkingTreeStatus(ctx)
	require.NoError(t, err)
	require.False(t, clean)
	require.Contains(t, status, "untracked.txt")
}

// TestDiscoverOutsideRepository fails with a tool failure outside any repository.
func TestDiscoverOutsideRepository(t *testing.T) {
	t.Parallel()
	vcstest.RequireGit(t)

	_, err := vcs.Discover(context.Background(), t.TempDir(), "git", testTimeout)
	require.ErrorIs(t, err, release.ErrExternalToolFailure)
}

// TestDiscoverMissingBinary reports a missing git executable.
func TestDiscoverMissingBinary(t *testing.T) {
	t.Parallel()

	_, err := vcs.Discover(context.Background(), t.TempDir(), "distpack-no-such-git", testTimeout)
	require.ErrorIs(t, err, release.ErrExternalToolMissing)
}
