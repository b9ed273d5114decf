package vcstest

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/distpack/internal/domain/release"
)

// fixtureTime is the author and committer time of every fixture commit.
var fixtureTime = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

// GitFixture is a real git repository on disk, built without the git executable.
type GitFixture struct {
	// Dir is the repository top-level directory.
	Dir string

	repo *git.Repository
}

// RequireGit skips the test when the git executable is unavailable.
func RequireGit(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable is not available")
	}
}

// NewGitFixture initializes an empty repository in a temporary directory.
func NewGitFixture(t *testing.T) *GitFixture {
	t.Helper()

	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	return &GitFixture{Dir: dir, repo: repo}
}

// Commit writes changes, removes the listed paths, commits and returns the commit hash.
func (f *GitFixture) Commit(t *testing.T, message string, changes Tree, removed ...string) release.Revision {
	t.Helper()

	wt, err := f.repo.Worktree()
	require.NoError(t, err)

	for p, file := range changes {
		abs := filepath.Join(f.Dir, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))

		_ = os.Remove(abs)

		if file.Mode.IsSymlink() {
			require.NoError(t, os.Symlink(string(file.Content), abs))
		} else {
			require.NoError(t, os.WriteFile(abs, file.Content, os.FileMode(file.Mode.Perm())))
			// WriteFile keeps the mode of an existing file and is subject to umask.
			require.NoError(t, os.Chmod(abs, os.FileMode(file.Mode.Perm())))
		}

		_, err = wt.Add(p)
		require.NoError(t, err)
	}

	for _, p := range removed {
		_, err = wt.Remove(p)
		require.NoError(t, err)
	}

	signature := &object.Signature{Name: "Fixture", Email: "fixture@example.com", When: fixtureTime}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author:            signature,
		Committer:         signature,
		AllowEmptyCommits: true,
	})
	require.NoError(t, err)

	return release.Revision(hash.String())
}

// Move renames a tracked path without touching its content and commits the result.
func (f *GitFixture) Move(t *testing.T, message, from, to string) release.Revision {
	t.Helper()

	wt, err := f.repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(f.Dir, filepath.FromSlash(to))), 0o755))

	_, err = wt.Move(from, to)
	require.NoError(t, err)

	return f.Commit(t, message, nil)
}

// Tag creates a lightweight tag pointing at rev.
func (f *GitFixture) Tag(t *testing.T, name string, rev release.Revision) {
	t.Helper()

	_, err := f.repo.CreateTag(name, plumbing.NewHash(string(rev)), nil)
	require.NoError(t, err)
}

// Touch writes an untracked file so the working tree becomes dirty.
func (f *GitFixture) Touch(t *testing.T, p, content string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(f.Dir, filepath.FromSlash(p)), []byte(content), 0o644))
}
