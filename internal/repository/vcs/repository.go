package vcs

import (
	"context"

	"github.com/oshokin/distpack/internal/domain/release"
)

// Repository defines the version-control queries the packager depends on.
// All returned paths use forward slashes and are relative to the repository root.
type Repository interface {
	// ListTree lists every tree entry of the revision recursively.
	ListTree(ctx context.Context, rev release.Revision) ([]release.TreeEntry, error)
	// ReadFile returns the content of path at rev; ok is false when the path does not exist there.
	ReadFile(ctx context.Context, rev release.Revision, path string) (content []byte, ok bool, err error)
	// FileModes returns the recorded modes of the given paths at rev; absent paths are omitted.
	FileModes(ctx context.Context, rev release.Revision, paths []string) (map[string]release.FileMode, error)
	// DiffTree compares two revisions with rename detection enabled.
	DiffTree(ctx context.Context, oldRev, newRev release.Revision) ([]release.DiffRecord, error)
	// ValidateRevision fails with release.ErrInvalidRevision when rev is not a commit.
	ValidateRevision(ctx context.Context, rev release.Revision) error
	// WorkingTreeStatus reports whether the working tree is clean along with the status listing.
	WorkingTreeStatus(ctx context.Context) (clean bool, status string, err error)
}
