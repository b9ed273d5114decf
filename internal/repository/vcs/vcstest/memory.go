package vcstest

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/oshokin/distpack/internal/domain/release"
	"github.com/oshokin/distpack/internal/repository/vcs"
)

// File is the content and git mode of a path in a fake revision.
type File struct {
	Content []byte
	Mode    release.FileMode
}

// Tree maps forward-slash paths to files.
type Tree map[string]File

// Text returns a regular file.
func Text(content string) File {
	return File{Content: []byte(content), Mode: release.ModeRegular}
}

// Executable returns an executable file.
func Executable(content string) File {
	return File{Content: []byte(content), Mode: release.ModeExecutable}
}

// Symlink returns a symbolic link pointing at target.
func Symlink(target string) File {
	return File{Content: []byte(target), Mode: release.ModeSymlink}
}

// Repository is an in-memory vcs.Repository.
type Repository struct {
	mu      sync.Mutex
	commits map[release.Revision]Tree
	status  string
	reads   int
}

var _ vcs.Repository = (*Repository)(nil)

// New returns an empty repository with a clean working tree.
func New() *Repository {
	return &Repository{commits: make(map[release.Revision]Tree)}
}

// Commit records tree as revision rev.
func (r *Repository) Commit(rev release.Revision, tree Tree) *Repository {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.commits[rev] = maps.Clone(tree)

	return r
}

// Derive records rev as base with changes applied and removed paths dropped.
func (r *Repository) Derive(rev, base release.Revision, changes Tree, removed ...string) *Repository {
	r.mu.Lock()
	defer r.mu.Unlock()

	tree := maps.Clone(r.commits[base])
	if tree == nil {
		tree = make(Tree)
	}

	maps.Copy(tree, changes)

	for _, p := range removed {
		delete(tree, p)
	}

	r.commits[rev] = tree

	return r
}

// SetStatus sets the porcelain status; an empty status means a clean working tree.
func (r *Repository) SetStatus(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status = status
}

// Reads returns how many ReadFile calls were made.
func (r *Repository) Reads() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.reads
}

// ListTree returns entries in lexical path order.
func (r *Repository) ListTree(_ context.Context, rev release.Revision) ([]release.TreeEntry, error) {
	tree, err := r.tree(rev)
	if err != nil {
		return nil, err
	}

	entries := make([]release.TreeEntry, 0, len(tree))
	for _, p := range slices.Sorted(maps.Keys(tree)) {
		entries = append(entries, release.TreeEntry{Path: p, Mode: tree[p].Mode})
	}

	return entries, nil
}

// ReadFile returns a copy of the stored content.
func (r *Repository) ReadFile(_ context.Context, rev release.Revision, path string) ([]byte, bool, error) {
	tree, err := r.tree(rev)
	if err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	r.reads++
	r.mu.Unlock()

	f, ok := tree[path]
	if !ok || f.Mode.IsSubmodule() {
		return nil, false, nil
	}

	return bytes.Clone(f.Content), true, nil
}

// FileModes returns modes of the paths present at rev.
func (r *Repository) FileModes(_ context.Context, rev release.Revision, paths []string) (map[string]release.FileMode, error) {
	tree, err := r.tree(rev)
	if err != nil {
		return nil, err
	}

	modes := make(map[string]release.FileMode, len(paths))

	for _, p := range paths {
		if f, ok := tree[p]; ok {
			modes[p] = f.Mode
		}
	}

	return modes, nil
}

// DiffTree compares two trees, pairing deleted and added paths with identical content as renames.
func (r *Repository) DiffTree(_ context.Context, oldRev, newRev release.Revision) ([]release.DiffRecord, error) {
	oldTree, err := r.tree(oldRev)
	if err != nil {
		return nil, err
	}

	newTree, err := r.tree(newRev)
	if err != nil {
		return nil, err
	}

	var (
		records []release.DiffRecord
		deleted []string
		added   []string
	)

	for _, p := range slices.Sorted(maps.Keys(oldTree)) {
		nf, ok := newTree[p]
		switch {
		case !ok:
			deleted = append(deleted, p)
		case !bytes.Equal(nf.Content, oldTree[p].Content) || nf.Mode != oldTree[p].Mode:
			records = append(records, release.DiffRecord{Status: release.StatusModified, Path: p})
		}
	}

	for _, p := range slices.Sorted(maps.Keys(newTree)) {
		if _, ok := oldTree[p]; !ok {
			added = append(added, p)
		}
	}

	used := make(map[string]bool, len(added))

	for _, d := range deleted {
		renamed := false

		for _, a := range added {
			if !used[a] && bytes.Equal(oldTree[d].Content, newTree[a].Content) {
				used[a] = true
				renamed = true

				records = append(records, release.DiffRecord{Status: release.StatusRenamed, Path: d, NewPath: a})

				break
			}
		}

		if !renamed {
			records = append(records, release.DiffRecord{Status: release.StatusDeleted, Path: d})
		}
	}

	for _, a := range added {
		if !used[a] {
			records = append(records, release.DiffRecord{Status: release.StatusAdded, Path: a})
		}
	}

	return records, nil
}

// ValidateRevision fails for unknown revisions.
func (r *Repository) ValidateRevision(_ context.Context, rev release.Revision) error {
	_, err := r.tree(rev)

	return err
}

// WorkingTreeStatus reports the configured status.
func (r *Repository) WorkingTreeStatus(context.Context) (bool, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.status == "", r.status, nil
}

func (r *Repository) tree(rev release.Revision) (Tree, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tree, ok := r.commits[rev]
	if !ok {
		return nil, fmt.Errorf("%w: %s", release.ErrInvalidRevision, rev)
	}

	return tree, nil
}
