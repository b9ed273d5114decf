// Package treediff computes the add and delete path sets of a package.
//
// In snapshot mode every path of the revision is added. In delta mode the
// records of a rename-aware tree diff are folded into the two sets: added,
// copied, modified and type-changed paths are added, deleted paths are deleted, and a
// rename becomes a delete of the old path plus an add of the new one.
// Content is never carried over from the old path of a rename; the archive
// builder always reads it again at the new revision.
package treediff

import (
	"context"
	"fmt"

	"github.com/oshokin/distpack/internal/domain/release"
)

// Source is the subset of the repository gateway the resolver needs.
type Source interface {
	ListTree(ctx context.Context, rev release.Revision) ([]release.TreeEntry, error)
	DiffTree(ctx context.Context, oldRev, newRev release.Revision) ([]release.DiffRecord, error)
}

// Resolver computes change sets.
type Resolver struct {
	source   Source
	reporter release.Reporter
}

// New returns a resolver reading from source.
func New(source Source, reporter release.Reporter) *Resolver {
	if reporter == nil {
		reporter = release.Discard
	}

	return &Resolver{source: source, reporter: reporter}
}

// Snapshot adds every path of rev.
func (r *Resolver) Snapshot(ctx context.Context, rev release.Revision) (release.ChangeSet, error) {
	r.reporter.Report(ctx, release.LevelInfo, "Listing all files for a full package", "revision", rev)

	entries, err := r.source.ListTree(ctx, rev)
	if err != nil {
		return release.ChangeSet{}, err
	}

	set := release.ChangeSet{Add: release.Paths(entries)}

	r.reporter.Report(ctx, release.LevelInfo, "Found files in the repository", "count", len(set.Add))

	return set, nil
}

// Delta folds the rename-aware diff between oldRev and newRev into add and delete sets.
func (r *Resolver) Delta(ctx context.Context, oldRev, newRev release.Revision) (release.ChangeSet, error) {
	r.reporter.Report(ctx, release.LevelInfo, "Analyzing application file changes", "from", oldRev, "to", newRev)

	records, err := r.source.DiffTree(ctx, oldRev, newRev)
	if err != nil {
		return release.ChangeSet{}, err
	}

	set, err := Fold(records)
	if err != nil {
		return release.ChangeSet{}, err
	}

	r.reporter.Report(ctx, release.LevelInfo, "Found file changes",
		"add_or_update", len(set.Add), "delete", len(set.Delete))

	return set, nil
}

// Fold converts diff records into a change set, keeping discovery order and dropping repeats.
func Fold(records []release.DiffRecord) (release.ChangeSet, error) {
	var (
		set     release.ChangeSet
		added   = make(map[string]struct{}, len(records))
		deleted = make(map[string]struct{}, len(records))
	)

	add := func(p string) {
		if _, ok := added[p]; !ok {
			added[p] = struct{}{}
			set.Add = append(set.Add, p)
		}
	}

	remove := func(p string) {
		if _, ok := deleted[p]; !ok {
			deleted[p] = struct{}{}
			set.Delete = append(set.Delete, p)
		}
	}

	for _, rec := range records {
		switch rec.Status {
		case release.StatusAdded, release.StatusModified, release.StatusTypeChanged:
			add(rec.Path)
		case release.StatusCopied:
			add(rec.NewPath)
		case release.StatusRenamed:
			remove(rec.Path)
			add(rec.NewPath)
		case release.StatusDeleted:
			remove(rec.Path)
		default:
			return release.ChangeSet{}, fmt.Errorf("unsupported diff status %q for %s", rec.Status, rec.Path)
		}
	}

	if err := set.Validate(); err != nil {
		return release.ChangeSet{}, err
	}

	return set, nil
}
