package deps

import (
	"bytes"
	"context"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/oshokin/distpack/internal/domain/release"
)

// manifestDiffContext is the number of context lines in reported manifest diffs.
const manifestDiffContext = 1

// Source is the subset of the repository gateway the resolver needs.
type Source interface {
	ListTree(ctx context.Context, rev release.Revision) ([]release.TreeEntry, error)
	ReadFile(ctx context.Context, rev release.Revision, path string) ([]byte, bool, error)
}

// Resolver computes dependency deltas from manifests stored in the repository.
type Resolver struct {
	source   Source
	patterns []string
	reporter release.Reporter
}

// New returns a resolver discovering manifests with the given doublestar patterns.
func New(source Source, patterns []string, reporter release.Reporter) *Resolver {
	if reporter == nil {
		reporter = release.Discard
	}

	return &Resolver{
		source:   source,
		patterns: append([]string(nil), patterns...),
		reporter: reporter,
	}
}

// Manifests lists manifest paths at rev in tree order.
func (r *Resolver) Manifests(ctx context.Context, rev release.Revision) ([]string, error) {
	entries, err := r.source.ListTree(ctx, rev)
	if err != nil {
		return nil, err
	}

	var manifests []string

	for _, entry := range entries {
		if entry.Mode.IsSubmodule() || entry.Mode.IsSymlink() {
			continue
		}

		for _, pattern := range r.patterns {
			matched, err := doublestar.Match(pattern, entry.Path)
			if err != nil {
				return nil, fmt.Errorf("match manifest pattern %q: %w", pattern, err)
			}

			if matched {
				manifests = append(manifests, entry.Path)

				break
			}
		}
	}

	return manifests, nil
}

// Snapshot returns every pin of every manifest at rev.
func (r *Resolver) Snapshot(ctx context.Context, rev release.Revision) (release.DependencyDelta, error) {
	r.reporter.Report(ctx, release.LevelInfo, "Collecting all Python dependencies for a full package")

	manifests, err := r.Manifests(ctx, rev)
	if err != nil {
		return nil, err
	}

	delta := make(release.DependencyDelta)

	for _, manifest := range manifests {
		content, _, err := r.source.ReadFile(ctx, rev, manifest)
		if err != nil {
			return nil, err
		}

		module := release.ModuleOf(manifest)
		pins := mergeInto(delta, module, ParseManifest(content))

		if pins > 0 {
			r.reporter.Report(ctx, release.LevelInfo, "Found dependencies",
				"module", release.ModuleDisplayName(module), "manifest", manifest, "count", pins)
		}
	}

	if delta.Empty() {
		r.reporter.Report(ctx, release.LevelInfo, "No dependencies found")
	}

	return delta, nil
}

// Delta returns, per module, the pins of newRev's manifests that are new or changed since oldRev.
// Manifests are discovered at newRev; a manifest missing at oldRev counts as empty.
func (r *Resolver) Delta(ctx context.Context, oldRev, newRev release.Revision) (release.DependencyDelta, error) {
	r.reporter.Report(ctx, release.LevelInfo, "Analyzing Python dependency changes")

	manifests, err := r.Manifests(ctx, newRev)
	if err != nil {
		return nil, err
	}

	delta := make(release.DependencyDelta)

	for _, manifest := range manifests {
		oldContent, _, err := r.source.ReadFile(ctx, oldRev, manifest)
		if err != nil {
			return nil, err
		}

		newContent, _, err := r.source.ReadFile(ctx, newRev, manifest)
		if err != nil {
			return nil, err
		}

		if bytes.Equal(oldContent, newContent) {
			continue
		}

		r.reportManifestDiff(ctx, manifest, oldRev, newRev, oldContent, newContent)

		oldPins, newPins := ParseManifest(oldContent), ParseManifest(newContent)
		if SamePins(oldPins, newPins) {
			continue
		}

		module := release.ModuleOf(manifest)

		if n := mergeInto(delta, module, ChangedPins(oldPins, newPins)); n > 0 {
			r.reporter.Report(ctx, release.LevelInfo, "Found changed dependencies",
				"module", release.ModuleDisplayName(module), "manifest", manifest, "count", n)
		}
	}

	if delta.Empty() {
		r.reporter.Report(ctx, release.LevelInfo, "No dependency changes found")
	}

	return delta, nil
}

// reportManifestDiff emits a unified diff of a changed manifest at debug level.
func (r *Resolver) reportManifestDiff(ctx context.Context, manifest string, oldRev, newRev release.Revision, oldContent, newContent []byte) {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(oldContent)),
		B:        difflib.SplitLines(string(newContent)),
		FromFile: string(oldRev) + ":" + manifest,
		ToFile:   string(newRev) + ":" + manifest,
		Context:  manifestDiffContext,
	})
	if err != nil || text == "" {
		return
	}

	r.reporter.Report(ctx, release.LevelDebug, "Manifest changed", "manifest", manifest, "diff", text)
}

// mergeInto appends pins to a module, skipping specifiers it already holds, and returns how many were added.
func mergeInto(delta release.DependencyDelta, module string, pins []release.Pin) int {
	seen := make(map[release.Pin]struct{}, len(delta[module]))
	for _, p := range delta[module] {
		seen[p] = struct{}{}
	}

	added := 0

	for _, p := range pins {
		if _, ok := seen[p]; ok {
			continue
		}

		seen[p] = struct{}{}
		delta.Add(module, p)
		added++
	}

	return added
}
