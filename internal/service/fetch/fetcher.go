package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/oshokin/distpack/internal/domain/release"
)

const (
	// wheelPattern matches binary distributions anywhere under the staging root.
	wheelPattern = "**/*.whl"
	// stagingDirPermissions is used for module directories inside the staging root.
	stagingDirPermissions = 0o755
)

// Downloader fetches a single pinned distribution into a directory.
type Downloader interface {
	Download(ctx context.Context, pin release.Pin, dest string, target release.Target) error
}

// Result summarizes a fetch.
type Result struct {
	// Fetched is true when at least one wheel exists under the staging root.
	Fetched bool
	// Wheels lists staged wheel files relative to the staging root.
	Wheels []string
	// Failures holds the combined per-package errors of each module that had any.
	Failures map[string]error
}

// FailedPackages counts the packages that could not be downloaded.
func (r *Result) FailedPackages() int {
	if r == nil {
		return 0
	}

	var count int

	for _, err := range r.Failures {
		count += len(multierr.Errors(err))
	}

	return count
}

// Fetcher downloads dependency deltas.
type Fetcher struct {
	downloader  Downloader
	concurrency int
	reporter    release.Reporter
}

// New returns a fetcher processing up to concurrency modules at once.
func New(downloader Downloader, concurrency int, reporter release.Reporter) *Fetcher {
	if concurrency < 1 {
		concurrency = 1
	}

	if reporter == nil {
		reporter = release.Discard
	}

	return &Fetcher{
		downloader:  downloader,
		concurrency: concurrency,
		reporter:    reporter,
	}
}

// Fetch downloads every pin of delta for target under stagingRoot.
// The root module is staged in stagingRoot itself, other modules in stagingRoot/<module>.
func (f *Fetcher) Fetch(ctx context.Context, delta release.DependencyDelta, stagingRoot string, target release.Target) (*Result, error) {
	result := &Result{Failures: make(map[string]error)}
	if delta.Empty() {
		return result, nil
	}

	f.reporter.Report(ctx, release.LevelInfo, "Downloading Python dependencies",
		"packages", delta.Count(), "modules", len(delta.Modules()),
		"python_version", target.PythonVersion, "platform", target.Platform)

	var (
		mu    sync.Mutex
		group errgroup.Group
	)

	group.SetLimit(f.concurrency)

	for _, module := range delta.Modules() {
		pins := delta[module]

		group.Go(func() error {
			return f.fetchModule(ctx, module, pins, stagingRoot, target, func(err error) {
				mu.Lock()
				defer mu.Unlock()

				result.Failures[module] = multierr.Append(result.Failures[module], err)
			})
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	wheels, err := doublestar.Glob(os.DirFS(stagingRoot), wheelPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to scan staging directory: %w", err)
	}

	result.Wheels = wheels
	result.Fetched = len(wheels) > 0

	if !result.Fetched {
		f.reporter.Report(ctx, release.LevelWarn, "No wheels were downloaded; the package will contain no dependencies")
	}

	return result, nil
}

// fetchModule downloads the pins of one module, passing per-package errors to
// onFailure. The returned error is fatal.
func (f *Fetcher) fetchModule(
	ctx context.Context,
	module string,
	pins []release.Pin,
	stagingRoot string,
	target release.Target,
	onFailure func(error),
) error {
	dest := filepath.Join(stagingRoot, filepath.FromSlash(module))
	if err := os.MkdirAll(dest, stagingDirPermissions); err != nil {
		return fmt.Errorf("failed to create staging directory for module %s: %w", release.ModuleDisplayName(module), err)
	}

	f.reporter.Report(ctx, release.LevelInfo, "Downloading module dependencies",
		"module", release.ModuleDisplayName(module), "count", len(pins))

	for _, pin := range pins {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := f.downloader.Download(ctx, pin, dest, target); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			f.reporter.Report(ctx, release.LevelWarn, "Failed to download package",
				"module", release.ModuleDisplayName(module), "package", pin.String(), "error", err)

			onFailure(err)
		}
	}

	return nil
}
