package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/distpack/internal/config"
	"github.com/oshokin/distpack/internal/domain/release"
	"github.com/oshokin/distpack/internal/repository/vcs"
	"github.com/oshokin/distpack/internal/service/archive"
	"github.com/oshokin/distpack/internal/service/deps"
	"github.com/oshokin/distpack/internal/service/fetch"
	"github.com/oshokin/distpack/internal/service/ignore"
	"github.com/oshokin/distpack/internal/service/treediff"
)

const (
	// workDirPattern prefixes the per-run temporary directory; the run id is inserted.
	workDirPattern = "distpack-%s-*"
	// stagingDirName is the staging tree inside the working directory.
	stagingDirName = "wheels"
	// packageFileName is the archive built inside the working directory before publishing.
	packageFileName = "package.tar.gz"
	// packageFilePermissions is used for the temporary archive.
	packageFilePermissions = 0o600
)

// ToolChecker is implemented by downloaders that can check their tool before any work starts.
type ToolChecker interface {
	CheckTool(ctx context.Context) (string, error)
}

// Request describes one packaging run.
type Request struct {
	// OldRevision is the baseline; ignored in snapshot mode.
	OldRevision release.Revision
	// NewRevision is the revision being shipped.
	NewRevision release.Revision
	// Mode selects delta or snapshot packaging.
	Mode release.Mode
	// Force skips the clean working tree check.
	Force bool
	// OutputPath is where the archive is written; empty selects DefaultOutputName.
	OutputPath string
	// Target selects the interpreter and platform of downloaded distributions.
	Target release.Target
}

// Result describes the outcome of a run.
type Result struct {
	// Created is false when there was nothing to package.
	Created bool
	// OutputPath is the archive path, set whether or not it was created.
	OutputPath string
	// Changes is the change set after ignore filtering.
	Changes release.ChangeSet
	// Excluded lists add paths dropped by the ignore list.
	Excluded []string
	// Dependencies is the dependency delta.
	Dependencies release.DependencyDelta
	// Fetch is the download summary.
	Fetch *fetch.Result
	// Archive counts what was written, nil when nothing was created.
	Archive *archive.Stats
	// Package describes the published archive, nil when nothing was created.
	Package *archive.Published
}

// Packager runs the packaging pipeline against injected collaborators.
type Packager struct {
	repo       vcs.Repository
	downloader fetch.Downloader
	cfg        *config.Config
	reporter   release.Reporter
	ignorePath string
	workRoot   string
	runID      string
}

// Option customizes a Packager.
type Option func(*Packager)

// WithIgnoreFile sets the exclude-pattern document path.
func WithIgnoreFile(path string) Option {
	return func(p *Packager) {
		p.ignorePath = path
	}
}

// WithWorkRoot sets the directory the temporary working directory is created in.
func WithWorkRoot(dir string) Option {
	return func(p *Packager) {
		p.workRoot = dir
	}
}

// WithRunID sets the identifier embedded into the working directory name.
func WithRunID(id string) Option {
	return func(p *Packager) {
		p.runID = id
	}
}

// WithReporter sets the event sink.
func WithReporter(reporter release.Reporter) Option {
	return func(p *Packager) {
		p.reporter = reporter
	}
}

// New returns a packager. A nil cfg means config.Default().
func New(repo vcs.Repository, downloader fetch.Downloader, cfg *config.Config, options ...Option) *Packager {
	if cfg == nil {
		cfg = config.Default()
	}

	p := &Packager{
		repo:       repo,
		downloader: downloader,
		cfg:        cfg,
		reporter:   release.Discard,
		ignorePath: cfg.IgnoreFile,
		runID:      "run",
	}

	for _, option := range options {
		option(p)
	}

	if p.reporter == nil {
		p.reporter = release.Discard
	}

	return p
}

// Build runs preflight checks and produces the package described by req.
func (p *Packager) Build(ctx context.Context, req Request) (result *Result, err error) {
	if err = p.preflight(ctx, req); err != nil {
		return nil, err
	}

	result = &Result{OutputPath: req.OutputPath}
	if result.OutputPath == "" {
		result.OutputPath = DefaultOutputName(p.cfg.OutputPrefix, req.Mode, req.OldRevision, req.NewRevision)
	}

	p.reporter.Report(ctx, release.LevelInfo, "Packaging started",
		"mode", req.Mode.String(), "old", string(req.OldRevision), "new", string(req.NewRevision))

	changes, err := p.changes(ctx, req)
	if err != nil {
		return nil, err
	}

	if result.Dependencies, err = p.dependencies(ctx, req); err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp(p.workRoot, fmt.Sprintf(workDirPattern, p.runID))
	if err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}

	defer func() {
		if removeErr := os.RemoveAll(workDir); removeErr != nil {
			p.reporter.Report(ctx, release.LevelWarn, "Failed to remove working directory", "path", workDir, "error", removeErr)
		}
	}()

	stagingRoot := filepath.Join(workDir, stagingDirName)

	fetcher := fetch.New(p.downloader, p.cfg.FetchConcurrency, p.reporter)
	if result.Fetch, err = fetcher.Fetch(ctx, result.Dependencies, stagingRoot, req.Target); err != nil {
		return nil, fmt.Errorf("failed to fetch dependencies: %w", err)
	}

	filter, err := ignore.Load(ctx, p.ignorePath, p.reporter)
	if err != nil {
		return nil, err
	}

	kept, excluded := filter.Apply(ctx, changes.Add)
	if len(excluded) > 0 {
		p.reporter.Report(ctx, release.LevelInfo, "Files excluded by ignore patterns", "count", len(excluded))
	}

	result.Changes = release.ChangeSet{Add: kept, Delete: changes.Delete}
	result.Excluded = excluded

	if !archive.ShouldBuild(kept, changes.Delete, result.Fetch.Fetched) {
		p.reporter.Report(ctx, release.LevelInfo, "No changes detected, package was not created")

		return result, nil
	}

	packagePath := filepath.Join(workDir, packageFileName)

	if result.Archive, err = p.writeArchive(ctx, packagePath, archive.Input{
		Revision:         req.NewRevision,
		Add:              kept,
		Delete:           changes.Delete,
		StagingRoot:      stagingRoot,
		IncludeArtifacts: result.Fetch.Fetched,
	}); err != nil {
		return nil, err
	}

	if result.Package, err = archive.Publish(ctx, packagePath, result.OutputPath, p.reporter); err != nil {
		return nil, err
	}

	result.Created = true

	return result, nil
}

// preflight checks tools, revisions and the working tree.
func (p *Packager) preflight(ctx context.Context, req Request) error {
	if checker, ok := p.downloader.(ToolChecker); ok {
		banner, err := checker.CheckTool(ctx)
		if err != nil {
			return err
		}

		p.reporter.Report(ctx, release.LevelDebug, "Downloader available", "version", banner)
	}

	revisions := []release.Revision{req.OldRevision, req.NewRevision}
	if req.Mode == release.ModeSnapshot {
		revisions = revisions[1:]
	}

	for _, rev := range revisions {
		if err := p.repo.ValidateRevision(ctx, rev); err != nil {
			return err
		}
	}

	if req.Force {
		p.reporter.Report(ctx, release.LevelWarn, "Skipping the working tree check because --force is set")
		p.reporter.Report(ctx, release.LevelWarn, "Uncommitted changes are not part of the package, only committed revisions are read")
		p.reporter.Report(ctx, release.LevelWarn, "The ignore list is read from the working tree and may differ from the committed one")

		return nil
	}

	clean, status, err := p.repo.WorkingTreeStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to check working tree: %w", err)
	}

	if !clean {
		return fmt.Errorf("%w; commit or stash your changes, or use --force:\n%s", release.ErrDirtyWorkingTree, strings.TrimSpace(status))
	}

	p.reporter.Report(ctx, release.LevelDebug, "Working tree is clean")

	return nil
}

func (p *Packager) changes(ctx context.Context, req Request) (release.ChangeSet, error) {
	resolver := treediff.New(p.repo, p.reporter)

	if req.Mode == release.ModeSnapshot {
		return resolver.Snapshot(ctx, req.NewRevision)
	}

	return resolver.Delta(ctx, req.OldRevision, req.NewRevision)
}

func (p *Packager) dependencies(ctx context.Context, req Request) (release.DependencyDelta, error) {
	resolver := deps.New(p.repo, p.cfg.ManifestPatterns, p.reporter)

	if req.Mode == release.ModeSnapshot {
		return resolver.Snapshot(ctx, req.NewRevision)
	}

	return resolver.Delta(ctx, req.OldRevision, req.NewRevision)
}

func (p *Packager) writeArchive(ctx context.Context, path string, in archive.Input) (stats *archive.Stats, err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, packageFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to create package file: %w", err)
	}

	defer func() {
		err = errors.Join(err, f.Close())
	}()

	stats, err = archive.New(p.repo, p.reporter).Build(ctx, f, in)
	if err != nil {
		return nil, fmt.Errorf("failed to build package: %w", err)
	}

	return stats, nil
}

// DefaultOutputName returns the archive name used when no output path is given.
func DefaultOutputName(prefix string, mode release.Mode, oldRev, newRev release.Revision) string {
	if prefix == "" {
		prefix = config.DefaultOutputPrefix
	}

	if mode == release.ModeSnapshot {
		return fmt.Sprintf("%s_Full-Package_%s.tar.gz", prefix, sanitizeRevision(newRev))
	}

	return fmt.Sprintf("%s_Update_%s_to_%s.tar.gz", prefix, sanitizeRevision(oldRev), sanitizeRevision(newRev))
}

func sanitizeRevision(rev release.Revision) string {
	return strings.NewReplacer("/", "-", "\\", "-").Replace(string(rev))
}
