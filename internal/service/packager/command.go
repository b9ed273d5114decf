package packager

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/oshokin/distpack/internal/config"
	"github.com/oshokin/distpack/internal/domain/release"
	"github.com/oshokin/distpack/internal/logger"
	"github.com/oshokin/distpack/internal/repository/pypi"
	"github.com/oshokin/distpack/internal/repository/vcs"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// ConfigPath is an optional configuration file; empty looks for distpack.yaml in the repository root.
	ConfigPath string
	// RepoDir is any directory inside the repository (defaults to the current directory).
	RepoDir string
	// OldRevision is the baseline revision.
	OldRevision string
	// NewRevision is the revision being shipped.
	NewRevision string
	// OutputPath overrides the generated archive name.
	OutputPath string
	// PythonVersion overrides the configured interpreter version.
	PythonVersion string
	// Platform overrides the configured platform tag.
	Platform string
	// LogLevel overrides the configured log level.
	LogLevel string
	// Force skips the clean working tree check.
	Force bool
	// Full packages the new revision in full instead of the difference.
	Full bool
}

// Run executes the packaging workflow with the git and pip gateways.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	runID := uuid.NewString()

	ctx = logger.WithName(ctx, "distpack")
	ctx = logger.WithKV(ctx, "run_id", runID)

	dir := opts.RepoDir
	if dir == "" {
		dir = "."
	}

	cfg, err := config.Load(dir, opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	repo, err := vcs.Discover(ctx, dir, cfg.GitBinary, cfg.CommandTimeout)
	if err != nil {
		return nil, err
	}

	// The default configuration lives in the repository root, which may differ from dir.
	if opts.ConfigPath == "" {
		if cfg, err = config.Load(repo.Root(), ""); err != nil {
			return nil, fmt.Errorf("load configuration: %w", err)
		}
	}

	level := opts.LogLevel
	if level == "" {
		level = cfg.LogLevel
	}

	if err = logger.Setup(level); err != nil {
		return nil, err
	}

	if banner, versionErr := repo.Version(ctx); versionErr == nil {
		logger.DebugKV(ctx, "Using git", "version", banner, "root", repo.Root())
	}

	ignorePath := cfg.IgnoreFile
	if !filepath.IsAbs(ignorePath) {
		ignorePath = filepath.Join(repo.Root(), ignorePath)
	}

	pkg := New(
		repo,
		pypi.NewPipDownloader(cfg.PipCommand, repo.Root(), cfg.CommandTimeout),
		cfg,
		WithIgnoreFile(ignorePath),
		WithRunID(runID),
		WithReporter(logger.NewReporter()),
	)

	req := Request{
		OldRevision: release.Revision(opts.OldRevision),
		NewRevision: release.Revision(opts.NewRevision),
		Mode:        release.ModeDelta,
		Force:       opts.Force,
		OutputPath:  opts.OutputPath,
		Target: release.Target{
			PythonVersion: firstNonEmpty(opts.PythonVersion, cfg.PythonVersion),
			Platform:      firstNonEmpty(opts.Platform, cfg.Platform),
		},
	}

	if opts.Full {
		req.Mode = release.ModeSnapshot
	}

	result, err := pkg.Build(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("packaging failed: %w", err)
	}

	if result.Created {
		logger.InfoKV(ctx, "Package created successfully",
			"path", result.OutputPath,
			"files", len(result.Changes.Add),
			"deleted", len(result.Changes.Delete),
			"dependencies", result.Dependencies.Count(),
			"failed_packages", result.Fetch.FailedPackages())
	} else {
		logger.Info(ctx, "Nothing to package")
	}

	return result, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
