package pypi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oshokin/distpack/internal/domain/release"
	"github.com/oshokin/distpack/internal/repository/command"
)

// PipDownloader runs "pip download" for single pins.
type PipDownloader struct {
	// argv is the pip invocation prefix, e.g. ["python3", "-m", "pip"].
	argv []string
	// runner executes pip.
	runner *command.Runner
}

// NewPipDownloader returns a downloader invoking pip through argv.
func NewPipDownloader(argv []string, workDir string, timeout time.Duration) *PipDownloader {
	return &PipDownloader{
		argv:   append([]string(nil), argv...),
		runner: &command.Runner{Dir: workDir, Timeout: timeout},
	}
}

// CheckTool verifies that pip can be executed.
func (d *PipDownloader) CheckTool(ctx context.Context) (string, error) {
	if err := command.LookPath(d.argv[0]); err != nil {
		return "", err
	}

	out, err := d.runner.Output(ctx, d.call("--version"))
	if err != nil {
		return "", fmt.Errorf("check pip: %w", err)
	}

	return strings.TrimSpace(string(out)), nil
}

// Download fetches the binary distribution of pin for target into dest.
func (d *PipDownloader) Download(ctx context.Context, pin release.Pin, dest string, target release.Target) error {
	if _, err := d.runner.Output(ctx, d.call(DownloadArgs(pin, dest, target)...)); err != nil {
		return fmt.Errorf("download %s: %w", pin, err)
	}

	return nil
}

// DownloadArgs returns the pip arguments for a binary-only, no-deps download of a single pin.
func DownloadArgs(pin release.Pin, dest string, target release.Target) []string {
	return []string{
		"download",
		"--dest", dest,
		"--platform", target.Platform,
		"--python-version", target.PythonVersion,
		"--only-binary=:all:",
		"--no-deps",
		"--disable-pip-version-check",
		pin.String(),
	}
}

func (d *PipDownloader) call(args ...string) command.Call {
	argv := append(append([]string(nil), d.argv[1:]...), args...)

	return command.Call{Name: d.argv[0], Args: argv}
}
