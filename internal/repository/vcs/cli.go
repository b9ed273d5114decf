package vcs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oshokin/distpack/internal/domain/release"
	"github.com/oshokin/distpack/internal/repository/command"
)

// modeQueryChunk bounds how many paths are passed to a single ls-tree call
// so large change sets never exceed the command-line length limit.
const modeQueryChunk = 256

// CLI implements Repository on top of the git executable.
type CLI struct {
	// root is the repository top-level directory.
	root string
	// binary is the git executable.
	binary string
	// runner executes git inside root.
	runner *command.Runner
}

var _ Repository = (*CLI)(nil)

// Discover resolves the repository containing dir and returns a gateway rooted at its top level.
func Discover(ctx context.Context, dir, binary string, timeout time.Duration) (*CLI, error) {
	if err := command.LookPath(binary); err != nil {
		return nil, err
	}

	locate := &command.Runner{Dir: dir, Timeout: timeout}

	out, err := locate.Output(ctx, command.Call{Name: binary, Args: []string{"rev-parse", "--show-toplevel"}})
	if err != nil {
		return nil, fmt.Errorf("locate repository root: %w", err)
	}

	return NewCLI(strings.TrimSpace(string(out)), binary, timeout), nil
}

// NewCLI returns a gateway for the repository rooted at root.
func NewCLI(root, binary string, timeout time.Duration) *CLI {
	return &CLI{
		root:   root,
		binary: binary,
		runner: &command.Runner{Dir: root, Timeout: timeout},
	}
}

// Root returns the repository top-level directory.
func (c *CLI) Root() string {
	return c.root
}

// Version returns the git version banner.
func (c *CLI) Version(ctx context.Context) (string, error) {
	out, err := c.git(ctx, "--version")
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(out)), nil
}

// ListTree runs git ls-tree -r -z.
func (c *CLI) ListTree(ctx context.Context, rev release.Revision) ([]release.TreeEntry, error) {
	out, err := c.git(ctx, "ls-tree", "-r", "-z", string(rev))
	if err != nil {
		return nil, fmt.Errorf("list tree of %s: %w", rev, err)
	}

	return parseLsTree(out)
}

// ReadFile runs git cat-file blob rev:path. A path git reports as missing at rev
// is absent; any other failure wraps release.ErrExternalToolFailure.
func (c *CLI) ReadFile(ctx context.Context, rev release.Revision, path string) ([]byte, bool, error) {
	call := command.Call{
		Name: c.binary,
		Args: []string{"cat-file", "blob", string(rev) + ":" + path},
	}

	done, err := c.runner.Exit(ctx, call)
	if err != nil {
		return nil, false, fmt.Errorf("read %s at %s: %w", path, rev, err)
	}

	if done.Code == 0 {
		return done.Stdout, true, nil
	}

	if isMissingPath(done.Stderr) {
		return nil, false, nil
	}

	return nil, false, fmt.Errorf("read %s at %s: %w: exit status %d: %s",
		path, rev, release.ErrExternalToolFailure, done.Code, strings.TrimSpace(string(done.Stderr)))
}

// FileModes runs git ls-tree -r -z for the requested paths in bounded chunks.
func (c *CLI) FileModes(ctx context.Context, rev release.Revision, paths []string) (map[string]release.FileMode, error) {
	modes := make(map[string]release.FileMode, len(paths))
	wanted := make(map[string]struct{}, len(paths))

	for _, p := range paths {
		wanted[p] = struct{}{}
	}

	for start := 0; start < len(paths); start += modeQueryChunk {
		end := min(start+modeQueryChunk, len(paths))

		args := append([]string{"ls-tree", "-r", "-z", string(rev), "--"}, paths[start:end]...)

		out, err := c.git(ctx, args...)
		if err != nil {
			return nil, fmt.Errorf("read file modes at %s: %w", rev, err)
		}

		entries, err := parseLsTree(out)
		if err != nil {
			return nil, err
		}

		for _, e := range entries {
			if _, ok := wanted[e.Path]; ok {
				modes[e.Path] = e.Mode
			}
		}
	}

	return modes, nil
}

// DiffTree runs git diff-tree with rename detection. Unmerged and unknown records are filtered out.
func (c *CLI) DiffTree(ctx context.Context, oldRev, newRev release.Revision) ([]release.DiffRecord, error) {
	out, err := c.git(ctx,
		"diff-tree", "-r", "-z", "--no-commit-id", "--name-status", "-M",
		"--diff-filter=ACMRTD", string(oldRev), string(newRev))
	if err != nil {
		return nil, fmt.Errorf("diff %s..%s: %w", oldRev, newRev, err)
	}

	return parseDiffTree(out)
}

// ValidateRevision runs git cat-file -e rev^{commit}.
func (c *CLI) ValidateRevision(ctx context.Context, rev release.Revision) error {
	if strings.TrimSpace(string(rev)) == "" || strings.HasPrefix(string(rev), "-") {
		return fmt.Errorf("%w: %q", release.ErrInvalidRevision, rev)
	}

	done, err := c.runner.Exit(ctx, command.Call{
		Name: c.binary,
		Args: []string{"cat-file", "-e", string(rev) + "^{commit}"},
	})
	if err != nil {
		return err
	}

	if done.Code != 0 {
		return fmt.Errorf("%w: %s does not resolve to a commit", release.ErrInvalidRevision, rev)
	}

	return nil
}

// WorkingTreeStatus runs git status --porcelain.
func (c *CLI) WorkingTreeStatus(ctx context.Context) (bool, string, error) {
	out, err := c.git(ctx, "status", "--porcelain")
	if err != nil {
		return false, "", fmt.Errorf("working tree status: %w", err)
	}

	status := strings.TrimRight(string(out), "\n")

	return status == "", status, nil
}

func (c *CLI) git(ctx context.Context, args ...string) ([]byte, error) {
	return c.runner.Output(ctx, command.Call{Name: c.binary, Args: args})
}
