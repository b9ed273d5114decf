package archive

import (
	"bytes"
	"context"
	"crypto"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/distpack/internal/domain/release"
)

const outputDirPermissions = 0o755

// Published describes an installed package.
type Published struct {
	// Path is the output path.
	Path string
	// Size is the package size in bytes.
	Size int64
	// SHA256 is the hex-encoded checksum of the package.
	SHA256 string
}

// Publish installs the finished package at src as target.
// An existing package is verified against its checksum and swapped atomically.
// A new path receives a staged copy by rename, so target never holds a partial package.
func Publish(ctx context.Context, src, target string, reporter release.Reporter) (*Published, error) {
	if reporter == nil {
		reporter = release.Discard
	}

	data, err := os.ReadFile(filepath.Clean(src))
	if err != nil {
		return nil, fmt.Errorf("failed to read package: %w", err)
	}

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)

	if err = os.MkdirAll(filepath.Dir(target), outputDirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	exists, err := targetExists(target)
	if err != nil {
		return nil, err
	}

	if exists {
		err = replaceTarget(target, data, sum[:])
	} else {
		err = installTarget(target, data)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to publish package: %w", err)
	}

	removeLeftovers(target)

	published := &Published{
		Path:   target,
		Size:   int64(len(data)),
		SHA256: hex.EncodeToString(sum[:]),
	}

	reporter.Report(ctx, release.LevelInfo, "Package published",
		"path", published.Path, "size", published.Size, "sha256", published.SHA256)

	return published, nil
}

// targetExists reports whether something is already installed at target.
func targetExists(target string) (bool, error) {
	_, err := os.Stat(target)
	if err == nil {
		return true, nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to inspect output path: %w", err)
	}

	return false, nil
}

// replaceTarget swaps an existing package for data after verifying its checksum.
// The swap renames the current target aside, so it only serves paths that exist.
func replaceTarget(target string, data, checksum []byte) error {
	return goupdate.Apply(bytes.NewReader(data), goupdate.Options{
		TargetPath: target,
		TargetMode: filePermissions,
		Checksum:   checksum,
		Hash:       crypto.SHA256,
	})
}

// installTarget writes data beside target as .name.new and renames it into place.
// Nothing appears at target until the package is complete.
func installTarget(target string, data []byte) error {
	dir, name := filepath.Split(target)
	staged := filepath.Join(dir, "."+name+".new")

	f, err := os.OpenFile(staged, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePermissions)
	if err != nil {
		return err
	}

	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}

	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err == nil {
		err = os.Rename(staged, target)
	}

	if err != nil {
		_ = os.Remove(staged)

		return err
	}

	return nil
}

// removeLeftovers drops the previous package kept aside by the swap.
func removeLeftovers(target string) {
	dir, name := filepath.Split(target)

	for _, leftover := range []string{
		target + ".old",
		filepath.Join(dir, "."+name+".old"),
		filepath.Join(dir, "."+name+".new"),
	} {
		if _, err := os.Stat(leftover); err == nil {
			_ = os.Remove(leftover)
		}
	}
}
