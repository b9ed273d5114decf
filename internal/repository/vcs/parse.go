package vcs

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/oshokin/distpack/internal/domain/release"
)

var (
	// errMalformedTree is returned for ls-tree records that cannot be parsed.
	errMalformedTree = errors.New("malformed ls-tree output")
	// errMalformedDiff is returned for diff-tree records that cannot be parsed.
	errMalformedDiff = errors.New("malformed diff-tree output")
)

// parseLsTree parses NUL-terminated "<mode> <type> <object>\t<path>" records.
func parseLsTree(data []byte) ([]release.TreeEntry, error) {
	records := splitNUL(data)
	entries := make([]release.TreeEntry, 0, len(records))

	for _, record := range records {
		meta, path, found := strings.Cut(record, "\t")
		if !found {
			return nil, fmt.Errorf("%w: %q", errMalformedTree, record)
		}

		fields := strings.Fields(meta)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: %q", errMalformedTree, record)
		}

		mode, err := strconv.ParseUint(fields[0], 8, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: mode %q: %w", errMalformedTree, fields[0], err)
		}

		// Trees only appear without -r; they are never files.
		if fields[1] == "tree" {
			continue
		}

		entries = append(entries, release.TreeEntry{
			Path: release.NormalizePath(path),
			Mode: release.FileMode(mode),
		})
	}

	return entries, nil
}

// parseDiffTree parses NUL-separated --name-status output where renames and
// copies carry two paths ("R100\0old\0new\0") and every other status one.
func parseDiffTree(data []byte) ([]release.DiffRecord, error) {
	fields := splitNUL(data)
	records := make([]release.DiffRecord, 0, len(fields)/2)

	for i := 0; i < len(fields); {
		status := fields[i]
		if status == "" {
			return nil, fmt.Errorf("%w: empty status at field %d", errMalformedDiff, i)
		}

		kind := release.DiffStatus(status[0])

		switch kind {
		case release.StatusRenamed, release.StatusCopied:
			if i+2 >= len(fields) {
				return nil, fmt.Errorf("%w: truncated %s record", errMalformedDiff, status)
			}

			records = append(records, release.DiffRecord{
				Status:  kind,
				Path:    release.NormalizePath(fields[i+1]),
				NewPath: release.NormalizePath(fields[i+2]),
			})
			i += 3
		case release.StatusAdded, release.StatusModified, release.StatusDeleted, release.StatusTypeChanged:
			if i+1 >= len(fields) {
				return nil, fmt.Errorf("%w: truncated %s record", errMalformedDiff, status)
			}

			records = append(records, release.DiffRecord{
				Status: kind,
				Path:   release.NormalizePath(fields[i+1]),
			})
			i += 2
		default:
			return nil, fmt.Errorf("%w: unexpected status %q", errMalformedDiff, status)
		}
	}

	return records, nil
}

// splitNUL splits NUL-terminated output, dropping the trailing terminators.
func splitNUL(data []byte) []string {
	data = bytes.TrimRight(data, "\x00")
	if len(data) == 0 {
		return nil
	}

	parts := bytes.Split(data, []byte{0})
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		out = append(out, string(p))
	}

	return out
}

// missingPathMarkers are the messages git prints when rev:path names no object.
var missingPathMarkers = []string{
	"does not exist in",
	"exists on disk, but not in",
}

// isMissingPath reports whether git stderr says the requested path is not in the revision.
func isMissingPath(stderr []byte) bool {
	msg := string(stderr)

	for _, marker := range missingPathMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}
