package release

import "errors"

var (
	// ErrInvalidRevision is returned when a revision does not resolve to a commit.
	ErrInvalidRevision = errors.New("invalid revision")
	// ErrDirtyWorkingTree is returned when uncommitted changes exist and the check is not bypassed.
	ErrDirtyWorkingTree = errors.New("working tree is not clean")
	// ErrExternalToolMissing is returned when a required executable is not on PATH.
	ErrExternalToolMissing = errors.New("external tool not found")
	// ErrExternalToolFailure is returned when an external command exits unsuccessfully.
	ErrExternalToolFailure = errors.New("external tool failed")
	// ErrPartitionViolation is returned when a path is both added and deleted.
	ErrPartitionViolation = errors.New("path appears in more than one change set")
)
